package service

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyExists          = errors.New("already exists")
	ErrNotFound               = errors.New("not found")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrAccountDisabled        = errors.New("account disabled")
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrInvalidSession         = errors.New("invalid session")
	ErrInvalidParameter       = errors.New("invalid parameter")

	// ErrStorageFailure wraps any store error that is not a plain miss or
	// conflict. It is never mapped to ErrNotFound.
	ErrStorageFailure = errors.New("storage failure")
)

func storageFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageFailure, op, err)
}
