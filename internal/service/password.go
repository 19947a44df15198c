package service

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinBcryptCost is the lowest cost NewPasswordHasher accepts.
const MinBcryptCost = 12

// MaxPasswordLength is the longest password bcrypt accepts.
const MaxPasswordLength = 72

// PasswordHasher hashes and verifies admin passwords with bcrypt.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher returns a hasher using cost, or MinBcryptCost when cost
// is zero.
func NewPasswordHasher(cost int) (*PasswordHasher, error) {
	if cost == 0 {
		cost = MinBcryptCost
	}
	if cost < MinBcryptCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: bcrypt cost %d outside [%d, %d]", ErrInvalidParameter, cost, MinBcryptCost, bcrypt.MaxCost)
	}
	return &PasswordHasher{cost: cost}, nil
}

// Hash returns a salted bcrypt hash; two calls on the same input differ.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches storedHash. A malformed hash is a
// mismatch.
func (h *PasswordHasher) Verify(plaintext, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plaintext)) == nil
}

// Cost returns the bcrypt cost in use.
func (h *PasswordHasher) Cost() int {
	return h.cost
}
