package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/text2trait/t2t/internal/model"
)

const adminColumns = `id, email, password_hash, display_name, is_active, last_login_at, created_at, updated_at`

// CreateAdmin inserts a new admin account. The caller assigns ID; CreatedAt
// and UpdatedAt are set here. A duplicate email yields ErrConflict.
func (s *Store) CreateAdmin(ctx context.Context, admin *model.Admin) error {
	now := time.Now().UTC()
	admin.CreatedAt = now
	admin.UpdatedAt = now

	const q = `INSERT INTO admins
		(id, email, password_hash, display_name, is_active, last_login_at, created_at, updated_at)
		VALUES
		(:id, :email, :password_hash, :display_name, :is_active, :last_login_at, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, admin); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

// GetAdmin returns an admin by ID.
func (s *Store) GetAdmin(ctx context.Context, id string) (*model.Admin, error) {
	return s.getAdmin(ctx, "get admin", "SELECT "+adminColumns+" FROM admins WHERE id = ?", id)
}

// GetAdminByEmail returns an admin by email address. The match is exact:
// emails are compared as stored, without case folding.
func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error) {
	return s.getAdmin(ctx, "get admin by email", "SELECT "+adminColumns+" FROM admins WHERE email = ?", email)
}

func (s *Store) getAdmin(ctx context.Context, op, q string, arg any) (*model.Admin, error) {
	var admin model.Admin
	if err := s.db.GetContext(ctx, &admin, s.db.Rebind(q), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &admin, nil
}

// ListAdmins returns all admin accounts ordered by email.
func (s *Store) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	var admins []model.Admin
	if err := s.db.SelectContext(ctx, &admins, "SELECT "+adminColumns+" FROM admins ORDER BY email"); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

// HasAnyAdmin reports whether at least one admin account exists. serve uses
// it to warn when nobody could log in.
func (s *Store) HasAnyAdmin(ctx context.Context) (bool, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM admins"); err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	return count > 0, nil
}

// UpdateAdminPassword replaces the stored password hash.
func (s *Store) UpdateAdminPassword(ctx context.Context, id, passwordHash string) error {
	return s.execOne(ctx, "update admin password",
		"UPDATE admins SET password_hash = ?, updated_at = ? WHERE id = ?",
		passwordHash, time.Now().UTC(), id)
}

// SetAdminActive flips the is_active flag. Accounts are never deleted.
func (s *Store) SetAdminActive(ctx context.Context, id string, active bool) error {
	return s.execOne(ctx, "set admin active",
		"UPDATE admins SET is_active = ?, updated_at = ? WHERE id = ?",
		active, time.Now().UTC(), id)
}

// UpdateAdminLastLogin sets the last_login_at timestamp for an admin.
func (s *Store) UpdateAdminLastLogin(ctx context.Context, id string, at time.Time) error {
	return s.execOne(ctx, "update admin last login",
		"UPDATE admins SET last_login_at = ? WHERE id = ?",
		at.UTC(), id)
}

// execOne runs an UPDATE expected to touch exactly one row and returns
// ErrNotFound when it touched none.
func (s *Store) execOne(ctx context.Context, op, q string, args ...any) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(q), args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
