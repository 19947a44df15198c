package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/text2trait/t2t/internal/model"
)

const sessionColumns = `id, admin_id, token, expires_at, created_at, ip_address, user_agent, device`

// CreateSession inserts a session record exactly as given; the caller owns
// the token, CreatedAt and ExpiresAt so that expiry always derives from one
// clock reading.
func (s *Store) CreateSession(ctx context.Context, session *model.Session) error {
	const q = `INSERT INTO admin_sessions
		(id, admin_id, token, expires_at, created_at, ip_address, user_agent, device)
		VALUES
		(:id, :admin_id, :token, :expires_at, :created_at, :ip_address, :user_agent, :device)`

	if _, err := s.db.NamedExecContext(ctx, q, session); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSessionWithAdmin looks a session up by token and joins the owning
// admin's email, display name and active flag in the same round trip.
func (s *Store) GetSessionWithAdmin(ctx context.Context, token string) (*model.SessionWithAdmin, error) {
	const q = `SELECT s.id, s.admin_id, s.token, s.expires_at, s.created_at, s.ip_address, s.user_agent, s.device,
			a.email AS admin_email, a.display_name AS admin_display_name, a.is_active AS admin_is_active
		FROM admin_sessions s
		JOIN admins a ON a.id = s.admin_id
		WHERE s.token = ?`

	var row model.SessionWithAdmin
	if err := s.db.GetContext(ctx, &row, s.db.Rebind(q), token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		// The token is deliberately absent from the message.
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &row, nil
}

// ListSessionsByAdmin returns every stored session for an admin, newest
// first, expired ones included.
func (s *Store) ListSessionsByAdmin(ctx context.Context, adminID string) ([]model.Session, error) {
	q := s.db.Rebind("SELECT " + sessionColumns + " FROM admin_sessions WHERE admin_id = ? ORDER BY created_at DESC")

	var sessions []model.Session
	if err := s.db.SelectContext(ctx, &sessions, q, adminID); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// DeleteSession removes the session with the given token. It reports whether
// a row was removed; deleting an absent session is not an error, so two
// concurrent deletes of the same token both succeed.
func (s *Store) DeleteSession(ctx context.Context, token string) (bool, error) {
	result, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM admin_sessions WHERE token = ?"), token)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete session rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteSessionsByAdmin removes every session belonging to an admin and
// returns how many were removed.
func (s *Store) DeleteSessionsByAdmin(ctx context.Context, adminID string) (int64, error) {
	return s.deleteCount(ctx, "delete sessions by admin",
		"DELETE FROM admin_sessions WHERE admin_id = ?", adminID)
}

// DeleteExpiredSessions removes sessions whose expiry is at or before now.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	return s.deleteCount(ctx, "delete expired sessions",
		"DELETE FROM admin_sessions WHERE expires_at <= ?", now.UTC())
}

func (s *Store) deleteCount(ctx context.Context, op, q string, arg any) (int64, error) {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(q), arg)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s rows affected: %w", op, err)
	}
	return n, nil
}
