package service

import (
	"context"
	"time"

	"github.com/text2trait/t2t/internal/model"
)

// AdminStore persists admin accounts. Misses return config.ErrNotFound and
// duplicate emails config.ErrConflict.
type AdminStore interface {
	CreateAdmin(ctx context.Context, admin *model.Admin) error
	GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error)
	ListAdmins(ctx context.Context) ([]model.Admin, error)
	UpdateAdminPassword(ctx context.Context, id, passwordHash string) error
	SetAdminActive(ctx context.Context, id string, active bool) error
	UpdateAdminLastLogin(ctx context.Context, id string, at time.Time) error
}

// SessionStore persists sessions keyed by token.
type SessionStore interface {
	CreateSession(ctx context.Context, session *model.Session) error
	GetSessionWithAdmin(ctx context.Context, token string) (*model.SessionWithAdmin, error)
	ListSessionsByAdmin(ctx context.Context, adminID string) ([]model.Session, error)
	DeleteSession(ctx context.Context, token string) (bool, error)
	DeleteSessionsByAdmin(ctx context.Context, adminID string) (int64, error)
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Store is satisfied by *config.Store.
type Store interface {
	AdminStore
	SessionStore
}
