package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mssola/useragent"

	"github.com/text2trait/t2t/internal/config"
	"github.com/text2trait/t2t/internal/metrics"
	"github.com/text2trait/t2t/internal/model"
)

// DefaultSessionLifetime is how long a session token stays valid.
const DefaultSessionLifetime = 24 * time.Hour

// SessionConfig tunes the SessionManager.
type SessionConfig struct {
	Lifetime time.Duration    // DefaultSessionLifetime when zero
	Now      func() time.Time // time.Now when nil
}

// Provenance records where a login came from. It is stored with the session
// for display and never consulted when authorizing.
type Provenance struct {
	IPAddress string
	UserAgent string
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Admin     model.Identity
}

// SessionManager issues, verifies and revokes admin session tokens.
type SessionManager struct {
	store   Store
	hasher  *PasswordHasher
	secrets *SecretGenerator
	cfg     SessionConfig
	metrics *metrics.Metrics
	logger  *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewSessionManager(store Store, hasher *PasswordHasher, secrets *SecretGenerator, cfg SessionConfig, m *metrics.Metrics, logger *slog.Logger) *SessionManager {
	if cfg.Lifetime == 0 {
		cfg.Lifetime = DefaultSessionLifetime
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		store:   store,
		hasher:  hasher,
		secrets: secrets,
		cfg:     cfg,
		metrics: m,
		logger:  logger,
	}
}

// Login exchanges an email and password for a new session. An unknown email
// and a wrong password both return ErrInvalidCredentials. ErrAccountDisabled
// is only reported after the password has matched.
func (s *SessionManager) Login(ctx context.Context, email, password string, prov Provenance) (*LoginResult, error) {
	start := time.Now()
	res, outcome, err := s.login(ctx, email, password, prov)
	s.metrics.ObserveLogin(outcome, time.Since(start).Seconds())
	return res, err
}

func (s *SessionManager) login(ctx context.Context, email, password string, prov Provenance) (*LoginResult, string, error) {
	admin, err := s.store.GetAdminByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, config.ErrNotFound) {
			return nil, metrics.OutcomeError, storageFailure("look up admin", err)
		}
		// Pay for a bcrypt comparison anyway so a miss costs about the
		// same as a wrong password.
		s.hasher.Verify(password, s.dummy())
		return nil, metrics.OutcomeRejected, ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, admin.PasswordHash) {
		return nil, metrics.OutcomeRejected, ErrInvalidCredentials
	}
	if !admin.IsActive {
		return nil, metrics.OutcomeDisabled, ErrAccountDisabled
	}

	token, err := s.secrets.GenerateToken()
	if err != nil {
		return nil, metrics.OutcomeError, fmt.Errorf("generate session token: %w", err)
	}

	now := s.cfg.Now().UTC()
	session := &model.Session{
		ID:        s.secrets.GenerateID(),
		AdminID:   admin.ID,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.Lifetime),
		IPAddress: prov.IPAddress,
		UserAgent: prov.UserAgent,
		Device:    DeviceLabel(prov.UserAgent),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, metrics.OutcomeError, storageFailure("create session", err)
	}

	if err := s.store.UpdateAdminLastLogin(ctx, admin.ID, now); err != nil {
		// Don't leave a session behind that the caller never received.
		if _, delErr := s.store.DeleteSession(ctx, token); delErr != nil {
			s.logger.Warn("failed to remove session after login error", "admin_id", admin.ID, "error", delErr)
		}
		return nil, metrics.OutcomeError, storageFailure("update last login", err)
	}

	s.logger.Info("admin logged in", "admin_id", admin.ID, "session_id", session.ID, "ip", prov.IPAddress)
	return &LoginResult{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		Admin:     admin.Identity(),
	}, metrics.OutcomeSuccess, nil
}

// Verify resolves a token to the identity of its admin. Unknown and expired
// tokens both return ErrNotFound; an expired session is deleted on the way.
// A disabled account returns ErrAccountDisabled and its session is kept.
func (s *SessionManager) Verify(ctx context.Context, token string) (*model.Identity, error) {
	if token == "" {
		s.metrics.IncrementVerifications("not_found")
		return nil, ErrNotFound
	}

	row, err := s.store.GetSessionWithAdmin(ctx, token)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			s.metrics.IncrementVerifications("not_found")
			return nil, ErrNotFound
		}
		s.metrics.IncrementVerifications(metrics.OutcomeError)
		return nil, storageFailure("get session", err)
	}

	if row.Expired(s.cfg.Now()) {
		// A concurrent verify may already have removed it; that is fine.
		removed, err := s.store.DeleteSession(ctx, token)
		if err != nil {
			s.metrics.IncrementVerifications(metrics.OutcomeError)
			return nil, storageFailure("delete expired session", err)
		}
		if removed {
			s.metrics.AddSessionsExpired(1)
		}
		s.metrics.IncrementVerifications("expired")
		return nil, ErrNotFound
	}

	if !row.AdminIsActive {
		s.metrics.IncrementVerifications(metrics.OutcomeDisabled)
		return nil, ErrAccountDisabled
	}

	s.metrics.IncrementVerifications(metrics.OutcomeSuccess)
	id := row.Identity()
	return &id, nil
}

// Logout deletes the session for token. Unknown tokens are not an error.
func (s *SessionManager) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	removed, err := s.store.DeleteSession(ctx, token)
	if err != nil {
		return storageFailure("delete session", err)
	}
	if removed {
		s.metrics.AddSessionsRevoked(1)
	}
	return nil
}

// ListSessions returns an admin's unexpired sessions, newest first. Expired
// rows are skipped here and left for Verify or PurgeExpired to delete.
func (s *SessionManager) ListSessions(ctx context.Context, adminID string) ([]model.Session, error) {
	all, err := s.store.ListSessionsByAdmin(ctx, adminID)
	if err != nil {
		return nil, storageFailure("list sessions", err)
	}
	now := s.cfg.Now()
	active := make([]model.Session, 0, len(all))
	for _, sess := range all {
		if !sess.Expired(now) {
			active = append(active, sess)
		}
	}
	return active, nil
}

// RevokeAll deletes every session of an admin and returns how many there were.
func (s *SessionManager) RevokeAll(ctx context.Context, adminID string) (int64, error) {
	n, err := s.store.DeleteSessionsByAdmin(ctx, adminID)
	if err != nil {
		return 0, storageFailure("revoke sessions", err)
	}
	s.metrics.AddSessionsRevoked(n)
	s.logger.Info("admin sessions revoked", "admin_id", adminID, "count", n)
	return n, nil
}

// PurgeExpired deletes every expired session. Verify already removes expired
// sessions it touches; this clears the ones nobody presents again.
func (s *SessionManager) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpiredSessions(ctx, s.cfg.Now())
	if err != nil {
		return 0, storageFailure("purge expired sessions", err)
	}
	s.metrics.AddSessionsExpired(n)
	return n, nil
}

// Lifetime returns the configured session lifetime.
func (s *SessionManager) Lifetime() time.Duration {
	return s.cfg.Lifetime
}

// dummy returns a hash of the same cost as real ones, computed once.
func (s *SessionManager) dummy() string {
	s.dummyOnce.Do(func() {
		filler, err := s.secrets.GenerateToken()
		if err != nil {
			filler = "t2t-admin-unused-password"
		}
		hash, err := s.hasher.Hash(filler)
		if err != nil {
			s.logger.Error("failed to compute dummy password hash", "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// DeviceLabel turns a User-Agent header into a short label such as
// "Chrome on Linux".
func DeviceLabel(userAgent string) string {
	if userAgent == "" {
		return "Unknown Device"
	}

	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	os := ua.OS()

	if ua.Mobile() {
		if platform := ua.Platform(); platform != "" {
			return strings.TrimSpace(browser + " on " + platform)
		}
	}
	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(browser + " on " + os)
}
