package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/text2trait/t2t/internal/config"
	"github.com/text2trait/t2t/internal/metrics"
	"github.com/text2trait/t2t/internal/model"
)

// DefaultPasswordLength is the length of provisioned and reset passwords.
const DefaultPasswordLength = 24

// CredentialConfig tunes the CredentialManager.
type CredentialConfig struct {
	PasswordLength int // DefaultPasswordLength when zero

	// RevokeSessionsOnReset deletes every session of an account whose
	// password is reset. Off by default: outstanding sessions survive.
	RevokeSessionsOnReset bool
}

// CredentialManager creates and resets admin accounts. It is driven by
// operator tooling, so its errors name the account they concern.
type CredentialManager struct {
	store    Store
	hasher   *PasswordHasher
	secrets  *SecretGenerator
	validate *validator.Validate
	cfg      CredentialConfig
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewCredentialManager(store Store, hasher *PasswordHasher, secrets *SecretGenerator, cfg CredentialConfig, m *metrics.Metrics, logger *slog.Logger) *CredentialManager {
	if cfg.PasswordLength == 0 {
		cfg.PasswordLength = DefaultPasswordLength
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialManager{
		store:    store,
		hasher:   hasher,
		secrets:  secrets,
		validate: newValidator(),
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
	}
}

// newValidator registers login_email: one "@" with something on both sides
// and no whitespace or control characters. Addresses are opaque login names,
// so internal hosts such as admin@localhost are accepted.
func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("login_email", isLoginEmail); err != nil {
		panic(err)
	}
	return v
}

func isLoginEmail(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	local, domain, ok := strings.Cut(s, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return false
	}
	return !strings.ContainsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	})
}

// ProvisionAccount creates an active admin with a freshly generated password
// and returns that password. It is the only time the plaintext is available.
// An existing account with the same email yields ErrAlreadyExists; use
// ResetPassword instead.
func (m *CredentialManager) ProvisionAccount(ctx context.Context, email, displayName string) (*model.Admin, string, error) {
	if err := m.validate.Var(email, "required,login_email"); err != nil {
		return nil, "", fmt.Errorf("%w: %q is not a valid email address", ErrInvalidParameter, email)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = email[:strings.LastIndex(email, "@")]
	}

	_, err := m.store.GetAdminByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, "", fmt.Errorf("%w: admin %s", ErrAlreadyExists, email)
	case !errors.Is(err, config.ErrNotFound):
		return nil, "", storageFailure("look up admin", err)
	}

	password, hash, err := m.newPassword()
	if err != nil {
		return nil, "", err
	}

	admin := &model.Admin{
		ID:           m.secrets.GenerateID(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
		IsActive:     true,
	}
	if err := m.store.CreateAdmin(ctx, admin); err != nil {
		if errors.Is(err, config.ErrConflict) {
			// Lost a race with another provisioning call.
			return nil, "", fmt.Errorf("%w: admin %s", ErrAlreadyExists, email)
		}
		return nil, "", storageFailure("create admin", err)
	}

	m.metrics.IncrementAccountsCreated()
	m.logger.Info("admin account provisioned", "admin_id", admin.ID, "email", admin.Email)
	return admin, password, nil
}

// ResetPassword replaces an account's password with a generated one and
// returns it. Sessions are revoked only when RevokeSessionsOnReset is set.
func (m *CredentialManager) ResetPassword(ctx context.Context, email string) (*model.Admin, string, error) {
	admin, err := m.lookup(ctx, email)
	if err != nil {
		return nil, "", err
	}

	password, hash, err := m.newPassword()
	if err != nil {
		return nil, "", err
	}

	// Revoke before overwriting the hash: if revocation fails the old
	// password still works and the reset can simply be retried.
	revoked := int64(0)
	if m.cfg.RevokeSessionsOnReset {
		revoked, err = m.store.DeleteSessionsByAdmin(ctx, admin.ID)
		if err != nil {
			return nil, "", storageFailure("revoke sessions", err)
		}
		m.metrics.AddSessionsRevoked(revoked)
	}

	if err := m.store.UpdateAdminPassword(ctx, admin.ID, hash); err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: admin %s", ErrNotFound, email)
		}
		return nil, "", storageFailure("update admin password", err)
	}
	admin.PasswordHash = hash
	m.metrics.IncrementPasswordResets()

	m.logger.Info("admin password reset", "admin_id", admin.ID, "email", admin.Email, "sessions_revoked", revoked)
	return admin, password, nil
}

// SetActive enables or disables an account. Sessions are left in place:
// they stop authenticating while the account is disabled and resume when it
// is enabled again.
func (m *CredentialManager) SetActive(ctx context.Context, email string, active bool) (*model.Admin, error) {
	admin, err := m.lookup(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := m.store.SetAdminActive(ctx, admin.ID, active); err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, fmt.Errorf("%w: admin %s", ErrNotFound, email)
		}
		return nil, storageFailure("set admin active", err)
	}
	admin.IsActive = active
	m.logger.Info("admin active flag changed", "admin_id", admin.ID, "email", admin.Email, "active", active)
	return admin, nil
}

// ListAccounts returns every admin account ordered by email.
func (m *CredentialManager) ListAccounts(ctx context.Context) ([]model.Admin, error) {
	admins, err := m.store.ListAdmins(ctx)
	if err != nil {
		return nil, storageFailure("list admins", err)
	}
	return admins, nil
}

// Lookup returns the account registered under email.
func (m *CredentialManager) Lookup(ctx context.Context, email string) (*model.Admin, error) {
	return m.lookup(ctx, email)
}

func (m *CredentialManager) lookup(ctx context.Context, email string) (*model.Admin, error) {
	admin, err := m.store.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, fmt.Errorf("%w: admin %s", ErrNotFound, email)
		}
		return nil, storageFailure("look up admin", err)
	}
	return admin, nil
}

func (m *CredentialManager) newPassword() (password, hash string, err error) {
	password, err = m.secrets.GeneratePassword(m.cfg.PasswordLength)
	if err != nil {
		return "", "", err
	}
	hash, err = m.hasher.Hash(password)
	if err != nil {
		return "", "", err
	}
	return password, hash, nil
}
