package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/text2trait/t2t/internal/config"
	"github.com/text2trait/t2t/internal/metrics"
	"github.com/text2trait/t2t/internal/service"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from --data-dir, store.data_dir
// (T2T_DATA_DIR), or ~/.t2t as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if dir := viper.GetString("store.data_dir"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".t2t")
}

// storeConfig assembles the store location. T2T_DB is the older way of
// pointing at a SQLite file and only applies when no DSN is configured.
func storeConfig() config.StoreConfig {
	cfg := config.StoreConfig{
		Driver:  viper.GetString("store.driver"),
		DSN:     viper.GetString("store.dsn"),
		DataDir: resolveDataDir(),
	}
	if cfg.DSN == "" && (cfg.Driver == "" || cfg.Driver == config.DriverSQLite) {
		cfg.DSN = os.Getenv("T2T_DB")
	}
	return cfg
}

// openStore opens the configured credential store.
func openStore() (*config.Store, error) {
	store, err := config.Open(storeConfig())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store, nil
}

// services bundles the managers every command builds from the same config.
type services struct {
	creds    *service.CredentialManager
	sessions *service.SessionManager
}

func newServices(store *config.Store, m *metrics.Metrics, logger *slog.Logger) (*services, error) {
	hasher, err := service.NewPasswordHasher(viper.GetInt("auth.bcrypt_cost"))
	if err != nil {
		return nil, fmt.Errorf("auth.bcrypt_cost: %w", err)
	}
	ttl, err := time.ParseDuration(viper.GetString("auth.session_ttl"))
	if err != nil {
		return nil, fmt.Errorf("auth.session_ttl: %w", err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("auth.session_ttl must be positive, got %s", ttl)
	}

	length := viper.GetInt("auth.password_length")
	if length < service.MinPasswordLength || length > service.MaxPasswordLength {
		return nil, fmt.Errorf("auth.password_length must be between %d and %d, got %d",
			service.MinPasswordLength, service.MaxPasswordLength, length)
	}

	secrets := service.NewSecretGenerator(nil)
	return &services{
		creds: service.NewCredentialManager(store, hasher, secrets, service.CredentialConfig{
			PasswordLength:        length,
			RevokeSessionsOnReset: viper.GetBool("auth.revoke_sessions_on_reset"),
		}, m, logger),
		sessions: service.NewSessionManager(store, hasher, secrets, service.SessionConfig{
			Lifetime: ttl,
		}, m, logger),
	}, nil
}

// newLogger builds the process logger from log.level and log.format.
func newLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log.level"))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(viper.GetString("log.format"), "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
