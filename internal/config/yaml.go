package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the top-level t2t.yaml configuration file. Viper
// reads the same file at runtime; this type is used to write defaults and to
// validate a file before it is deployed.
type YAMLConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreYAML     `yaml:"store"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"log"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string     `yaml:"host"`
	Port            int        `yaml:"port"`
	ShutdownTimeout string     `yaml:"shutdown_timeout"`
	CORS            CORSConfig `yaml:"cors"`

	// BaseURL is advertised in /openapi.json. Empty derives it per request.
	BaseURL string `yaml:"base_url,omitempty"`
}

// CORSConfig controls cross-origin resource sharing settings.
type CORSConfig struct {
	Origins []string `yaml:"origins"`
}

// StoreYAML selects the credential store.
type StoreYAML struct {
	Driver  string `yaml:"driver"`
	DSN     string `yaml:"dsn"`
	DataDir string `yaml:"data_dir"`
}

// AuthConfig controls authentication settings.
type AuthConfig struct {
	SessionTTL            string `yaml:"session_ttl"`
	BcryptCost            int    `yaml:"bcrypt_cost"`
	PasswordLength        int    `yaml:"password_length"`
	RevokeSessionsOnReset bool   `yaml:"revoke_sessions_on_reset"`

	// SkipAuth disables the authentication gate. Never enable in production.
	SkipAuth bool `yaml:"skip_auth"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadYAMLConfig reads and parses a YAML configuration file. Environment
// variables referenced as ${VAR_NAME} in the file are expanded before parsing.
func LoadYAMLConfig(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables: ${VAR_NAME}
	content := os.ExpandEnv(string(data))

	cfg := DefaultYAMLConfig()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise only fail at serve time.
func (c *YAMLConfig) Validate() error {
	if _, err := time.ParseDuration(c.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("server.shutdown_timeout: %w", err)
	}
	ttl, err := time.ParseDuration(c.Auth.SessionTTL)
	if err != nil {
		return fmt.Errorf("auth.session_ttl: %w", err)
	}
	if ttl <= 0 {
		return fmt.Errorf("auth.session_ttl must be positive, got %s", ttl)
	}
	if c.Auth.BcryptCost < 12 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost must be between 12 and 31, got %d", c.Auth.BcryptCost)
	}
	// bcrypt only looks at the first 72 bytes.
	if c.Auth.PasswordLength < 4 || c.Auth.PasswordLength > 72 {
		return fmt.Errorf("auth.password_length must be between 4 and 72, got %d", c.Auth.PasswordLength)
	}
	if _, ok := dialects[c.Store.Driver]; !ok {
		return fmt.Errorf("store.driver: unsupported driver %q", c.Store.Driver)
	}
	if c.Store.Driver != DriverSQLite && c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required for driver %s", c.Store.Driver)
	}
	return nil
}

// DefaultYAMLConfig returns a YAMLConfig pre-filled with sensible defaults.
func DefaultYAMLConfig() *YAMLConfig {
	return &YAMLConfig{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5002,
			ShutdownTimeout: "30s",
			CORS: CORSConfig{
				Origins: []string{"*"},
			},
		},
		Store: StoreYAML{
			Driver: DriverSQLite,
		},
		Auth: AuthConfig{
			SessionTTL:     "24h",
			BcryptCost:     12,
			PasswordLength: 24,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// WriteDefaultConfig writes the default configuration to a YAML file.
func WriteDefaultConfig(path string) error {
	cfg := DefaultYAMLConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
