package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultYAMLConfigValidates(t *testing.T) {
	if err := DefaultYAMLConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestWriteAndLoadDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t2t.yaml")
	if err := WriteDefaultConfig(path); err != nil {
		t.Fatalf("WriteDefaultConfig: %v", err)
	}

	cfg, err := LoadYAMLConfig(path)
	if err != nil {
		t.Fatalf("LoadYAMLConfig: %v", err)
	}
	if cfg.Server.Port != 5002 {
		t.Errorf("Server.Port = %d, want 5002", cfg.Server.Port)
	}
	if cfg.Auth.SessionTTL != "24h" {
		t.Errorf("Auth.SessionTTL = %q, want %q", cfg.Auth.SessionTTL, "24h")
	}
	if cfg.Auth.SkipAuth {
		t.Error("SkipAuth must default to false")
	}
}

func TestLoadYAMLConfigExpandsEnv(t *testing.T) {
	t.Setenv("T2T_TEST_DSN", "postgres://u:p@db/t2t")
	path := filepath.Join(t.TempDir(), "t2t.yaml")
	content := "store:\n  driver: postgres\n  dsn: ${T2T_TEST_DSN}\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadYAMLConfig(path)
	if err != nil {
		t.Fatalf("LoadYAMLConfig: %v", err)
	}
	if cfg.Store.DSN != "postgres://u:p@db/t2t" {
		t.Errorf("Store.DSN = %q", cfg.Store.DSN)
	}
	// Unset keys keep their defaults.
	if cfg.Auth.BcryptCost != 12 {
		t.Errorf("Auth.BcryptCost = %d, want 12", cfg.Auth.BcryptCost)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestYAMLConfigValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*YAMLConfig)
		want   string
	}{
		{"bad ttl", func(c *YAMLConfig) { c.Auth.SessionTTL = "soon" }, "session_ttl"},
		{"negative ttl", func(c *YAMLConfig) { c.Auth.SessionTTL = "-1h" }, "positive"},
		{"weak cost", func(c *YAMLConfig) { c.Auth.BcryptCost = 10 }, "bcrypt_cost"},
		{"short password", func(c *YAMLConfig) { c.Auth.PasswordLength = 3 }, "password_length"},
		{"unknown driver", func(c *YAMLConfig) { c.Store.Driver = "oracle" }, "store.driver"},
		{"postgres without dsn", func(c *YAMLConfig) { c.Store.Driver = DriverPostgres }, "store.dsn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultYAMLConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
