package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Supported values for StoreConfig.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// StoreConfig selects the durable store holding admin accounts and sessions.
type StoreConfig struct {
	Driver string // sqlite (default), postgres or mysql
	DSN    string // connection string; for sqlite a file path

	// DataDir is used by sqlite when DSN is empty: the database lives at
	// DataDir/t2t.db. Both empty means an in-memory database.
	DataDir string
}

// Store persists admin accounts and their sessions. Every method is a single
// statement against the database, so a Store is safe for concurrent use.
type Store struct {
	db      *sqlx.DB
	dialect dialect
}

// NewStore opens a SQLite store in dataDir. Pass empty string for in-memory.
func NewStore(dataDir string) (*Store, error) {
	return Open(StoreConfig{Driver: DriverSQLite, DataDir: dataDir})
}

// Open connects to the configured database and applies migrations.
func Open(cfg StoreConfig) (*Store, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverSQLite
	}
	d, ok := dialects[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("unsupported store driver %q (want sqlite, postgres or mysql)", cfg.Driver)
	}

	dsn, err := d.dsn(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect(d.sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", d.name, err)
	}

	if d.name == DriverSQLite {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

		// Enable foreign keys (off by default in SQLite).
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	s := &Store{db: db, dialect: d}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Driver returns the store driver name (sqlite, postgres or mysql).
func (s *Store) Driver() string {
	return s.dialect.name
}

// dialect captures the handful of DDL differences between the supported
// databases. Query placeholders are handled by sqlx.Rebind.
type dialect struct {
	name      string
	sqlDriver string
	keyType   string // UUID primary and foreign keys
	shortText string // unique, indexed text (email, token)
	boolType  string
	timeType  string
}

var dialects = map[string]dialect{
	DriverSQLite:   {name: DriverSQLite, sqlDriver: "sqlite", keyType: "TEXT", shortText: "TEXT", boolType: "INTEGER", timeType: "DATETIME"},
	DriverPostgres: {name: DriverPostgres, sqlDriver: "pgx", keyType: "TEXT", shortText: "TEXT", boolType: "BOOLEAN", timeType: "TIMESTAMPTZ"},
	DriverMySQL:    {name: DriverMySQL, sqlDriver: "mysql", keyType: "VARCHAR(36)", shortText: "VARCHAR(255)", boolType: "BOOLEAN", timeType: "DATETIME(6)"},
}

// sqliteTimeFormat stores timestamps as "2006-01-02 15:04:05.999999999-07:00"
// so that expires_at compares correctly as text.
const sqliteTimeFormat = "&_time_format=sqlite"

func (d dialect) dsn(cfg StoreConfig) (string, error) {
	switch d.name {
	case DriverSQLite:
		if cfg.DSN != "" {
			return cfg.DSN + "?_journal_mode=WAL&_busy_timeout=5000" + sqliteTimeFormat, nil
		}
		if cfg.DataDir == "" {
			return ":memory:?_journal_mode=WAL" + sqliteTimeFormat, nil
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return "", fmt.Errorf("create data dir: %w", err)
		}
		return filepath.Join(cfg.DataDir, "t2t.db") + "?_journal_mode=WAL&_busy_timeout=5000" + sqliteTimeFormat, nil

	case DriverMySQL:
		if cfg.DSN == "" {
			return "", fmt.Errorf("store driver mysql requires a dsn")
		}
		// Timestamps are scanned into time.Time and compared in UTC.
		mc, err := mysql.ParseDSN(cfg.DSN)
		if err != nil {
			return "", fmt.Errorf("parse mysql dsn: %w", err)
		}
		mc.ParseTime = true
		mc.Loc = time.UTC
		return mc.FormatDSN(), nil

	default:
		if cfg.DSN == "" {
			return "", fmt.Errorf("store driver %s requires a dsn", d.name)
		}
		return cfg.DSN, nil
	}
}
