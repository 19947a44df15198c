package config

import (
	"fmt"
	"strings"
)

func (s *Store) migrate() error {
	d := s.dialect

	migrations := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS admins (
			id %[1]s PRIMARY KEY,
			email %[2]s UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			display_name %[2]s NOT NULL DEFAULT '',
			is_active %[3]s NOT NULL DEFAULT TRUE,
			last_login_at %[4]s NULL,
			created_at %[4]s NOT NULL,
			updated_at %[4]s NOT NULL
		)`, d.keyType, d.shortText, d.boolType, d.timeType),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS admin_sessions (
			id %[1]s PRIMARY KEY,
			admin_id %[1]s NOT NULL,
			token %[2]s UNIQUE NOT NULL,
			expires_at %[3]s NOT NULL,
			created_at %[3]s NOT NULL,
			ip_address %[2]s NOT NULL,
			user_agent TEXT NOT NULL,
			device %[2]s NOT NULL,
			FOREIGN KEY (admin_id) REFERENCES admins(id)
		)`, d.keyType, d.shortText, d.timeType),

		d.createIndex("idx_admin_sessions_admin_id", "admin_sessions", "admin_id"),
		d.createIndex("idx_admin_sessions_expires_at", "admin_sessions", "expires_at"),
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// MySQL has no CREATE INDEX IF NOT EXISTS; an existing index
			// reports "Duplicate key name" and is a no-op on re-run.
			if strings.Contains(err.Error(), "Duplicate key name") {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

func (d dialect) createIndex(name, table, column string) string {
	if d.name == DriverMySQL {
		return fmt.Sprintf("CREATE INDEX %s ON %s(%s)", name, table, column)
	}
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", name, table, column)
}
