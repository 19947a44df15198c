package config

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a requested resource does not exist in the store.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert would violate a uniqueness
// constraint (duplicate admin email, duplicate session token).
var ErrConflict = errors.New("conflict")

// isUniqueViolation recognises unique-constraint failures from every
// supported driver.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	// modernc.org/sqlite: "constraint failed: UNIQUE constraint failed: admins.email"
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
