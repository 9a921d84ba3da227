package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// UniqueConstraint names a unique key the way each driver reports it.
// Postgres returns the constraint name; sqlite only prints "table.column".
type UniqueConstraint struct {
	Name   string
	Target string
}

// Matches reports whether err is a unique violation on this constraint.
func (c UniqueConstraint) Matches(err error) bool {
	pgErr, ok := uniqueViolation(err)
	if !ok {
		return false
	}
	if pgErr != nil {
		return c.Name != "" && pgErr.ConstraintName == c.Name
	}
	msg := err.Error()
	return (c.Name != "" && strings.Contains(msg, c.Name)) ||
		(c.Target != "" && strings.Contains(msg, c.Target))
}

// IsUniqueViolation reports whether err is a unique constraint failure on
// Postgres or SQLite. A non-empty hint must also appear in the constraint
// name or the error text.
func IsUniqueViolation(err error, hint string) bool {
	pgErr, ok := uniqueViolation(err)
	if !ok {
		return false
	}
	if hint == "" {
		return true
	}
	if pgErr != nil && pgErr.ConstraintName == hint {
		return true
	}
	return strings.Contains(err.Error(), hint)
}

func uniqueViolation(err error) (*pgconn.PgError, bool) {
	if err == nil {
		return nil, false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, pgErr.Code == pgUniqueViolation
	}
	msg := err.Error()
	return nil, strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}
