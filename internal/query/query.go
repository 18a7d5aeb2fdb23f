// Package query runs parameterized statements against the connection pool
// without blocking the submitting goroutine.
package query

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Statement is a named, parameterized SQL statement.
// Placeholders are positional ($1, $2, ...).
type Statement struct {
	Name string
	SQL  string
}

// Row is one result row. Columns are accessed by position.
type Row []any

// String returns the text column at position i.
// A missing column or a non-text value is a programming error and panics.
func (r Row) String(i int) string {
	r.check(i)
	switch v := r[i].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		panic(&ProgrammingError{Column: i, Reason: fmt.Sprintf("expected text, got %T", v)})
	}
}

// Bool returns the boolean column at position i.
func (r Row) Bool(i int) bool {
	r.check(i)
	v, ok := r[i].(bool)
	if !ok {
		panic(&ProgrammingError{Column: i, Reason: fmt.Sprintf("expected bool, got %T", r[i])})
	}
	return v
}

func (r Row) check(i int) {
	if i < 0 || i >= len(r) {
		panic(&ProgrammingError{Column: i, Reason: fmt.Sprintf("row has %d columns", len(r))})
	}
}

// ProgrammingError reports a row whose shape does not match what the caller
// mapped. It is raised with panic and never returned.
type ProgrammingError struct {
	Column int
	Reason string
}

func (e *ProgrammingError) Error() string {
	return fmt.Sprintf("malformed row at column %d: %s", e.Column, e.Reason)
}

// Error is a failed statement: connection failure, parameter mismatch or a
// constraint violation.
type Error struct {
	Statement string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("statement %s failed: %v", e.Statement, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsUniqueViolation reports whether err carries a unique_violation from
// PostgreSQL.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
