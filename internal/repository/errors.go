package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicate is returned when a unique key already exists.
var ErrDuplicate = errors.New("duplicate record")

// ErrNotFound aliases pgx.ErrNoRows so every store implementation reports misses the same way.
var ErrNotFound = pgx.ErrNoRows

// StaleWriteError reports a conditional write whose expected previous value no longer matched.
type StaleWriteError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *StaleWriteError) Error() string {
	return fmt.Sprintf("stale write on %s: expected %q, found %q", e.Field, e.Expected, e.Actual)
}

func translateUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// NullableString renders an optional value for StaleWriteError and audit entries.
func NullableString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
