package repository

import (
	"errors"

	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// ErrStaleState is returned when a conditional update matched no row because
// the record changed concurrently.
var ErrStaleState = errors.New("repository: record changed concurrently")

// IsUniqueViolation reports whether err is a Postgres unique violation. When
// constraint is non-empty the violated constraint name must match too.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != pqUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
