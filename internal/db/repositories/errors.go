// errors.go defines the sentinel errors repositories return for expected
// storage conditions, so callers can branch on them without inspecting
// driver-specific error codes.
package repositories

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrDuplicate is returned when an insert hits a uniqueness constraint.
	// Callers treat this as an idempotent outcome (already a member, already
	// requested), never as a failure.
	ErrDuplicate = errors.New("row already exists")

	// ErrNotFound is returned when the referenced row does not exist.
	ErrNotFound = errors.New("row not found")

	// ErrInviteExpired is returned when redeeming a token past its expiry.
	ErrInviteExpired = errors.New("invite token expired")

	// ErrInviteExhausted is returned when a token has no remaining uses,
	// including when a concurrent redemption claims the last use first.
	ErrInviteExhausted = errors.New("invite token exhausted")
)

// uniqueViolation in the PostgreSQL error code table.
const pqUniqueViolation = "23505"

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation. The insert-then-translate pattern relies on the database
// constraint for concurrency safety rather than a check-then-insert pair,
// which would race between callers.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
