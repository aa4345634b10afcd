package admission

import (
	"context"
	"fmt"

	"github.com/campus5/club-service/internal/crypto"
)

// DefaultAttemptBudget is the number of passcode attempts allowed per join
// session before the flow falls through to a pending join request.
const DefaultAttemptBudget = 3

// AttemptStore tracks wrong-passcode attempts for a join session. Sessions
// are keyed by (user, club) and expire on their own, so an abandoned join
// flow leaves nothing behind and a fresh attempt later gets a fresh budget.
type AttemptStore interface {
	// Bump records a failed attempt and returns the total for the session
	Bump(ctx context.Context, key string) (int, error)

	// Clear ends the session (successful match or budget exhaustion)
	Clear(ctx context.Context, key string) error
}

// PasscodeGuard evaluates submitted passcodes against a club's stored hash
// and keeps the per-session attempt bookkeeping. The guard never writes to
// the database; exhaustion is signalled to the caller, which owns the
// resulting join request.
type PasscodeGuard struct {
	attempts AttemptStore
	budget   int
}

// NewPasscodeGuard creates a guard with the given attempt store and budget.
// A budget <= 0 falls back to DefaultAttemptBudget.
func NewPasscodeGuard(attempts AttemptStore, budget int) *PasscodeGuard {
	if budget <= 0 {
		budget = DefaultAttemptBudget
	}
	return &PasscodeGuard{attempts: attempts, budget: budget}
}

// Budget returns the attempt budget per join session
func (g *PasscodeGuard) Budget() int {
	return g.budget
}

func sessionKey(userID, clubID string) string {
	return fmt.Sprintf("join-attempts:%s:%s", clubID, userID)
}

// Check verifies a supplied passcode against the stored hash. On a match the
// session is cleared and matched=true is returned. On a mismatch the attempt
// counter is bumped and the remaining budget returned; remaining == 0 means
// the session is exhausted (and cleared, so the next flow starts fresh).
func (g *PasscodeGuard) Check(ctx context.Context, userID, clubID, supplied, storedHash string) (matched bool, remaining int, err error) {
	key := sessionKey(userID, clubID)

	if crypto.VerifyPasscode(supplied, storedHash) {
		if err := g.attempts.Clear(ctx, key); err != nil {
			return false, 0, fmt.Errorf("failed to clear attempt session: %w", err)
		}
		return true, 0, nil
	}

	count, err := g.attempts.Bump(ctx, key)
	if err != nil {
		return false, 0, fmt.Errorf("failed to record attempt: %w", err)
	}

	remaining = g.budget - count
	if remaining <= 0 {
		remaining = 0
		if err := g.attempts.Clear(ctx, key); err != nil {
			return false, 0, fmt.Errorf("failed to clear exhausted session: %w", err)
		}
	}

	return false, remaining, nil
}
