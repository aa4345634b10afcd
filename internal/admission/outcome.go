// Package admission implements the club admission state machine: open joins,
// passcode-gated joins with a bounded attempt budget, pending join requests,
// and invite token redemption. Every admission path funnels through the
// Controller so membership rows are only ever created in one place.
package admission

import (
	"github.com/campus5/club-service/internal/db/models"
)

// Outcome is the terminal state of an admission operation. Outcomes are
// return values, never errors: a wrong passcode or a dead token is a routine
// user-facing condition, not a failure.
type Outcome string

const (
	// OutcomeJoined means a membership row was created by this call
	OutcomeJoined Outcome = "joined"

	// OutcomePending means the attempt budget ran out and a join request
	// now waits for a reviewer
	OutcomePending Outcome = "pending"

	// OutcomeAlreadyMember means a membership already existed; no side effect
	OutcomeAlreadyMember Outcome = "already_member"

	// OutcomeAlreadyRequested means a pending join request already existed
	OutcomeAlreadyRequested Outcome = "already_requested"

	// OutcomeRejected means the supplied passcode was wrong but attempts remain
	OutcomeRejected Outcome = "rejected"

	// OutcomeCodeRequired means the club is gated and no passcode was supplied;
	// the caller should prompt and call again
	OutcomeCodeRequired Outcome = "code_required"

	// OutcomeExpired means the invite token's expiry has passed
	OutcomeExpired Outcome = "expired"

	// OutcomeExhausted means the invite token's usage quota is spent
	OutcomeExhausted Outcome = "exhausted"

	// OutcomeInvalid means the club or token does not exist
	OutcomeInvalid Outcome = "invalid"
)

// Decision is the result of an admission operation.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	Detail  string  `json:"detail,omitempty"`

	// AttemptsRemaining is set on rejected and code_required outcomes
	AttemptsRemaining int `json:"attempts_remaining,omitempty"`

	// RequestID is set on pending and already_requested outcomes
	RequestID string `json:"request_id,omitempty"`

	// Membership is set on joined outcomes
	Membership *models.Membership `json:"membership,omitempty"`
}

func decide(outcome Outcome, detail string) *Decision {
	return &Decision{Outcome: outcome, Detail: detail}
}
