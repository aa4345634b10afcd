// Package models - join_request.go defines the JoinRequest model for pending
// admissions awaiting an owner/officer decision.
package models

import "time"

// JoinRequestStatus is the lifecycle state of a join request. The status is
// monotonic: pending → accepted | declined | expired, never back.
type JoinRequestStatus string

const (
	JoinRequestPending  JoinRequestStatus = "pending"
	JoinRequestAccepted JoinRequestStatus = "accepted"
	JoinRequestDeclined JoinRequestStatus = "declined"
	JoinRequestExpired  JoinRequestStatus = "expired"
)

// JoinRequest represents a pending admission created when a passcode-gated
// join exhausts its attempt budget. At most one pending row exists per
// (club_id, user_id) pair, enforced by a partial unique index.
type JoinRequest struct {
	ID         string            `json:"id" db:"id"`
	ClubID     string            `json:"club_id" db:"club_id"`
	UserID     string            `json:"user_id" db:"user_id"`
	Status     JoinRequestStatus `json:"status" db:"status"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
	ResolvedAt *time.Time        `json:"resolved_at,omitempty" db:"resolved_at"`
}

// IsTerminal returns true once the request has been resolved or expired.
func (r *JoinRequest) IsTerminal() bool {
	return r.Status != JoinRequestPending
}
