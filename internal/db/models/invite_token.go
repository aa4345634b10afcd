// Package models - invite_token.go defines the InviteToken model, a redeemable
// credential granting a role in a club subject to usage and expiry limits.
package models

import "time"

// InviteToken represents an opaque invite credential. MaxUses of 0 means
// unlimited redemptions; Uses increments exactly once per successful
// redemption via a conditional update so the counter never exceeds MaxUses.
type InviteToken struct {
	Token     string     `json:"token" db:"token"`
	ClubID    string     `json:"club_id" db:"club_id"`
	Role      string     `json:"role" db:"role"`
	MaxUses   int        `json:"max_uses" db:"max_uses"`
	Uses      int        `json:"uses" db:"uses"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedBy string     `json:"created_by" db:"created_by"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// IsExpired returns true if the token has an expiry in the past.
func (t *InviteToken) IsExpired() bool {
	return t.ExpiresAt != nil && time.Now().After(*t.ExpiresAt)
}

// IsExhausted returns true if the token has no remaining uses.
func (t *InviteToken) IsExhausted() bool {
	if t.MaxUses == 0 {
		return false // unlimited
	}
	return t.Uses >= t.MaxUses
}
