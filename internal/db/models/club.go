// Package models - club.go defines the Club model, a campus community with an
// optional passcode gate controlling admission.
package models

import "time"

// Club represents a campus club
type Club struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	// PasscodeHash is the bcrypt hash of the club passcode. Nil (or empty)
	// means the club is public and anyone can join directly.
	PasscodeHash *string   `json:"-"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsGated returns true if joining this club requires a passcode (or an
// approved join request / invite token).
func (c *Club) IsGated() bool {
	return c.PasscodeHash != nil && *c.PasscodeHash != ""
}
