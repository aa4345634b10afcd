// Package models - user.go defines the User model for campus accounts.
// Identity is established by the auth collaborator (campus SSO issuing JWTs);
// this service mirrors only the profile fields it displays.
package models

import "time"

// User represents a user in the system
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
