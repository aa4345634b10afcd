// Package models - membership.go defines models for user-to-club membership,
// including the role granted on admission and enriched views joining club and
// user details for display.
package models

import "time"

// Membership roles, ordered by privilege. The owner role is assigned to the
// club creator; officers can review join requests and mint invite tokens.
const (
	RoleMember  = "member"
	RoleOfficer = "officer"
	RoleOwner   = "owner"
)

// ValidRole reports whether role is one of the known membership roles.
func ValidRole(role string) bool {
	return role == RoleMember || role == RoleOfficer || role == RoleOwner
}

// Membership represents a confirmed (user, club) relationship. There is at
// most one row per (club_id, user_id) pair, enforced by the primary key.
type Membership struct {
	ClubID    string    `json:"club_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// MembershipWithUser includes user details for member listings
type MembershipWithUser struct {
	ClubID    string    `json:"club_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UserName  string    `json:"user_name"`
	UserEmail string    `json:"user_email"`
}

// UserMembership includes club details for a user's membership list
type UserMembership struct {
	ClubID    string    `json:"club_id"`
	ClubName  string    `json:"club_name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// CanReview reports whether a member with this role may resolve join requests
// and create invite tokens for the club.
func (m *Membership) CanReview() bool {
	return m.Role == RoleOfficer || m.Role == RoleOwner
}
