// Package models - audit_log.go defines the AuditLog model for recording
// admission-relevant events, capturing actor, action, affected club, client IP,
// and arbitrary metadata.
package models

import "time"

// AuditLog represents an audit log entry for tracking admission actions
type AuditLog struct {
	ID           string                 `json:"id"`
	UserID       *string                `json:"user_id,omitempty"` // Nullable for system actions
	ClubID       *string                `json:"club_id,omitempty"`
	Action       string                 `json:"action"` // "club.join", "invite.redeem", "request.resolve"
	ResourceType *string                `json:"resource_type,omitempty"`
	ResourceID   *string                `json:"resource_id,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"` // JSONB: additional context
	IPAddress    *string                `json:"ip_address,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}
