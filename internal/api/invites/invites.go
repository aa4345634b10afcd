// Package invites implements handlers for minting, listing, revoking, and
// redeeming club invite tokens.
package invites

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campus5/club-service/internal/admission"
	"github.com/campus5/club-service/internal/db/repositories"
	"github.com/campus5/club-service/internal/middleware"
)

// Handlers handles invite token endpoints
type Handlers struct {
	inviteRepo     *repositories.InviteTokenRepository
	membershipRepo *repositories.MembershipRepository
	controller     *admission.Controller
}

// NewHandlers creates a new invite Handlers instance
func NewHandlers(
	inviteRepo *repositories.InviteTokenRepository,
	membershipRepo *repositories.MembershipRepository,
	controller *admission.Controller,
) *Handlers {
	return &Handlers{
		inviteRepo:     inviteRepo,
		membershipRepo: membershipRepo,
		controller:     controller,
	}
}

// createInviteRequest is the body for POST /v1/clubs/:id/invites
type createInviteRequest struct {
	// Role granted on redemption; defaults to member
	Role string `json:"role"`
	// MaxUses of 0 means unlimited redemptions
	MaxUses int `json:"max_uses"`
	// ExpiresAt, when set, must be in the future
	ExpiresAt *time.Time `json:"expires_at"`
}

// CreateInviteHandler mints an invite token for a club. Restricted to owners
// and officers.
// POST /v1/clubs/:id/invites
func (h *Handlers) CreateInviteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clubID := c.Param("id")
		userID := middleware.GetUserID(c)

		if !h.requireReviewer(c, clubID) {
			return
		}

		var req createInviteRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
				return
			}
		}

		token, err := h.controller.CreateInvite(c.Request.Context(), clubID, userID, req.Role, req.MaxUses, req.ExpiresAt)
		if err != nil {
			writeAdmissionError(c, err)
			return
		}

		c.Set("club_id", clubID)
		c.JSON(http.StatusCreated, gin.H{"invite": token})
	}
}

// ListInvitesHandler lists a club's invite tokens. Restricted to owners and
// officers.
// GET /v1/clubs/:id/invites
func (h *Handlers) ListInvitesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clubID := c.Param("id")

		if !h.requireReviewer(c, clubID) {
			return
		}

		tokens, err := h.inviteRepo.ListByClub(c.Request.Context(), clubID)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to list invites"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"invites": tokens})
	}
}

// RevokeInviteHandler deletes an invite token. Restricted to owners and
// officers of the club the token belongs to.
// DELETE /v1/clubs/:id/invites/:token
func (h *Handlers) RevokeInviteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clubID := c.Param("id")
		tokenID := c.Param("token")

		if !h.requireReviewer(c, clubID) {
			return
		}

		token, err := h.inviteRepo.Get(c.Request.Context(), tokenID)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to retrieve invite"})
			return
		}
		if token == nil || token.ClubID != clubID {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invite not found"})
			return
		}

		if err := h.inviteRepo.Delete(c.Request.Context(), tokenID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Invite not found"})
				return
			}
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to revoke invite"})
			return
		}

		c.Set("club_id", clubID)
		c.JSON(http.StatusOK, gin.H{"revoked": true})
	}
}

// RedeemInviteHandler redeems an invite token for the caller
// POST /v1/invites/:token/redeem
func (h *Handlers) RedeemInviteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenID := c.Param("token")
		userID := middleware.GetUserID(c)

		decision, err := h.controller.RedeemInvite(c.Request.Context(), tokenID, userID)
		if err != nil {
			writeAdmissionError(c, err)
			return
		}

		if decision.Membership != nil {
			c.Set("club_id", decision.Membership.ClubID)
		}
		c.Set("admission_outcome", string(decision.Outcome))
		c.JSON(statusForOutcome(decision.Outcome), decision)
	}
}

// requireReviewer aborts with 403/503 unless the caller is an owner or
// officer of the club. Returns true when the request may proceed.
func (h *Handlers) requireReviewer(c *gin.Context, clubID string) bool {
	userID := middleware.GetUserID(c)

	m, err := h.membershipRepo.Get(c.Request.Context(), clubID, userID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to check membership"})
		return false
	}
	if m == nil || !m.CanReview() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Requires owner or officer role"})
		return false
	}
	return true
}

func statusForOutcome(o admission.Outcome) int {
	switch o {
	case admission.OutcomeJoined, admission.OutcomeAlreadyMember:
		return http.StatusOK
	case admission.OutcomeInvalid:
		return http.StatusNotFound
	case admission.OutcomeExpired, admission.OutcomeExhausted:
		return http.StatusGone
	default:
		return http.StatusOK
	}
}

// writeAdmissionError maps controller errors to HTTP responses: validation
// errors to 400, invariant violations to 500, and storage failures to 503.
func writeAdmissionError(c *gin.Context, err error) {
	var vErr *admission.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
		return
	}
	var iErr *admission.InvariantViolation
	if errors.As(err, &iErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": iErr.Error()})
		return
	}
	if errors.Is(err, repositories.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Club not found"})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage temporarily unavailable"})
}
