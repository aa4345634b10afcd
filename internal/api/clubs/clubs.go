// Package clubs implements handlers for club CRUD, member listings, the join
// workflow, and join request review.
package clubs

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campus5/club-service/internal/admission"
	"github.com/campus5/club-service/internal/crypto"
	"github.com/campus5/club-service/internal/db/models"
	"github.com/campus5/club-service/internal/db/repositories"
	"github.com/campus5/club-service/internal/middleware"
)

// Handlers handles club management and admission endpoints
type Handlers struct {
	clubRepo       *repositories.ClubRepository
	membershipRepo *repositories.MembershipRepository
	requestRepo    *repositories.JoinRequestRepository
	controller     *admission.Controller
}

// NewHandlers creates a new club Handlers instance
func NewHandlers(
	clubRepo *repositories.ClubRepository,
	membershipRepo *repositories.MembershipRepository,
	requestRepo *repositories.JoinRequestRepository,
	controller *admission.Controller,
) *Handlers {
	return &Handlers{
		clubRepo:       clubRepo,
		membershipRepo: membershipRepo,
		requestRepo:    requestRepo,
		controller:     controller,
	}
}

// createClubRequest is the body for POST /v1/clubs
type createClubRequest struct {
	Name        string `json:"name" binding:"required"`
	Category    string `json:"category"`
	Description string `json:"description"`
	// Passcode, when set, gates the club: joining requires the passcode, an
	// accepted join request, or an invite token.
	Passcode string `json:"passcode"`
}

// CreateClubHandler creates a club and makes the caller its owner
// POST /v1/clubs
func (h *Handlers) CreateClubHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createClubRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		userID := middleware.GetUserID(c)

		existing, err := h.clubRepo.GetByName(c.Request.Context(), req.Name)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to check club name"})
			return
		}
		if existing != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "A club with this name already exists"})
			return
		}

		club := &models.Club{
			Name:        req.Name,
			Category:    req.Category,
			Description: req.Description,
			CreatedBy:   userID,
		}

		if req.Passcode != "" {
			hash, err := crypto.HashPasscode(req.Passcode)
			if err != nil {
				if errors.Is(err, crypto.ErrPasscodeLength) {
					c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash passcode"})
				return
			}
			club.PasscodeHash = &hash
		}

		if err := h.clubRepo.Create(c.Request.Context(), club); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				c.JSON(http.StatusConflict, gin.H{"error": "A club with this name already exists"})
				return
			}
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to create club"})
			return
		}

		// The creator is the owner. A duplicate here can only happen on a
		// retried request, which is fine to ignore.
		owner := &models.Membership{ClubID: club.ID, UserID: userID, Role: models.RoleOwner}
		if err := h.membershipRepo.Add(c.Request.Context(), owner); err != nil && !errors.Is(err, repositories.ErrDuplicate) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to create owner membership"})
			return
		}

		c.Set("club_id", club.ID)
		c.JSON(http.StatusCreated, gin.H{"club": club})
	}
}

// ListClubsHandler lists clubs with pagination and optional category filter
// GET /v1/clubs?page=1&per_page=20&category=games
func (h *Handlers) ListClubsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

		if page < 1 {
			page = 1
		}
		if perPage < 1 || perPage > 100 {
			perPage = 20
		}

		offset := (page - 1) * perPage
		category := c.Query("category")

		clubs, err := h.clubRepo.List(c.Request.Context(), category, perPage, offset)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to list clubs"})
			return
		}

		total, err := h.clubRepo.Count(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to count clubs"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"clubs": clubs,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
				"total":    total,
			},
		})
	}
}

// GetClubHandler retrieves a specific club by ID
// GET /v1/clubs/:id
func (h *Handlers) GetClubHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clubID := c.Param("id")

		club, err := h.clubRepo.GetByID(c.Request.Context(), clubID)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to retrieve club"})
			return
		}
		if club == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Club not found"})
			return
		}

		memberCount, err := h.membershipRepo.CountByClub(c.Request.Context(), clubID)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to count members"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"club":         club,
			"member_count": memberCount,
			"gated":        club.IsGated(),
		})
	}
}

// DeleteClubHandler deletes a club. Only the club owner may delete it.
// DELETE /v1/clubs/:id
func (h *Handlers) DeleteClubHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clubID := c.Param("id")
		userID := middleware.GetUserID(c)

		m, err := h.membershipRepo.Get(c.Request.Context(), clubID, userID)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to check membership"})
			return
		}
		if m == nil || m.Role != models.RoleOwner {
			c.JSON(http.StatusForbidden, gin.H{"error": "Only the club owner can delete the club"})
			return
		}

		if err := h.clubRepo.Delete(c.Request.Context(), clubID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Club not found"})
				return
			}
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to delete club"})
			return
		}

		c.Set("club_id", clubID)
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	}
}

// ListMembersHandler retrieves all members of a club with user details
// GET /v1/clubs/:id/members
func (h *Handlers) ListMembersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clubID := c.Param("id")

		club, err := h.clubRepo.GetByID(c.Request.Context(), clubID)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to retrieve club"})
			return
		}
		if club == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Club not found"})
			return
		}

		members, err := h.membershipRepo.ListByClub(c.Request.Context(), clubID)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to list members"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"members": members})
	}
}

// joinRequestBody is the body for POST /v1/clubs/:id/join
type joinRequestBody struct {
	// Code is the club passcode. Empty on the first call; the code_required
	// outcome tells the caller to prompt and retry.
	Code string `json:"code"`
}

// JoinHandler runs one step of the admission state machine for the caller
// POST /v1/clubs/:id/join
func (h *Handlers) JoinHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clubID := c.Param("id")
		userID := middleware.GetUserID(c)

		var body joinRequestBody
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&body); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
				return
			}
		}

		decision, err := h.controller.EvaluateJoin(c.Request.Context(), userID, clubID, body.Code)
		if err != nil {
			writeAdmissionError(c, err)
			return
		}

		c.Set("club_id", clubID)
		c.Set("admission_outcome", string(decision.Outcome))
		c.JSON(statusForOutcome(decision.Outcome), decision)
	}
}

// ListRequestsHandler lists pending join requests for a club. Restricted to
// owners and officers.
// GET /v1/clubs/:id/requests
func (h *Handlers) ListRequestsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clubID := c.Param("id")

		if !h.requireReviewer(c, clubID) {
			return
		}

		requests, err := h.requestRepo.ListPendingByClub(c.Request.Context(), clubID)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to list join requests"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"requests": requests})
	}
}

// resolveRequestBody is the body for POST /v1/clubs/:id/requests/:rid/resolve
type resolveRequestBody struct {
	Decision string `json:"decision" binding:"required"`
}

// ResolveRequestHandler accepts or declines a pending join request.
// Restricted to owners and officers. Resolving an already-resolved request is
// a no-op and reports resolved=false.
// POST /v1/clubs/:id/requests/:rid/resolve
func (h *Handlers) ResolveRequestHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clubID := c.Param("id")
		requestID := c.Param("rid")

		if !h.requireReviewer(c, clubID) {
			return
		}

		var body resolveRequestBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		decision := models.JoinRequestStatus(body.Decision)
		if decision != models.JoinRequestAccepted && decision != models.JoinRequestDeclined {
			c.JSON(http.StatusBadRequest, gin.H{"error": "decision must be accepted or declined"})
			return
		}

		// The request must exist and belong to this club.
		req, err := h.requestRepo.GetByID(c.Request.Context(), requestID)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to retrieve join request"})
			return
		}
		if req == nil || req.ClubID != clubID {
			c.JSON(http.StatusNotFound, gin.H{"error": "Join request not found"})
			return
		}

		resolved, err := h.controller.ResolveRequest(c.Request.Context(), requestID, decision)
		if err != nil {
			writeAdmissionError(c, err)
			return
		}

		c.Set("club_id", clubID)
		c.JSON(http.StatusOK, gin.H{
			"resolved": resolved,
			"decision": decision,
		})
	}
}

// MyMembershipsHandler lists the caller's memberships with club details
// GET /v1/me/memberships
func (h *Handlers) MyMembershipsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)

		memberships, err := h.membershipRepo.ListByUser(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to list memberships"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"memberships": memberships})
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

// statusForOutcome maps an admission outcome to an HTTP status. The outcome
// string itself travels in the body; the status is advisory for clients that
// only look at codes.
func statusForOutcome(o admission.Outcome) int {
	switch o {
	case admission.OutcomeJoined, admission.OutcomeAlreadyMember:
		return http.StatusOK
	case admission.OutcomePending, admission.OutcomeAlreadyRequested:
		return http.StatusAccepted
	case admission.OutcomeRejected, admission.OutcomeCodeRequired:
		return http.StatusForbidden
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
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage temporarily unavailable"})
}
