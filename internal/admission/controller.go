package admission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/campus5/club-service/internal/crypto"
	"github.com/campus5/club-service/internal/db/models"
	"github.com/campus5/club-service/internal/db/repositories"
	"github.com/campus5/club-service/internal/telemetry"
)

// ClubStore is the club lookup surface the controller needs.
type ClubStore interface {
	GetByID(ctx context.Context, id string) (*models.Club, error)
}

// MembershipStore is the source of truth for "is a member". Add must return
// repositories.ErrDuplicate on an existing (club, user) pair so concurrent
// joins collapse into the idempotent already_member outcome.
type MembershipStore interface {
	Add(ctx context.Context, m *models.Membership) error
	Get(ctx context.Context, clubID, userID string) (*models.Membership, error)
}

// RequestLedger is the pending join request surface. Create must return
// repositories.ErrDuplicate on an existing pending (club, user) request.
type RequestLedger interface {
	Create(ctx context.Context, req *models.JoinRequest) error
	GetPending(ctx context.Context, clubID, userID string) (*models.JoinRequest, error)
	Resolve(ctx context.Context, id string, decision models.JoinRequestStatus) (bool, error)
}

// InviteStore is the invite token surface. Redeem must be transactional:
// membership creation and the use-counter increment succeed or fail together.
type InviteStore interface {
	Create(ctx context.Context, token *models.InviteToken) error
	Get(ctx context.Context, token string) (*models.InviteToken, error)
	Redeem(ctx context.Context, token, userID string) (*models.Membership, error)
}

// Controller orchestrates the admission state machine for a (user, club)
// pair. It is the only component that creates membership rows; at most one of
// {membership, join request} is created per call, never both.
type Controller struct {
	clubs        ClubStore
	memberships  MembershipStore
	requests     RequestLedger
	invites      InviteStore
	guard        *PasscodeGuard
	invitePrefix string
}

// NewController creates an admission controller
func NewController(clubs ClubStore, memberships MembershipStore, requests RequestLedger, invites InviteStore, guard *PasscodeGuard, invitePrefix string) *Controller {
	if invitePrefix == "" {
		invitePrefix = crypto.DefaultInvitePrefix
	}
	return &Controller{
		clubs:        clubs,
		memberships:  memberships,
		requests:     requests,
		invites:      invites,
		guard:        guard,
		invitePrefix: invitePrefix,
	}
}

// EvaluateJoin runs one step of the join state machine for (userID, clubID).
// suppliedCode is empty when the caller has not been challenged yet. Expected
// conditions (wrong code, already a member, club gone) come back as outcomes;
// the error channel carries only storage failures and invariant violations.
func (c *Controller) EvaluateJoin(ctx context.Context, userID, clubID, suppliedCode string) (*Decision, error) {
	if userID == "" {
		return nil, validationErr("user_id", "must not be empty")
	}
	if clubID == "" {
		return nil, validationErr("club_id", "must not be empty")
	}

	d, err := c.evaluateJoin(ctx, userID, clubID, suppliedCode)
	if err != nil {
		return nil, err
	}

	telemetry.JoinOutcomesTotal.WithLabelValues(string(d.Outcome)).Inc()
	slog.Debug("join evaluated",
		"club_id", clubID,
		"user_id", userID,
		"outcome", d.Outcome,
	)
	return d, nil
}

func (c *Controller) evaluateJoin(ctx context.Context, userID, clubID, suppliedCode string) (*Decision, error) {
	m, err := c.memberships.Get(ctx, clubID, userID)
	if err != nil {
		return nil, err
	}
	if m != nil {
		return decide(OutcomeAlreadyMember, "you are already a member of this club"), nil
	}

	pending, err := c.requests.GetPending(ctx, clubID, userID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		d := decide(OutcomeAlreadyRequested, "your join request is waiting for review")
		d.RequestID = pending.ID
		return d, nil
	}

	club, err := c.clubs.GetByID(ctx, clubID)
	if err != nil {
		return nil, err
	}
	if club == nil {
		return decide(OutcomeInvalid, "club not found"), nil
	}

	if !club.IsGated() {
		return c.grantMembership(ctx, clubID, userID)
	}

	if err := crypto.ValidateStoredHash(*club.PasscodeHash); err != nil {
		return nil, &InvariantViolation{Message: fmt.Sprintf("club %s: %v", clubID, err)}
	}

	if suppliedCode == "" {
		d := decide(OutcomeCodeRequired, "this club requires a passcode")
		d.AttemptsRemaining = c.guard.Budget()
		return d, nil
	}

	matched, remaining, err := c.guard.Check(ctx, userID, clubID, suppliedCode, *club.PasscodeHash)
	if err != nil {
		return nil, err
	}

	if matched {
		return c.grantMembership(ctx, clubID, userID)
	}

	if remaining > 0 {
		d := decide(OutcomeRejected, "wrong passcode")
		d.AttemptsRemaining = remaining
		return d, nil
	}

	// Budget exhausted: fall through to a pending join request.
	telemetry.PasscodeExhaustionsTotal.Inc()
	req := &models.JoinRequest{ClubID: clubID, UserID: userID}
	if err := c.requests.Create(ctx, req); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			// A concurrent call won the insert; fetch its request ID.
			existing, getErr := c.requests.GetPending(ctx, clubID, userID)
			if getErr != nil {
				return nil, getErr
			}
			d := decide(OutcomeAlreadyRequested, "your join request is waiting for review")
			if existing != nil {
				d.RequestID = existing.ID
			}
			return d, nil
		}
		return nil, err
	}

	d := decide(OutcomePending, "out of attempts; your join request is waiting for review")
	d.RequestID = req.ID
	return d, nil
}

func (c *Controller) grantMembership(ctx context.Context, clubID, userID string) (*Decision, error) {
	m := &models.Membership{ClubID: clubID, UserID: userID, Role: models.RoleMember}
	if err := c.memberships.Add(ctx, m); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return decide(OutcomeAlreadyMember, "you are already a member of this club"), nil
		}
		return nil, err
	}

	d := decide(OutcomeJoined, "welcome to the club")
	d.Membership = m
	return d, nil
}

// CreateInvite generates and stores a new invite token for a club.
// maxUses=0 means unlimited; expiresAt=nil means no expiry.
func (c *Controller) CreateInvite(ctx context.Context, clubID, creatorID, role string, maxUses int, expiresAt *time.Time) (*models.InviteToken, error) {
	if clubID == "" {
		return nil, validationErr("club_id", "must not be empty")
	}
	if creatorID == "" {
		return nil, validationErr("creator_id", "must not be empty")
	}
	if role == "" {
		role = models.RoleMember
	}
	if !models.ValidRole(role) {
		return nil, validationErr("role", fmt.Sprintf("unknown role %q", role))
	}
	if maxUses < 0 {
		return nil, validationErr("max_uses", "must not be negative")
	}
	if expiresAt != nil && expiresAt.Before(time.Now()) {
		return nil, validationErr("expires_at", "must be in the future")
	}

	club, err := c.clubs.GetByID(ctx, clubID)
	if err != nil {
		return nil, err
	}
	if club == nil {
		return nil, repositories.ErrNotFound
	}

	// A 256-bit token colliding is effectively impossible, but the unique
	// constraint makes it cheap to retry once instead of reasoning about it.
	for attempt := 0; attempt < 2; attempt++ {
		value, err := crypto.GenerateInviteToken(c.invitePrefix)
		if err != nil {
			return nil, err
		}

		token := &models.InviteToken{
			Token:     value,
			ClubID:    clubID,
			Role:      role,
			MaxUses:   maxUses,
			ExpiresAt: expiresAt,
			CreatedBy: creatorID,
		}
		err = c.invites.Create(ctx, token)
		if errors.Is(err, repositories.ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, err
		}

		slog.Info("invite token created",
			"club_id", clubID,
			"created_by", creatorID,
			"role", role,
			"max_uses", maxUses,
		)
		return token, nil
	}

	return nil, fmt.Errorf("failed to generate a unique invite token")
}

// RedeemInvite consumes one use of an invite token for userID. Dead tokens
// and existing memberships come back as outcomes, not errors.
func (c *Controller) RedeemInvite(ctx context.Context, token, userID string) (*Decision, error) {
	if token == "" {
		return nil, validationErr("token", "must not be empty")
	}
	if userID == "" {
		return nil, validationErr("user_id", "must not be empty")
	}

	d, err := c.redeemInvite(ctx, token, userID)
	if err != nil {
		return nil, err
	}

	telemetry.InviteRedemptionsTotal.WithLabelValues(string(d.Outcome)).Inc()
	slog.Debug("invite redeemed", "user_id", userID, "outcome", d.Outcome)
	return d, nil
}

func (c *Controller) redeemInvite(ctx context.Context, token, userID string) (*Decision, error) {
	m, err := c.invites.Redeem(ctx, token, userID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return decide(OutcomeInvalid, "this invite link is not valid"), nil
	case errors.Is(err, repositories.ErrInviteExpired):
		return decide(OutcomeExpired, "this invite link has expired"), nil
	case errors.Is(err, repositories.ErrInviteExhausted):
		return decide(OutcomeExhausted, "this invite link has been used up"), nil
	case errors.Is(err, repositories.ErrDuplicate):
		return decide(OutcomeAlreadyMember, "you are already a member of this club"), nil
	case err != nil:
		return nil, err
	}

	d := decide(OutcomeJoined, "welcome to the club")
	d.Membership = m
	return d, nil
}

// ResolveRequest settles a pending join request. Resolving an already
// terminal request is a no-op (resolved=false), so reviewer retries are safe.
func (c *Controller) ResolveRequest(ctx context.Context, requestID string, decision models.JoinRequestStatus) (bool, error) {
	if requestID == "" {
		return false, validationErr("request_id", "must not be empty")
	}

	resolved, err := c.requests.Resolve(ctx, requestID, decision)
	if err != nil {
		return false, err
	}

	if resolved {
		slog.Info("join request resolved", "request_id", requestID, "decision", decision)
	}
	return resolved, nil
}
