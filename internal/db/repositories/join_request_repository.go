// join_request_repository.go implements JoinRequestRepository, the ledger of
// pending admissions. Pending uniqueness is enforced by a partial unique index
// on (club_id, user_id) WHERE status='pending'; resolving an accepted request
// creates the membership row in the same transaction so the ledger and the
// membership store never disagree.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campus5/club-service/internal/db/models"
)

// JoinRequestRepository handles database operations for join requests
type JoinRequestRepository struct {
	db *sqlx.DB
}

// NewJoinRequestRepository creates a new join request repository
func NewJoinRequestRepository(db *sqlx.DB) *JoinRequestRepository {
	return &JoinRequestRepository{db: db}
}

// Create inserts a pending join request. Returns ErrDuplicate if a pending
// request already exists for the (club, user) pair.
func (r *JoinRequestRepository) Create(ctx context.Context, req *models.JoinRequest) error {
	query := `
		INSERT INTO join_requests (club_id, user_id, status)
		VALUES ($1, $2, 'pending')
		RETURNING id, status, created_at
	`

	err := r.db.QueryRowContext(ctx, query, req.ClubID, req.UserID).Scan(
		&req.ID,
		&req.Status,
		&req.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create join request: %w", err)
	}

	return nil
}

// GetByID retrieves a join request by ID
func (r *JoinRequestRepository) GetByID(ctx context.Context, id string) (*models.JoinRequest, error) {
	query := `
		SELECT id, club_id, user_id, status, created_at, resolved_at
		FROM join_requests
		WHERE id = $1
	`

	req := &models.JoinRequest{}
	err := r.db.GetContext(ctx, req, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get join request: %w", err)
	}

	return req, nil
}

// GetPending retrieves the pending join request for a (club, user) pair, if any
func (r *JoinRequestRepository) GetPending(ctx context.Context, clubID, userID string) (*models.JoinRequest, error) {
	query := `
		SELECT id, club_id, user_id, status, created_at, resolved_at
		FROM join_requests
		WHERE club_id = $1 AND user_id = $2 AND status = 'pending'
	`

	req := &models.JoinRequest{}
	err := r.db.GetContext(ctx, req, query, clubID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending join request: %w", err)
	}

	return req, nil
}

// ListPendingByClub retrieves all pending join requests for a club
func (r *JoinRequestRepository) ListPendingByClub(ctx context.Context, clubID string) ([]*models.JoinRequest, error) {
	query := `
		SELECT id, club_id, user_id, status, created_at, resolved_at
		FROM join_requests
		WHERE club_id = $1 AND status = 'pending'
		ORDER BY created_at ASC
	`

	requests := make([]*models.JoinRequest, 0)
	if err := r.db.SelectContext(ctx, &requests, query, clubID); err != nil {
		return nil, fmt.Errorf("failed to list pending join requests: %w", err)
	}

	return requests, nil
}

// Resolve flips a pending request to accepted or declined. An accepted
// request inserts the membership row in the same transaction; a membership
// that appeared in the meantime (e.g. the user redeemed an invite while the
// request sat in the queue) is tolerated. Resolving an already-terminal
// request is a no-op and returns resolved=false, so reviewer retries and
// double-clicks are safe.
func (r *JoinRequestRepository) Resolve(ctx context.Context, id string, decision models.JoinRequestStatus) (resolved bool, err error) {
	if decision != models.JoinRequestAccepted && decision != models.JoinRequestDeclined {
		return false, fmt.Errorf("invalid decision: %s", decision)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// The status guard in the WHERE clause makes the pending→terminal
	// transition atomic; a concurrent resolver loses and sees zero rows.
	var clubID, userID string
	row := tx.QueryRowContext(ctx, `
		UPDATE join_requests
		SET status = $2, resolved_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING club_id, user_id
	`, id, decision)

	if scanErr := row.Scan(&clubID, &userID); scanErr != nil {
		if errors.Is(scanErr, sql.ErrNoRows) {
			_ = tx.Rollback()
			return false, nil // already terminal (or missing): no-op
		}
		err = fmt.Errorf("failed to resolve join request: %w", scanErr)
		return false, err
	}

	if decision == models.JoinRequestAccepted {
		if _, execErr := tx.ExecContext(ctx, `
			INSERT INTO memberships (club_id, user_id, role)
			VALUES ($1, $2, 'member')
			ON CONFLICT (club_id, user_id) DO NOTHING
		`, clubID, userID); execErr != nil {
			err = fmt.Errorf("failed to create membership for accepted request: %w", execErr)
			return false, err
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		err = fmt.Errorf("failed to commit request resolution: %w", commitErr)
		return false, err
	}

	return true, nil
}

// ExpireOlderThan flips pending requests created before cutoff to expired and
// returns how many were expired. Used by the background request expirer.
func (r *JoinRequestRepository) ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE join_requests
		SET status = 'expired', resolved_at = NOW()
		WHERE status = 'pending' AND created_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to expire join requests: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count expired join requests: %w", err)
	}

	return n, nil
}
