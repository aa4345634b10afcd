// invite_token_repository.go implements InviteTokenRepository. Redemption is
// a single transaction: the token row is locked with FOR UPDATE, validity is
// checked against the locked row, the membership is inserted, and the use
// counter is bumped with a guarded UPDATE so the max_uses ceiling holds under
// concurrent redeemers.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campus5/club-service/internal/db/models"
)

// InviteTokenRepository handles database operations for invite tokens
type InviteTokenRepository struct {
	db *sqlx.DB
}

// NewInviteTokenRepository creates a new invite token repository
func NewInviteTokenRepository(db *sqlx.DB) *InviteTokenRepository {
	return &InviteTokenRepository{db: db}
}

// Create inserts a new invite token
func (r *InviteTokenRepository) Create(ctx context.Context, token *models.InviteToken) error {
	query := `
		INSERT INTO invite_tokens (token, club_id, role, max_uses, expires_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING uses, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		token.Token,
		token.ClubID,
		token.Role,
		token.MaxUses,
		token.ExpiresAt,
		token.CreatedBy,
	).Scan(&token.Uses, &token.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create invite token: %w", err)
	}

	return nil
}

// Get retrieves an invite token by its opaque value
func (r *InviteTokenRepository) Get(ctx context.Context, token string) (*models.InviteToken, error) {
	query := `
		SELECT token, club_id, role, max_uses, uses, expires_at, created_by, created_at
		FROM invite_tokens
		WHERE token = $1
	`

	inv := &models.InviteToken{}
	err := r.db.GetContext(ctx, inv, query, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invite token: %w", err)
	}

	return inv, nil
}

// ListByClub retrieves all invite tokens for a club, newest first
func (r *InviteTokenRepository) ListByClub(ctx context.Context, clubID string) ([]*models.InviteToken, error) {
	query := `
		SELECT token, club_id, role, max_uses, uses, expires_at, created_by, created_at
		FROM invite_tokens
		WHERE club_id = $1
		ORDER BY created_at DESC
	`

	tokens := make([]*models.InviteToken, 0)
	if err := r.db.SelectContext(ctx, &tokens, query, clubID); err != nil {
		return nil, fmt.Errorf("failed to list invite tokens: %w", err)
	}

	return tokens, nil
}

// Delete revokes an invite token
func (r *InviteTokenRepository) Delete(ctx context.Context, token string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM invite_tokens WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to delete invite token: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted invite token: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// Redeem consumes one use of a token for the given user and grants the
// token's role. Returns the granted membership, or ErrNotFound for an unknown
// token, ErrInviteExpired / ErrInviteExhausted for a dead one, and
// ErrDuplicate when the user already belongs to the club (the use counter is
// not consumed in that case).
func (r *InviteTokenRepository) Redeem(ctx context.Context, token, userID string) (m *models.Membership, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	inv := &models.InviteToken{}
	getErr := tx.GetContext(ctx, inv, `
		SELECT token, club_id, role, max_uses, uses, expires_at, created_by, created_at
		FROM invite_tokens
		WHERE token = $1
		FOR UPDATE
	`, token)
	if errors.Is(getErr, sql.ErrNoRows) {
		err = ErrNotFound
		return nil, err
	}
	if getErr != nil {
		err = fmt.Errorf("failed to lock invite token: %w", getErr)
		return nil, err
	}

	if inv.IsExpired() {
		err = ErrInviteExpired
		return nil, err
	}
	if inv.IsExhausted() {
		err = ErrInviteExhausted
		return nil, err
	}

	m = &models.Membership{ClubID: inv.ClubID, UserID: userID, Role: inv.Role}
	scanErr := tx.QueryRowContext(ctx, `
		INSERT INTO memberships (club_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, m.ClubID, m.UserID, m.Role).Scan(&m.CreatedAt)
	if scanErr != nil {
		if isUniqueViolation(scanErr) {
			err = ErrDuplicate
			return nil, err
		}
		err = fmt.Errorf("failed to create membership from invite: %w", scanErr)
		return nil, err
	}

	// The guard re-checks the ceiling even though the row is locked, so the
	// counter can never pass max_uses regardless of how the row was read.
	res, execErr := tx.ExecContext(ctx, `
		UPDATE invite_tokens
		SET uses = uses + 1
		WHERE token = $1 AND (max_uses = 0 OR uses < max_uses)
	`, token)
	if execErr != nil {
		err = fmt.Errorf("failed to consume invite use: %w", execErr)
		return nil, err
	}
	n, raErr := res.RowsAffected()
	if raErr != nil {
		err = fmt.Errorf("failed to check consumed invite use: %w", raErr)
		return nil, err
	}
	if n == 0 {
		err = ErrInviteExhausted
		return nil, err
	}

	if commitErr := tx.Commit(); commitErr != nil {
		err = fmt.Errorf("failed to commit invite redemption: %w", commitErr)
		return nil, err
	}

	return m, nil
}
