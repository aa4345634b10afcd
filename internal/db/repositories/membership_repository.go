// membership_repository.go implements MembershipRepository, the source of
// truth for "is a member". Inserts rely on the (club_id, user_id) primary key
// so concurrent joins cannot create duplicate rows; the constraint violation
// surfaces as ErrDuplicate for the caller to translate into an idempotent
// outcome.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/campus5/club-service/internal/db/models"
)

// MembershipRepository handles database operations for club memberships
type MembershipRepository struct {
	db *sql.DB
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *sql.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// Add inserts a membership row. Returns ErrDuplicate if the (club, user)
// pair is already a member.
func (r *MembershipRepository) Add(ctx context.Context, m *models.Membership) error {
	query := `
		INSERT INTO memberships (club_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query, m.ClubID, m.UserID, m.Role).Scan(&m.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to add member: %w", err)
	}

	return nil
}

// Get retrieves a user's membership in a club
func (r *MembershipRepository) Get(ctx context.Context, clubID, userID string) (*models.Membership, error) {
	query := `
		SELECT club_id, user_id, role, created_at
		FROM memberships
		WHERE club_id = $1 AND user_id = $2
	`

	m := &models.Membership{}
	err := r.db.QueryRowContext(ctx, query, clubID, userID).Scan(
		&m.ClubID,
		&m.UserID,
		&m.Role,
		&m.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	return m, nil
}

// Remove deletes a user's membership (leaving a club)
func (r *MembershipRepository) Remove(ctx context.Context, clubID, userID string) error {
	query := `DELETE FROM memberships WHERE club_id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, clubID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	return nil
}

// ListByClub retrieves all members of a club with user details
func (r *MembershipRepository) ListByClub(ctx context.Context, clubID string) ([]*models.MembershipWithUser, error) {
	query := `
		SELECT m.club_id, m.user_id, m.role, m.created_at,
		       COALESCE(u.name, '') AS user_name, COALESCE(u.email, '') AS user_email
		FROM memberships m
		LEFT JOIN users u ON m.user_id = u.id
		WHERE m.club_id = $1
		ORDER BY m.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, clubID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := make([]*models.MembershipWithUser, 0)
	for rows.Next() {
		m := &models.MembershipWithUser{}
		err := rows.Scan(
			&m.ClubID,
			&m.UserID,
			&m.Role,
			&m.CreatedAt,
			&m.UserName,
			&m.UserEmail,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

// ListByUser retrieves all of a user's memberships with club names
func (r *MembershipRepository) ListByUser(ctx context.Context, userID string) ([]*models.UserMembership, error) {
	query := `
		SELECT m.club_id, COALESCE(c.name, '') AS club_name, m.role, m.created_at
		FROM memberships m
		LEFT JOIN clubs c ON m.club_id = c.id
		WHERE m.user_id = $1
		ORDER BY m.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user memberships: %w", err)
	}
	defer rows.Close()

	memberships := make([]*models.UserMembership, 0)
	for rows.Next() {
		m := &models.UserMembership{}
		err := rows.Scan(
			&m.ClubID,
			&m.ClubName,
			&m.Role,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}

	return memberships, rows.Err()
}

// CountByClub returns the number of members of a club
func (r *MembershipRepository) CountByClub(ctx context.Context, clubID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM memberships WHERE club_id = $1`
	err := r.db.QueryRowContext(ctx, query, clubID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}

	return count, nil
}
