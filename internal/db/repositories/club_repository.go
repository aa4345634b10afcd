// club_repository.go implements ClubRepository, providing database queries for
// club CRUD and lookups used by the admission controller.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/campus5/club-service/internal/db/models"
)

// ClubRepository handles database operations for clubs
type ClubRepository struct {
	db *sql.DB
}

// NewClubRepository creates a new club repository
func NewClubRepository(db *sql.DB) *ClubRepository {
	return &ClubRepository{db: db}
}

// Create creates a new club. The database assigns the id and timestamps.
func (r *ClubRepository) Create(ctx context.Context, club *models.Club) error {
	query := `
		INSERT INTO clubs (name, category, description, passcode_hash, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		club.Name,
		club.Category,
		club.Description,
		club.PasscodeHash,
		club.CreatedBy,
	).Scan(&club.ID, &club.CreatedAt, &club.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create club: %w", err)
	}

	return nil
}

// GetByID retrieves a club by ID
func (r *ClubRepository) GetByID(ctx context.Context, id string) (*models.Club, error) {
	query := `
		SELECT id, name, category, description, passcode_hash, created_by, created_at, updated_at
		FROM clubs
		WHERE id = $1
	`

	club := &models.Club{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&club.ID,
		&club.Name,
		&club.Category,
		&club.Description,
		&club.PasscodeHash,
		&club.CreatedBy,
		&club.CreatedAt,
		&club.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get club: %w", err)
	}

	return club, nil
}

// GetByName retrieves a club by its unique name
func (r *ClubRepository) GetByName(ctx context.Context, name string) (*models.Club, error) {
	query := `
		SELECT id, name, category, description, passcode_hash, created_by, created_at, updated_at
		FROM clubs
		WHERE name = $1
	`

	club := &models.Club{}
	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&club.ID,
		&club.Name,
		&club.Category,
		&club.Description,
		&club.PasscodeHash,
		&club.CreatedBy,
		&club.CreatedAt,
		&club.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get club: %w", err)
	}

	return club, nil
}

// List retrieves a paginated list of clubs, optionally filtered by category
func (r *ClubRepository) List(ctx context.Context, category string, limit, offset int) ([]*models.Club, error) {
	query := `
		SELECT id, name, category, description, passcode_hash, created_by, created_at, updated_at
		FROM clubs
		WHERE ($1 = '' OR category = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, category, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list clubs: %w", err)
	}
	defer rows.Close()

	clubs := make([]*models.Club, 0)
	for rows.Next() {
		club := &models.Club{}
		err := rows.Scan(
			&club.ID,
			&club.Name,
			&club.Category,
			&club.Description,
			&club.PasscodeHash,
			&club.CreatedBy,
			&club.CreatedAt,
			&club.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan club: %w", err)
		}
		clubs = append(clubs, club)
	}

	return clubs, rows.Err()
}

// Count returns the total number of clubs
func (r *ClubRepository) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM clubs`
	err := r.db.QueryRowContext(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count clubs: %w", err)
	}

	return count, nil
}

// Delete deletes a club; memberships, requests and tokens cascade
func (r *ClubRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM clubs WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete club: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted club: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}
