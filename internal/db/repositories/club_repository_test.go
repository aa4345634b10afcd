package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/campus5/club-service/internal/db/models"
)

var errDB = errors.New("db error")

// ---------------------------------------------------------------------------
// Column definitions
// ---------------------------------------------------------------------------

var clubCols = []string{
	"id", "name", "category", "description", "passcode_hash",
	"created_by", "created_at", "updated_at",
}
var clubCreateCols = []string{"id", "created_at", "updated_at"}

// ---------------------------------------------------------------------------
// Row builders
// ---------------------------------------------------------------------------

func sampleClubRow() *sqlmock.Rows {
	return sqlmock.NewRows(clubCols).
		AddRow("club-1", "Chess Club", "games", "Casual chess on Thursdays", nil,
			"user-1", time.Now(), time.Now())
}

func gatedClubRow() *sqlmock.Rows {
	hash := "$2a$10$abcdefghijklmnopqrstuv"
	return sqlmock.NewRows(clubCols).
		AddRow("club-2", "Secret Society", "social", "", hash,
			"user-1", time.Now(), time.Now())
}

func emptyClubRow() *sqlmock.Rows {
	return sqlmock.NewRows(clubCols)
}

func newClubRepo(t *testing.T) (*ClubRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewClubRepository(db), mock
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestClubCreate_Success(t *testing.T) {
	repo, mock := newClubRepo(t)
	mock.ExpectQuery("INSERT INTO clubs").
		WillReturnRows(sqlmock.NewRows(clubCreateCols).AddRow("club-new", time.Now(), time.Now()))

	club := &models.Club{Name: "Chess Club", Category: "games", CreatedBy: "user-1"}
	if err := repo.Create(context.Background(), club); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if club.ID != "club-new" {
		t.Errorf("ID = %s, want club-new", club.ID)
	}
}

func TestClubCreate_DuplicateName(t *testing.T) {
	repo, mock := newClubRepo(t)
	mock.ExpectQuery("INSERT INTO clubs").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Club{Name: "Chess Club"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestClubCreate_DBError(t *testing.T) {
	repo, mock := newClubRepo(t)
	mock.ExpectQuery("INSERT INTO clubs").WillReturnError(errDB)

	if err := repo.Create(context.Background(), &models.Club{Name: "x"}); err == nil {
		t.Fatal("expected error, got nil")
	}
}

// ---------------------------------------------------------------------------
// GetByID / GetByName
// ---------------------------------------------------------------------------

func TestClubGetByID_Found(t *testing.T) {
	repo, mock := newClubRepo(t)
	mock.ExpectQuery("SELECT.*FROM clubs WHERE id").
		WithArgs("club-1").
		WillReturnRows(sampleClubRow())

	club, err := repo.GetByID(context.Background(), "club-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if club == nil {
		t.Fatal("expected club, got nil")
	}
	if club.IsGated() {
		t.Error("expected open club")
	}
}

func TestClubGetByID_NotFound(t *testing.T) {
	repo, mock := newClubRepo(t)
	mock.ExpectQuery("SELECT.*FROM clubs WHERE id").
		WillReturnRows(emptyClubRow())

	club, err := repo.GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if club != nil {
		t.Error("expected nil, got non-nil")
	}
}

func TestClubGetByID_Gated(t *testing.T) {
	repo, mock := newClubRepo(t)
	mock.ExpectQuery("SELECT.*FROM clubs WHERE id").
		WithArgs("club-2").
		WillReturnRows(gatedClubRow())

	club, err := repo.GetByID(context.Background(), "club-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !club.IsGated() {
		t.Error("expected gated club")
	}
}

func TestClubGetByName_Found(t *testing.T) {
	repo, mock := newClubRepo(t)
	mock.ExpectQuery("SELECT.*FROM clubs WHERE name").
		WithArgs("Chess Club").
		WillReturnRows(sampleClubRow())

	club, err := repo.GetByName(context.Background(), "Chess Club")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if club == nil {
		t.Fatal("expected club, got nil")
	}
}

// ---------------------------------------------------------------------------
// List / Count
// ---------------------------------------------------------------------------

func TestClubList_All(t *testing.T) {
	repo, mock := newClubRepo(t)
	mock.ExpectQuery("SELECT.*FROM clubs").
		WillReturnRows(sampleClubRow())

	clubs, err := repo.List(context.Background(), "", 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clubs) != 1 {
		t.Errorf("len = %d, want 1", len(clubs))
	}
}

func TestClubList_CategoryFilter(t *testing.T) {
	repo, mock := newClubRepo(t)
	mock.ExpectQuery("SELECT.*FROM clubs").
		WithArgs("games", 20, 0).
		WillReturnRows(sampleClubRow())

	clubs, err := repo.List(context.Background(), "games", 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clubs) != 1 {
		t.Errorf("len = %d, want 1", len(clubs))
	}
}

func TestClubCount(t *testing.T) {
	repo, mock := newClubRepo(t)
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 7 {
		t.Errorf("count = %d, want 7", n)
	}
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestClubDelete_Success(t *testing.T) {
	repo, mock := newClubRepo(t)
	mock.ExpectExec("DELETE FROM clubs").
		WithArgs("club-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "club-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClubDelete_NotFound(t *testing.T) {
	repo, mock := newClubRepo(t)
	mock.ExpectExec("DELETE FROM clubs").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
