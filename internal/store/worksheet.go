package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/sproutwell/sproutwell-api/internal/domain"
)

// CommunitySort orders community browse results.
type CommunitySort string

// Supported community sort orders.
const (
	SortRecent   CommunitySort = "recent"
	SortTopRated CommunitySort = "top_rated"
	SortMostUsed CommunitySort = "most_used"
)

// WorksheetFilter narrows worksheet listings. Zero values mean "no filter".
type WorksheetFilter struct {
	Status       domain.WorksheetStatus
	Type         domain.WorksheetType
	Difficulty   domain.Difficulty
	TargetDomain domain.DevelopmentalDomain
	ChildID      *uuid.UUID
	AgeMonths    int // matches worksheets whose age range covers this age
	SearchText   string
	Sort         CommunitySort
	Limit        int
	Offset       int
}

// WorksheetStore defines the interface for worksheet persistence.
type WorksheetStore interface {
	// Create saves a new worksheet to the store.
	// Returns validation errors from the domain Worksheet if data is invalid.
	Create(ctx context.Context, ws *domain.Worksheet) error

	// GetByID retrieves a worksheet by its unique ID.
	// Returns ErrWorksheetNotFound if the worksheet does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Worksheet, error)

	// Update saves changes to an existing worksheet, including status moves.
	// Returns ErrWorksheetNotFound if the worksheet does not exist.
	Update(ctx context.Context, ws *domain.Worksheet) error

	// ListByOwner retrieves the owner's worksheets matching the filter,
	// newest first. Returns an empty slice if nothing matches.
	ListByOwner(ctx context.Context, ownerID uuid.UUID, filter WorksheetFilter) ([]*domain.Worksheet, error)

	// ListPublished retrieves community-visible worksheets matching the
	// filter, ordered by filter.Sort. The second return is the total match
	// count before pagination.
	ListPublished(ctx context.Context, filter WorksheetFilter) ([]*domain.Worksheet, int, error)

	// ListVersions retrieves every version in the lineage tree that contains
	// the given worksheet, oldest first.
	ListVersions(ctx context.Context, id uuid.UUID) ([]*domain.Worksheet, error)

	// IncrementCloneCount atomically bumps the worksheet's clone counter.
	// Returns ErrWorksheetNotFound if the worksheet does not exist.
	IncrementCloneCount(ctx context.Context, id uuid.UUID) error

	// RecomputeRating recalculates averageRating and reviewCount from the
	// reviews table in a single statement. Called inside the same
	// transaction as the review write that invalidated the aggregates.
	RecomputeRating(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new WorksheetStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller
	// (typically a service).
	WithTx(tx *sql.Tx) WorksheetStore
}
