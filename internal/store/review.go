package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/sproutwell/sproutwell-api/internal/domain"
)

// ReviewStore defines the interface for review persistence. The database
// enforces one review per (worksheet, user) pair.
type ReviewStore interface {
	// Create saves a new review. Returns ErrDuplicateReview if the user
	// already reviewed this worksheet.
	Create(ctx context.Context, r *domain.Review) error

	// GetByID retrieves a review by its unique ID.
	// Returns ErrReviewNotFound if the review does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error)

	// Delete removes a review.
	// Returns ErrReviewNotFound if the review does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByWorksheet retrieves a worksheet's reviews, newest first.
	ListByWorksheet(ctx context.Context, worksheetID uuid.UUID, limit, offset int) ([]*domain.Review, error)

	// IncrementHelpfulCount atomically bumps the review's helpful counter.
	// Returns ErrReviewNotFound if the review does not exist.
	IncrementHelpfulCount(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new ReviewStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ReviewStore
}
