package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/sproutwell/sproutwell-api/internal/domain"
	"github.com/sproutwell/sproutwell-api/internal/store"
)

// ReviewRepository is the persistence surface the review service needs:
// the store interface plus the raw connection for service-owned
// transactions.
type ReviewRepository interface {
	store.ReviewStore

	// DB returns the underlying database connection
	DB() *sql.DB
}

// ReviewService coordinates community reviews. Every review write recomputes
// the worksheet's rating aggregates in the same transaction so the pair can
// never drift.
type ReviewService interface {
	// CreateReview adds the actor's review of a published worksheet.
	// Reviewing an unpublished worksheet is a state conflict; a second
	// review of the same worksheet returns ErrDuplicateReview.
	CreateReview(ctx context.Context, actorID, worksheetID uuid.UUID, rating int, text string) (*domain.Review, error)

	// DeleteReview removes a review. Only the review's author or an admin
	// acting through adminOverride may delete.
	DeleteReview(ctx context.Context, actorID, reviewID uuid.UUID, adminOverride bool) error

	// ListReviews retrieves a worksheet's reviews, newest first.
	ListReviews(ctx context.Context, worksheetID uuid.UUID, limit, offset int) ([]*domain.Review, error)

	// MarkHelpful bumps the review's helpful counter.
	MarkHelpful(ctx context.Context, reviewID uuid.UUID) error
}

// reviewServiceImpl implements the ReviewService interface
type reviewServiceImpl struct {
	reviews    ReviewRepository
	worksheets store.WorksheetStore
	logger     *slog.Logger
}

// NewReviewService creates a new ReviewService.
func NewReviewService(
	reviews ReviewRepository,
	worksheets store.WorksheetStore,
	logger *slog.Logger,
) (ReviewService, error) {
	if reviews == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "reviews cannot be nil"}
	}
	if worksheets == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "worksheets cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &reviewServiceImpl{
		reviews:    reviews,
		worksheets: worksheets,
		logger:     logger.With("component", "review_service"),
	}, nil
}

// CreateReview adds the actor's review and recomputes the worksheet's rating
// aggregates in one transaction.
func (s *reviewServiceImpl) CreateReview(
	ctx context.Context,
	actorID, worksheetID uuid.UUID,
	rating int,
	text string,
) (*domain.Review, error) {
	review, err := domain.NewReview(worksheetID, actorID, rating, text)
	if err != nil {
		return nil, err
	}

	err = store.RunInTransaction(ctx, s.reviews.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txReviews := s.reviews.WithTx(tx)
		txWorksheets := s.worksheets.WithTx(tx)

		ws, err := txWorksheets.GetByID(ctx, worksheetID)
		if err != nil {
			return NewServiceError("create_review", "failed to retrieve worksheet", err)
		}
		if ws.Status != domain.WorksheetStatusPublished {
			return fmt.Errorf("%w: only published worksheets can be reviewed (worksheet is %s)",
				domain.ErrStateConflict, ws.Status)
		}

		if err := txReviews.Create(ctx, review); err != nil {
			return NewServiceError("create_review", "failed to save review", err)
		}
		if err := txWorksheets.RecomputeRating(ctx, worksheetID); err != nil {
			return NewServiceError("create_review", "failed to recompute rating", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("review created",
		"review_id", review.ID,
		"worksheet_id", worksheetID,
		"rating", rating)

	return review, nil
}

// DeleteReview removes a review and recomputes the worksheet's rating
// aggregates in one transaction.
func (s *reviewServiceImpl) DeleteReview(
	ctx context.Context,
	actorID, reviewID uuid.UUID,
	adminOverride bool,
) error {
	var worksheetID uuid.UUID
	err := store.RunInTransaction(ctx, s.reviews.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txReviews := s.reviews.WithTx(tx)
		txWorksheets := s.worksheets.WithTx(tx)

		review, err := txReviews.GetByID(ctx, reviewID)
		if err != nil {
			return NewServiceError("delete_review", "failed to retrieve review", err)
		}
		if review.UserID != actorID && !adminOverride {
			return ErrForbidden
		}
		worksheetID = review.WorksheetID

		if err := txReviews.Delete(ctx, reviewID); err != nil {
			return NewServiceError("delete_review", "failed to delete review", err)
		}
		if err := txWorksheets.RecomputeRating(ctx, review.WorksheetID); err != nil {
			return NewServiceError("delete_review", "failed to recompute rating", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("review deleted",
		"review_id", reviewID,
		"worksheet_id", worksheetID,
		"admin_override", adminOverride)

	return nil
}

// ListReviews retrieves a worksheet's reviews, newest first.
func (s *reviewServiceImpl) ListReviews(
	ctx context.Context,
	worksheetID uuid.UUID,
	limit, offset int,
) ([]*domain.Review, error) {
	reviews, err := s.reviews.ListByWorksheet(ctx, worksheetID, limit, offset)
	if err != nil {
		return nil, NewServiceError("list_reviews", "failed to list reviews", err)
	}
	return reviews, nil
}

// MarkHelpful bumps the review's helpful counter.
func (s *reviewServiceImpl) MarkHelpful(ctx context.Context, reviewID uuid.UUID) error {
	if err := s.reviews.IncrementHelpfulCount(ctx, reviewID); err != nil {
		return NewServiceError("mark_helpful", "failed to increment helpful count", err)
	}
	return nil
}
