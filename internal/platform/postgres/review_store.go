package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/sproutwell/sproutwell-api/internal/domain"
	"github.com/sproutwell/sproutwell-api/internal/platform/logger"
	"github.com/sproutwell/sproutwell-api/internal/store"
)

// PostgresReviewStore implements the store.ReviewStore interface
// using a PostgreSQL database as the storage backend.
type PostgresReviewStore struct {
	db     store.DBTX
	conn   *sql.DB
	logger *slog.Logger
}

// NewPostgresReviewStore creates a new PostgreSQL implementation of the
// ReviewStore interface. If logger is nil a default is used.
func NewPostgresReviewStore(db *sql.DB, logger *slog.Logger) *PostgresReviewStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresReviewStore{
		db:     db,
		conn:   db,
		logger: logger.With(slog.String("component", "review_store")),
	}
}

// Ensure PostgresReviewStore implements store.ReviewStore interface
var _ store.ReviewStore = (*PostgresReviewStore)(nil)

// WithTx implements store.ReviewStore.WithTx
func (s *PostgresReviewStore) WithTx(tx *sql.Tx) store.ReviewStore {
	return &PostgresReviewStore{
		db:     tx,
		conn:   s.conn,
		logger: s.logger,
	}
}

// DB returns the underlying database connection for transaction management.
func (s *PostgresReviewStore) DB() *sql.DB {
	return s.conn
}

// Create implements store.ReviewStore.Create
// The unique index on (worksheet_id, user_id) turns a second review by the
// same user into store.ErrDuplicateReview.
func (s *PostgresReviewStore) Create(ctx context.Context, r *domain.Review) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := r.Validate(); err != nil {
		log.Warn("review validation failed during create",
			slog.String("error", err.Error()),
			slog.String("review_id", r.ID.String()))
		return err
	}

	query := `
		INSERT INTO reviews (id, worksheet_id, user_id, rating, review_text, helpful_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		r.ID,
		r.WorksheetID,
		r.UserID,
		r.Rating,
		r.ReviewText,
		r.HelpfulCount,
		r.CreatedAt,
		r.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("duplicate review for worksheet",
				slog.String("worksheet_id", r.WorksheetID.String()),
				slog.String("user_id", r.UserID.String()))
			return store.ErrDuplicateReview
		}
		log.Error("failed to create review",
			slog.String("error", err.Error()),
			slog.String("review_id", r.ID.String()))
		return MapError(err)
	}

	log.Info("review created successfully",
		slog.String("review_id", r.ID.String()),
		slog.String("worksheet_id", r.WorksheetID.String()),
		slog.Int("rating", r.Rating))
	return nil
}

// GetByID implements store.ReviewStore.GetByID
func (s *PostgresReviewStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, worksheet_id, user_id, rating, review_text, helpful_count, created_at, updated_at
		FROM reviews
		WHERE id = $1
	`

	r, err := scanReview(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrReviewNotFound
		}
		log.Error("failed to get review by ID",
			slog.String("error", err.Error()),
			slog.String("review_id", id.String()))
		return nil, MapError(err)
	}
	return r, nil
}

// Delete implements store.ReviewStore.Delete
func (s *PostgresReviewStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete review",
			slog.String("error", err.Error()),
			slog.String("review_id", id.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "review"); err != nil {
		return store.ErrReviewNotFound
	}

	log.Info("review deleted successfully", slog.String("review_id", id.String()))
	return nil
}

// ListByWorksheet implements store.ReviewStore.ListByWorksheet
func (s *PostgresReviewStore) ListByWorksheet(
	ctx context.Context,
	worksheetID uuid.UUID,
	limit, offset int,
) ([]*domain.Review, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, worksheet_id, user_id, rating, review_text, helpful_count, created_at, updated_at
		FROM reviews
		WHERE worksheet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, worksheetID, listLimit(limit), listOffset(offset))
	if err != nil {
		log.Error("failed to list reviews by worksheet",
			slog.String("error", err.Error()),
			slog.String("worksheet_id", worksheetID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	reviews := []*domain.Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reviews, nil
}

// IncrementHelpfulCount implements store.ReviewStore.IncrementHelpfulCount
func (s *PostgresReviewStore) IncrementHelpfulCount(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `UPDATE reviews SET helpful_count = helpful_count + 1 WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		log.Error("failed to increment helpful count",
			slog.String("error", err.Error()),
			slog.String("review_id", id.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "review"); err != nil {
		return store.ErrReviewNotFound
	}
	return nil
}

// scanReview reads one review row.
func scanReview(row rowScanner) (*domain.Review, error) {
	var (
		r    domain.Review
		text sql.NullString
	)
	err := row.Scan(
		&r.ID,
		&r.WorksheetID,
		&r.UserID,
		&r.Rating,
		&text,
		&r.HelpfulCount,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.ReviewText = text.String
	return &r, nil
}
