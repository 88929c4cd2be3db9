package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/sproutwell/sproutwell-api/internal/domain"
	"github.com/sproutwell/sproutwell-api/internal/platform/logger"
	"github.com/sproutwell/sproutwell-api/internal/store"
)

// PostgresScreeningStore implements the store.ScreeningStore interface.
// Screening scores arrive through the assessment pipeline; this store only
// reads them.
type PostgresScreeningStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresScreeningStore creates a new PostgreSQL implementation of the
// ScreeningStore interface. If logger is nil a default is used.
func NewPostgresScreeningStore(db store.DBTX, logger *slog.Logger) *PostgresScreeningStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresScreeningStore{
		db:     db,
		logger: logger.With(slog.String("component", "screening_store")),
	}
}

// Ensure PostgresScreeningStore implements store.ScreeningStore interface
var _ store.ScreeningStore = (*PostgresScreeningStore)(nil)

// WithTx implements store.ScreeningStore.WithTx
func (s *PostgresScreeningStore) WithTx(tx *sql.Tx) store.ScreeningStore {
	return &PostgresScreeningStore{
		db:     tx,
		logger: s.logger,
	}
}

// GetScores implements store.ScreeningStore.GetScores
func (s *PostgresScreeningStore) GetScores(
	ctx context.Context,
	screeningID uuid.UUID,
) ([]*domain.DomainScore, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT screening_id, child_id, domain, score, recorded_at
		FROM screening_scores
		WHERE screening_id = $1
		ORDER BY domain ASC
	`

	scores, err := s.queryScores(ctx, query, screeningID)
	if err != nil {
		log.Error("failed to get screening scores",
			slog.String("error", err.Error()),
			slog.String("screening_id", screeningID.String()))
		return nil, MapError(err)
	}
	if len(scores) == 0 {
		return nil, store.ErrScreeningNotFound
	}
	return scores, nil
}

// LatestScoresByChild implements store.ScreeningStore.LatestScoresByChild
// DISTINCT ON picks the newest score per domain across all screenings.
func (s *PostgresScreeningStore) LatestScoresByChild(
	ctx context.Context,
	childID uuid.UUID,
) ([]*domain.DomainScore, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT DISTINCT ON (domain) screening_id, child_id, domain, score, recorded_at
		FROM screening_scores
		WHERE child_id = $1
		ORDER BY domain ASC, recorded_at DESC
	`

	scores, err := s.queryScores(ctx, query, childID)
	if err != nil {
		log.Error("failed to get latest scores by child",
			slog.String("error", err.Error()),
			slog.String("child_id", childID.String()))
		return nil, MapError(err)
	}
	return scores, nil
}

// ListScoresByChild implements store.ScreeningStore.ListScoresByChild
func (s *PostgresScreeningStore) ListScoresByChild(
	ctx context.Context,
	childID uuid.UUID,
) ([]*domain.DomainScore, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT screening_id, child_id, domain, score, recorded_at
		FROM screening_scores
		WHERE child_id = $1
		ORDER BY recorded_at ASC, domain ASC
	`

	scores, err := s.queryScores(ctx, query, childID)
	if err != nil {
		log.Error("failed to list scores by child",
			slog.String("error", err.Error()),
			slog.String("child_id", childID.String()))
		return nil, MapError(err)
	}
	return scores, nil
}

func (s *PostgresScreeningStore) queryScores(
	ctx context.Context,
	query string,
	args ...any,
) ([]*domain.DomainScore, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	scores := []*domain.DomainScore{}
	for rows.Next() {
		var score domain.DomainScore
		err := rows.Scan(
			&score.ScreeningID,
			&score.ChildID,
			&score.Domain,
			&score.Score,
			&score.RecordedAt,
		)
		if err != nil {
			return nil, err
		}
		scores = append(scores, &score)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return scores, nil
}
