package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/sproutwell/sproutwell-api/internal/domain"
)

// ScreeningStore defines the read interface for externally supplied
// screening scores. This engine never writes screening data.
type ScreeningStore interface {
	// GetScores retrieves the domain scores recorded under a screening.
	// Returns ErrScreeningNotFound if the screening has no scores.
	GetScores(ctx context.Context, screeningID uuid.UUID) ([]*domain.DomainScore, error)

	// LatestScoresByChild retrieves the most recent score per domain for a
	// child across all screenings. Returns an empty slice if the child has
	// never been screened.
	LatestScoresByChild(ctx context.Context, childID uuid.UUID) ([]*domain.DomainScore, error)

	// ListScoresByChild retrieves every score recorded for a child across
	// all screenings, oldest first. Used to build progress timelines.
	ListScoresByChild(ctx context.Context, childID uuid.UUID) ([]*domain.DomainScore, error)

	// WithTx returns a new ScreeningStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ScreeningStore
}
