package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sproutwell/sproutwell-api/internal/domain"
)

// CompletionStore defines the interface for completion record persistence.
// Completions are immutable once written.
type CompletionStore interface {
	// Create saves a new completion record. Returns ErrDuplicateCompletion
	// if the referenced assignment already has one.
	Create(ctx context.Context, c *domain.Completion) error

	// GetByID retrieves a completion by its unique ID.
	// Returns ErrCompletionNotFound if the completion does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Completion, error)

	// ListByChild retrieves a child's completions within the window,
	// oldest first. A zero since means no lower bound.
	ListByChild(ctx context.Context, childID uuid.UUID, since time.Time) ([]*domain.Completion, error)

	// ListByWorksheet retrieves all completions of a worksheet, oldest
	// first. Used for effectiveness aggregates.
	ListByWorksheet(ctx context.Context, worksheetID uuid.UUID) ([]*domain.Completion, error)

	// WithTx returns a new CompletionStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) CompletionStore
}
