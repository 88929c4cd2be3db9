package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/sproutwell/sproutwell-api/internal/domain"
)

// FlagStore defines the interface for moderation flag persistence.
type FlagStore interface {
	// Create saves a new flag to the store.
	Create(ctx context.Context, f *domain.Flag) error

	// GetByID retrieves a flag by its unique ID.
	// Returns ErrFlagNotFound if the flag does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Flag, error)

	// Update saves a flag's resolution.
	// Returns ErrFlagNotFound if the flag does not exist.
	Update(ctx context.Context, f *domain.Flag) error

	// ListByStatus retrieves flags in the given status, oldest first so the
	// moderation queue drains in submission order.
	ListByStatus(ctx context.Context, status domain.FlagStatus, limit, offset int) ([]*domain.Flag, error)

	// ListByWorksheet retrieves all flags against a worksheet, newest first.
	ListByWorksheet(ctx context.Context, worksheetID uuid.UUID) ([]*domain.Flag, error)

	// CountPendingByWorksheet returns the number of unresolved flags against
	// a worksheet.
	CountPendingByWorksheet(ctx context.Context, worksheetID uuid.UUID) (int, error)

	// WithTx returns a new FlagStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) FlagStore
}
