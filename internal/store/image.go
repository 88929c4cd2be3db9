package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/sproutwell/sproutwell-api/internal/domain"
)

// ImageStore defines the interface for worksheet image persistence.
type ImageStore interface {
	// Create saves a new worksheet image record.
	Create(ctx context.Context, img *domain.WorksheetImage) error

	// GetByID retrieves an image by its unique ID.
	// Returns ErrImageNotFound if the image does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WorksheetImage, error)

	// Update saves changes to an existing image record.
	// Returns ErrImageNotFound if the image does not exist.
	Update(ctx context.Context, img *domain.WorksheetImage) error

	// ListByWorksheet retrieves all image records for a worksheet, ordered
	// by slot. Returns an empty slice if the worksheet has no images.
	ListByWorksheet(ctx context.Context, worksheetID uuid.UUID) ([]*domain.WorksheetImage, error)

	// WithTx returns a new ImageStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ImageStore
}
