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

// PostgresImageStore implements the store.ImageStore interface
// using a PostgreSQL database as the storage backend.
type PostgresImageStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresImageStore creates a new PostgreSQL implementation of the
// ImageStore interface. If logger is nil a default is used.
func NewPostgresImageStore(db store.DBTX, logger *slog.Logger) *PostgresImageStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresImageStore{
		db:     db,
		logger: logger.With(slog.String("component", "image_store")),
	}
}

// Ensure PostgresImageStore implements store.ImageStore interface
var _ store.ImageStore = (*PostgresImageStore)(nil)

// WithTx implements store.ImageStore.WithTx
func (s *PostgresImageStore) WithTx(tx *sql.Tx) store.ImageStore {
	return &PostgresImageStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.ImageStore.Create
func (s *PostgresImageStore) Create(ctx context.Context, img *domain.WorksheetImage) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := img.Validate(); err != nil {
		log.Warn("image validation failed during create",
			slog.String("error", err.Error()),
			slog.String("image_id", img.ID.String()))
		return err
	}

	query := `
		INSERT INTO worksheet_images (id, worksheet_id, slot, prompt, status, url, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		img.ID,
		img.WorksheetID,
		img.Slot,
		img.Prompt,
		img.Status,
		img.URL,
		img.Error,
		img.CreatedAt,
		img.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create worksheet image",
			slog.String("error", err.Error()),
			slog.String("image_id", img.ID.String()),
			slog.String("worksheet_id", img.WorksheetID.String()))
		return MapError(err)
	}
	return nil
}

// GetByID implements store.ImageStore.GetByID
func (s *PostgresImageStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.WorksheetImage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, worksheet_id, slot, prompt, status, url, error, created_at, updated_at
		FROM worksheet_images
		WHERE id = $1
	`

	img, err := scanImage(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrImageNotFound
		}
		log.Error("failed to get image by ID",
			slog.String("error", err.Error()),
			slog.String("image_id", id.String()))
		return nil, MapError(err)
	}
	return img, nil
}

// Update implements store.ImageStore.Update
func (s *PostgresImageStore) Update(ctx context.Context, img *domain.WorksheetImage) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := img.Validate(); err != nil {
		log.Warn("image validation failed during update",
			slog.String("error", err.Error()),
			slog.String("image_id", img.ID.String()))
		return err
	}

	query := `
		UPDATE worksheet_images
		SET status = $1, url = $2, error = $3, updated_at = $4
		WHERE id = $5
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		img.Status,
		img.URL,
		img.Error,
		img.UpdatedAt,
		img.ID,
	)
	if err != nil {
		log.Error("failed to update worksheet image",
			slog.String("error", err.Error()),
			slog.String("image_id", img.ID.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "worksheet image"); err != nil {
		return store.ErrImageNotFound
	}
	return nil
}

// ListByWorksheet implements store.ImageStore.ListByWorksheet
func (s *PostgresImageStore) ListByWorksheet(
	ctx context.Context,
	worksheetID uuid.UUID,
) ([]*domain.WorksheetImage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, worksheet_id, slot, prompt, status, url, error, created_at, updated_at
		FROM worksheet_images
		WHERE worksheet_id = $1
		ORDER BY slot ASC
	`

	rows, err := s.db.QueryContext(ctx, query, worksheetID)
	if err != nil {
		log.Error("failed to list images by worksheet",
			slog.String("error", err.Error()),
			slog.String("worksheet_id", worksheetID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	images := []*domain.WorksheetImage{}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return images, nil
}

// scanImage reads one worksheet image row.
func scanImage(row rowScanner) (*domain.WorksheetImage, error) {
	var (
		img    domain.WorksheetImage
		url    sql.NullString
		imgErr sql.NullString
	)
	err := row.Scan(
		&img.ID,
		&img.WorksheetID,
		&img.Slot,
		&img.Prompt,
		&img.Status,
		&url,
		&imgErr,
		&img.CreatedAt,
		&img.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	img.URL = url.String
	img.Error = imgErr.String
	return &img, nil
}
