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

const flagColumns = `
	id, worksheet_id, reporter_id, reason, details, status,
	resolved_by_id, resolution, resolved_at, created_at`

// PostgresFlagStore implements the store.FlagStore interface
// using a PostgreSQL database as the storage backend.
type PostgresFlagStore struct {
	db     store.DBTX
	conn   *sql.DB
	logger *slog.Logger
}

// NewPostgresFlagStore creates a new PostgreSQL implementation of the
// FlagStore interface. If logger is nil a default is used.
func NewPostgresFlagStore(db *sql.DB, logger *slog.Logger) *PostgresFlagStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresFlagStore{
		db:     db,
		conn:   db,
		logger: logger.With(slog.String("component", "flag_store")),
	}
}

// Ensure PostgresFlagStore implements store.FlagStore interface
var _ store.FlagStore = (*PostgresFlagStore)(nil)

// WithTx implements store.FlagStore.WithTx
func (s *PostgresFlagStore) WithTx(tx *sql.Tx) store.FlagStore {
	return &PostgresFlagStore{
		db:     tx,
		conn:   s.conn,
		logger: s.logger,
	}
}

// DB returns the underlying database connection for transaction management.
func (s *PostgresFlagStore) DB() *sql.DB {
	return s.conn
}

// Create implements store.FlagStore.Create
func (s *PostgresFlagStore) Create(ctx context.Context, f *domain.Flag) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := f.Validate(); err != nil {
		log.Warn("flag validation failed during create",
			slog.String("error", err.Error()),
			slog.String("flag_id", f.ID.String()))
		return err
	}

	query := `
		INSERT INTO flags (` + flagColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		f.ID,
		f.WorksheetID,
		f.ReporterID,
		f.Reason,
		f.Details,
		f.Status,
		nullableUUID(f.ResolvedByID),
		f.Resolution,
		nullableTime(f.ResolvedAt),
		f.CreatedAt,
	)
	if err != nil {
		log.Error("failed to create flag",
			slog.String("error", err.Error()),
			slog.String("flag_id", f.ID.String()),
			slog.String("worksheet_id", f.WorksheetID.String()))
		return MapError(err)
	}

	log.Info("flag created successfully",
		slog.String("flag_id", f.ID.String()),
		slog.String("worksheet_id", f.WorksheetID.String()),
		slog.String("reason", string(f.Reason)))
	return nil
}

// GetByID implements store.FlagStore.GetByID
func (s *PostgresFlagStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Flag, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + flagColumns + ` FROM flags WHERE id = $1`

	f, err := scanFlag(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrFlagNotFound
		}
		log.Error("failed to get flag by ID",
			slog.String("error", err.Error()),
			slog.String("flag_id", id.String()))
		return nil, MapError(err)
	}
	return f, nil
}

// Update implements store.FlagStore.Update
func (s *PostgresFlagStore) Update(ctx context.Context, f *domain.Flag) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := f.Validate(); err != nil {
		log.Warn("flag validation failed during update",
			slog.String("error", err.Error()),
			slog.String("flag_id", f.ID.String()))
		return err
	}

	query := `
		UPDATE flags
		SET status = $1, resolved_by_id = $2, resolution = $3, resolved_at = $4
		WHERE id = $5
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		f.Status,
		nullableUUID(f.ResolvedByID),
		f.Resolution,
		nullableTime(f.ResolvedAt),
		f.ID,
	)
	if err != nil {
		log.Error("failed to update flag",
			slog.String("error", err.Error()),
			slog.String("flag_id", f.ID.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "flag"); err != nil {
		return store.ErrFlagNotFound
	}

	log.Info("flag updated successfully",
		slog.String("flag_id", f.ID.String()),
		slog.String("status", string(f.Status)))
	return nil
}

// ListByStatus implements store.FlagStore.ListByStatus
// Oldest first so the moderation queue drains in submission order.
func (s *PostgresFlagStore) ListByStatus(
	ctx context.Context,
	status domain.FlagStatus,
	limit, offset int,
) ([]*domain.Flag, error) {
	query := `SELECT ` + flagColumns + `
		FROM flags
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`
	return s.queryFlags(ctx, query, status, listLimit(limit), listOffset(offset))
}

// ListByWorksheet implements store.FlagStore.ListByWorksheet
func (s *PostgresFlagStore) ListByWorksheet(
	ctx context.Context,
	worksheetID uuid.UUID,
) ([]*domain.Flag, error) {
	query := `SELECT ` + flagColumns + `
		FROM flags
		WHERE worksheet_id = $1
		ORDER BY created_at DESC
	`
	return s.queryFlags(ctx, query, worksheetID)
}

// CountPendingByWorksheet implements store.FlagStore.CountPendingByWorksheet
func (s *PostgresFlagStore) CountPendingByWorksheet(
	ctx context.Context,
	worksheetID uuid.UUID,
) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var count int
	query := `SELECT COUNT(*) FROM flags WHERE worksheet_id = $1 AND status = $2`
	err := s.db.QueryRowContext(ctx, query, worksheetID, domain.FlagStatusPending).Scan(&count)
	if err != nil {
		log.Error("failed to count pending flags",
			slog.String("error", err.Error()),
			slog.String("worksheet_id", worksheetID.String()))
		return 0, MapError(err)
	}
	return count, nil
}

func (s *PostgresFlagStore) queryFlags(
	ctx context.Context,
	query string,
	args ...any,
) ([]*domain.Flag, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query flags", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	flags := []*domain.Flag{}
	for rows.Next() {
		f, err := scanFlag(rows)
		if err != nil {
			return nil, err
		}
		flags = append(flags, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return flags, nil
}

// scanFlag reads one flag row in flagColumns order.
func scanFlag(row rowScanner) (*domain.Flag, error) {
	var (
		f            domain.Flag
		details      sql.NullString
		resolvedByID uuid.NullUUID
		resolution   sql.NullString
		resolvedAt   sql.NullTime
	)
	err := row.Scan(
		&f.ID,
		&f.WorksheetID,
		&f.ReporterID,
		&f.Reason,
		&details,
		&f.Status,
		&resolvedByID,
		&resolution,
		&resolvedAt,
		&f.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.Details = details.String
	f.Resolution = resolution.String
	f.ResolvedByID = uuidPtr(resolvedByID)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		f.ResolvedAt = &t
	}
	return &f, nil
}
