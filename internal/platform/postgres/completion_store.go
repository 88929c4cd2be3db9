package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sproutwell/sproutwell-api/internal/domain"
	"github.com/sproutwell/sproutwell-api/internal/platform/logger"
	"github.com/sproutwell/sproutwell-api/internal/store"
)

const completionColumns = `
	id, worksheet_id, child_id, assignment_id, completed_by_id,
	time_spent_minutes, difficulty_rating, engagement_rating, help_level,
	completion_quality, parent_notes, created_at`

// PostgresCompletionStore implements the store.CompletionStore interface
// using a PostgreSQL database as the storage backend. Completion rows are
// immutable once written; there is no update path.
type PostgresCompletionStore struct {
	db     store.DBTX
	conn   *sql.DB
	logger *slog.Logger
}

// NewPostgresCompletionStore creates a new PostgreSQL implementation of the
// CompletionStore interface. If logger is nil a default is used.
func NewPostgresCompletionStore(db *sql.DB, logger *slog.Logger) *PostgresCompletionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCompletionStore{
		db:     db,
		conn:   db,
		logger: logger.With(slog.String("component", "completion_store")),
	}
}

// Ensure PostgresCompletionStore implements store.CompletionStore interface
var _ store.CompletionStore = (*PostgresCompletionStore)(nil)

// WithTx implements store.CompletionStore.WithTx
func (s *PostgresCompletionStore) WithTx(tx *sql.Tx) store.CompletionStore {
	return &PostgresCompletionStore{
		db:     tx,
		conn:   s.conn,
		logger: s.logger,
	}
}

// DB returns the underlying database connection for transaction management.
func (s *PostgresCompletionStore) DB() *sql.DB {
	return s.conn
}

// Create implements store.CompletionStore.Create
// A unique index on assignment_id turns a double completion into
// store.ErrDuplicateCompletion.
func (s *PostgresCompletionStore) Create(ctx context.Context, c *domain.Completion) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := c.Validate(); err != nil {
		log.Warn("completion validation failed during create",
			slog.String("error", err.Error()),
			slog.String("completion_id", c.ID.String()))
		return err
	}

	query := `
		INSERT INTO completions (` + completionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		c.ID,
		c.WorksheetID,
		c.ChildID,
		nullableUUID(c.AssignmentID),
		c.CompletedByID,
		c.TimeSpentMinutes,
		c.DifficultyRating,
		c.EngagementRating,
		string(c.HelpLevel),
		string(c.Quality),
		c.ParentNotes,
		c.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("duplicate completion for assignment",
				slog.String("completion_id", c.ID.String()))
			return store.ErrDuplicateCompletion
		}
		log.Error("failed to create completion",
			slog.String("error", err.Error()),
			slog.String("completion_id", c.ID.String()),
			slog.String("worksheet_id", c.WorksheetID.String()))
		return MapError(err)
	}

	log.Info("completion recorded successfully",
		slog.String("completion_id", c.ID.String()),
		slog.String("worksheet_id", c.WorksheetID.String()),
		slog.String("child_id", c.ChildID.String()))
	return nil
}

// GetByID implements store.CompletionStore.GetByID
func (s *PostgresCompletionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Completion, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + completionColumns + ` FROM completions WHERE id = $1`

	c, err := scanCompletion(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCompletionNotFound
		}
		log.Error("failed to get completion by ID",
			slog.String("error", err.Error()),
			slog.String("completion_id", id.String()))
		return nil, MapError(err)
	}
	return c, nil
}

// ListByChild implements store.CompletionStore.ListByChild
func (s *PostgresCompletionStore) ListByChild(
	ctx context.Context,
	childID uuid.UUID,
	since time.Time,
) ([]*domain.Completion, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + completionColumns + `
		FROM completions
		WHERE child_id = $1 AND created_at >= $2
		ORDER BY created_at ASC
	`

	completions, err := s.queryCompletions(ctx, query, childID, since)
	if err != nil {
		log.Error("failed to list completions by child",
			slog.String("error", err.Error()),
			slog.String("child_id", childID.String()))
		return nil, MapError(err)
	}
	return completions, nil
}

// ListByWorksheet implements store.CompletionStore.ListByWorksheet
func (s *PostgresCompletionStore) ListByWorksheet(
	ctx context.Context,
	worksheetID uuid.UUID,
) ([]*domain.Completion, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + completionColumns + `
		FROM completions
		WHERE worksheet_id = $1
		ORDER BY created_at ASC
	`

	completions, err := s.queryCompletions(ctx, query, worksheetID)
	if err != nil {
		log.Error("failed to list completions by worksheet",
			slog.String("error", err.Error()),
			slog.String("worksheet_id", worksheetID.String()))
		return nil, MapError(err)
	}
	return completions, nil
}

func (s *PostgresCompletionStore) queryCompletions(
	ctx context.Context,
	query string,
	args ...any,
) ([]*domain.Completion, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	completions := []*domain.Completion{}
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, err
		}
		completions = append(completions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return completions, nil
}

// scanCompletion reads one completion row in completionColumns order.
func scanCompletion(row rowScanner) (*domain.Completion, error) {
	var (
		c            domain.Completion
		assignmentID uuid.NullUUID
		helpLevel    sql.NullString
		quality      sql.NullString
		parentNotes  sql.NullString
	)
	err := row.Scan(
		&c.ID,
		&c.WorksheetID,
		&c.ChildID,
		&assignmentID,
		&c.CompletedByID,
		&c.TimeSpentMinutes,
		&c.DifficultyRating,
		&c.EngagementRating,
		&helpLevel,
		&quality,
		&parentNotes,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.AssignmentID = uuidPtr(assignmentID)
	c.HelpLevel = domain.HelpLevel(helpLevel.String)
	c.Quality = domain.CompletionQuality(quality.String)
	c.ParentNotes = parentNotes.String
	return &c, nil
}
