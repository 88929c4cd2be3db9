package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/sproutwell/sproutwell-api/internal/domain"
	"github.com/sproutwell/sproutwell-api/internal/platform/logger"
	"github.com/sproutwell/sproutwell-api/internal/store"
)

const assignmentColumns = `
	id, worksheet_id, assigned_by_id, assigned_to_id, child_id, case_id,
	status, due_date, notes, parent_notes, viewed_at, completed_at,
	created_at, updated_at`

// PostgresAssignmentStore implements the store.AssignmentStore interface
// using a PostgreSQL database as the storage backend.
type PostgresAssignmentStore struct {
	db     store.DBTX
	conn   *sql.DB
	logger *slog.Logger
}

// NewPostgresAssignmentStore creates a new PostgreSQL implementation of the
// AssignmentStore interface. If logger is nil a default is used.
func NewPostgresAssignmentStore(db *sql.DB, logger *slog.Logger) *PostgresAssignmentStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAssignmentStore{
		db:     db,
		conn:   db,
		logger: logger.With(slog.String("component", "assignment_store")),
	}
}

// Ensure PostgresAssignmentStore implements store.AssignmentStore interface
var _ store.AssignmentStore = (*PostgresAssignmentStore)(nil)

// WithTx implements store.AssignmentStore.WithTx
func (s *PostgresAssignmentStore) WithTx(tx *sql.Tx) store.AssignmentStore {
	return &PostgresAssignmentStore{
		db:     tx,
		conn:   s.conn,
		logger: s.logger,
	}
}

// DB returns the underlying database connection for transaction management.
func (s *PostgresAssignmentStore) DB() *sql.DB {
	return s.conn
}

// Create implements store.AssignmentStore.Create
func (s *PostgresAssignmentStore) Create(ctx context.Context, a *domain.Assignment) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := a.Validate(); err != nil {
		log.Warn("assignment validation failed during create",
			slog.String("error", err.Error()),
			slog.String("assignment_id", a.ID.String()))
		return err
	}

	query := `
		INSERT INTO assignments (` + assignmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		a.ID,
		a.WorksheetID,
		a.AssignedByID,
		a.AssignedToID,
		a.ChildID,
		nullableUUID(a.CaseID),
		a.Status,
		nullableTime(a.DueDate),
		a.Notes,
		a.ParentNotes,
		nullableTime(a.ViewedAt),
		nullableTime(a.CompletedAt),
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create assignment",
			slog.String("error", err.Error()),
			slog.String("assignment_id", a.ID.String()),
			slog.String("worksheet_id", a.WorksheetID.String()))
		return MapError(err)
	}

	log.Info("assignment created successfully",
		slog.String("assignment_id", a.ID.String()),
		slog.String("worksheet_id", a.WorksheetID.String()),
		slog.String("assigned_to", a.AssignedToID.String()))
	return nil
}

// GetByID implements store.AssignmentStore.GetByID
func (s *PostgresAssignmentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Assignment, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`

	a, err := scanAssignment(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("assignment not found", slog.String("assignment_id", id.String()))
			return nil, store.ErrAssignmentNotFound
		}
		log.Error("failed to get assignment by ID",
			slog.String("error", err.Error()),
			slog.String("assignment_id", id.String()))
		return nil, MapError(err)
	}
	return a, nil
}

// Update implements store.AssignmentStore.Update
func (s *PostgresAssignmentStore) Update(ctx context.Context, a *domain.Assignment) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := a.Validate(); err != nil {
		log.Warn("assignment validation failed during update",
			slog.String("error", err.Error()),
			slog.String("assignment_id", a.ID.String()))
		return err
	}

	query := `
		UPDATE assignments
		SET status = $1, due_date = $2, notes = $3, parent_notes = $4,
			viewed_at = $5, completed_at = $6, updated_at = $7
		WHERE id = $8
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		a.Status,
		nullableTime(a.DueDate),
		a.Notes,
		a.ParentNotes,
		nullableTime(a.ViewedAt),
		nullableTime(a.CompletedAt),
		a.UpdatedAt,
		a.ID,
	)
	if err != nil {
		log.Error("failed to update assignment",
			slog.String("error", err.Error()),
			slog.String("assignment_id", a.ID.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "assignment"); err != nil {
		return store.ErrAssignmentNotFound
	}

	log.Debug("assignment updated successfully",
		slog.String("assignment_id", a.ID.String()),
		slog.String("status", string(a.Status)))
	return nil
}

// ListByAssignee implements store.AssignmentStore.ListByAssignee
func (s *PostgresAssignmentStore) ListByAssignee(
	ctx context.Context,
	userID uuid.UUID,
	filter store.AssignmentFilter,
) ([]*domain.Assignment, error) {
	return s.list(ctx, "assigned_to_id", userID, filter)
}

// ListByAssigner implements store.AssignmentStore.ListByAssigner
func (s *PostgresAssignmentStore) ListByAssigner(
	ctx context.Context,
	userID uuid.UUID,
	filter store.AssignmentFilter,
) ([]*domain.Assignment, error) {
	return s.list(ctx, "assigned_by_id", userID, filter)
}

func (s *PostgresAssignmentStore) list(
	ctx context.Context,
	userColumn string,
	userID uuid.UUID,
	filter store.AssignmentFilter,
) ([]*domain.Assignment, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	conditions := []string{userColumn + " = $1"}
	args := []any{userID}
	if filter.ChildID != nil {
		args = append(args, *filter.ChildID)
		conditions = append(conditions, fmt.Sprintf("child_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + assignmentColumns + `
		FROM assignments
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY created_at DESC` + limitOffsetClause(len(args))
	args = append(args, listLimit(filter.Limit), listOffset(filter.Offset))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list assignments",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	assignments := []*domain.Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assignments, nil
}

// scanAssignment reads one assignment row in assignmentColumns order.
func scanAssignment(row rowScanner) (*domain.Assignment, error) {
	var (
		a           domain.Assignment
		caseID      uuid.NullUUID
		dueDate     sql.NullTime
		notes       sql.NullString
		parentNotes sql.NullString
		viewedAt    sql.NullTime
		completedAt sql.NullTime
	)
	err := row.Scan(
		&a.ID,
		&a.WorksheetID,
		&a.AssignedByID,
		&a.AssignedToID,
		&a.ChildID,
		&caseID,
		&a.Status,
		&dueDate,
		&notes,
		&parentNotes,
		&viewedAt,
		&completedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.CaseID = uuidPtr(caseID)
	a.Notes = notes.String
	a.ParentNotes = parentNotes.String
	if dueDate.Valid {
		t := dueDate.Time
		a.DueDate = &t
	}
	if viewedAt.Valid {
		t := viewedAt.Time
		a.ViewedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		a.CompletedAt = &t
	}
	return &a, nil
}
