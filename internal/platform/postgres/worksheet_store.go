package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sproutwell/sproutwell-api/internal/domain"
	"github.com/sproutwell/sproutwell-api/internal/platform/logger"
	"github.com/sproutwell/sproutwell-api/internal/store"
)

// worksheetColumns is the canonical select list shared by every worksheet query.
const worksheetColumns = `
	id, owner_id, title, type, sub_type, difficulty, color_mode, content,
	target_domains, condition_tags, age_range_min, age_range_max, status,
	visibility, average_rating, review_count, cloned_from_id, clone_count,
	version, parent_version_id, child_id, case_id, screening_id, report_id,
	generation_error, published_at, created_at, updated_at`

// PostgresWorksheetStore implements the store.WorksheetStore interface
// using a PostgreSQL database as the storage backend.
type PostgresWorksheetStore struct {
	db     store.DBTX
	conn   *sql.DB
	logger *slog.Logger
}

// NewPostgresWorksheetStore creates a new PostgreSQL implementation of the
// WorksheetStore interface. It accepts the database connection; transactional
// copies are derived through WithTx. If logger is nil a default is used.
func NewPostgresWorksheetStore(db *sql.DB, logger *slog.Logger) *PostgresWorksheetStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresWorksheetStore{
		db:     db,
		conn:   db,
		logger: logger.With(slog.String("component", "worksheet_store")),
	}
}

// Ensure PostgresWorksheetStore implements store.WorksheetStore interface
var _ store.WorksheetStore = (*PostgresWorksheetStore)(nil)

// WithTx implements store.WorksheetStore.WithTx
func (s *PostgresWorksheetStore) WithTx(tx *sql.Tx) store.WorksheetStore {
	return &PostgresWorksheetStore{
		db:     tx,
		conn:   s.conn,
		logger: s.logger,
	}
}

// DB returns the underlying database connection for transaction management.
func (s *PostgresWorksheetStore) DB() *sql.DB {
	return s.conn
}

// Create implements store.WorksheetStore.Create
func (s *PostgresWorksheetStore) Create(ctx context.Context, ws *domain.Worksheet) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := ws.Validate(); err != nil {
		log.Warn("worksheet validation failed during create",
			slog.String("error", err.Error()),
			slog.String("worksheet_id", ws.ID.String()))
		return err
	}

	domainsJSON, tagsJSON, err := marshalWorksheetLists(ws)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO worksheets (` + worksheetColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		ws.ID,
		ws.OwnerID,
		ws.Title,
		ws.Type,
		ws.SubType,
		ws.Difficulty,
		ws.ColorMode,
		nullableJSON(ws.Content),
		domainsJSON,
		tagsJSON,
		ws.AgeRangeMin,
		ws.AgeRangeMax,
		ws.Status,
		ws.Visibility,
		ws.AverageRating,
		ws.ReviewCount,
		nullableUUID(ws.ClonedFromID),
		ws.CloneCount,
		ws.Version,
		nullableUUID(ws.ParentVersionID),
		nullableUUID(ws.ChildID),
		nullableUUID(ws.CaseID),
		nullableUUID(ws.ScreeningID),
		nullableUUID(ws.ReportID),
		ws.GenerationError,
		nullableTime(ws.PublishedAt),
		ws.CreatedAt,
		ws.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create worksheet",
			slog.String("error", err.Error()),
			slog.String("worksheet_id", ws.ID.String()),
			slog.String("owner_id", ws.OwnerID.String()))
		return MapError(err)
	}

	log.Info("worksheet created successfully",
		slog.String("worksheet_id", ws.ID.String()),
		slog.String("owner_id", ws.OwnerID.String()),
		slog.String("status", string(ws.Status)))
	return nil
}

// GetByID implements store.WorksheetStore.GetByID
func (s *PostgresWorksheetStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Worksheet, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + worksheetColumns + ` FROM worksheets WHERE id = $1`

	ws, err := scanWorksheet(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("worksheet not found", slog.String("worksheet_id", id.String()))
			return nil, store.ErrWorksheetNotFound
		}
		log.Error("failed to get worksheet by ID",
			slog.String("error", err.Error()),
			slog.String("worksheet_id", id.String()))
		return nil, MapError(err)
	}
	return ws, nil
}

// Update implements store.WorksheetStore.Update
// It writes every mutable column; status moves are validated by the domain
// layer before the worksheet reaches the store.
func (s *PostgresWorksheetStore) Update(ctx context.Context, ws *domain.Worksheet) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := ws.Validate(); err != nil {
		log.Warn("worksheet validation failed during update",
			slog.String("error", err.Error()),
			slog.String("worksheet_id", ws.ID.String()))
		return err
	}

	domainsJSON, tagsJSON, err := marshalWorksheetLists(ws)
	if err != nil {
		return err
	}

	query := `
		UPDATE worksheets
		SET title = $1, type = $2, sub_type = $3, difficulty = $4,
			color_mode = $5, content = $6, target_domains = $7,
			condition_tags = $8, age_range_min = $9, age_range_max = $10,
			status = $11, visibility = $12, generation_error = $13,
			published_at = $14, updated_at = $15
		WHERE id = $16
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		ws.Title,
		ws.Type,
		ws.SubType,
		ws.Difficulty,
		ws.ColorMode,
		nullableJSON(ws.Content),
		domainsJSON,
		tagsJSON,
		ws.AgeRangeMin,
		ws.AgeRangeMax,
		ws.Status,
		ws.Visibility,
		ws.GenerationError,
		nullableTime(ws.PublishedAt),
		time.Now().UTC(),
		ws.ID,
	)
	if err != nil {
		log.Error("failed to update worksheet",
			slog.String("error", err.Error()),
			slog.String("worksheet_id", ws.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "worksheet"); err != nil {
		log.Debug("worksheet not found for update",
			slog.String("worksheet_id", ws.ID.String()))
		return store.ErrWorksheetNotFound
	}

	log.Debug("worksheet updated successfully",
		slog.String("worksheet_id", ws.ID.String()),
		slog.String("status", string(ws.Status)))
	return nil
}

// ListByOwner implements store.WorksheetStore.ListByOwner
func (s *PostgresWorksheetStore) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	filter store.WorksheetFilter,
) ([]*domain.Worksheet, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	conditions := []string{"owner_id = $1"}
	args := []any{ownerID}
	conditions, args = appendWorksheetFilter(conditions, args, filter)

	query := `SELECT ` + worksheetColumns + `
		FROM worksheets
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY created_at DESC` + limitOffsetClause(len(args))
	args = append(args, listLimit(filter.Limit), listOffset(filter.Offset))

	worksheets, err := s.queryWorksheets(ctx, query, args...)
	if err != nil {
		log.Error("failed to list worksheets by owner",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()))
		return nil, MapError(err)
	}
	return worksheets, nil
}

// ListPublished implements store.WorksheetStore.ListPublished
// Only published, visible worksheets are community-browsable.
func (s *PostgresWorksheetStore) ListPublished(
	ctx context.Context,
	filter store.WorksheetFilter,
) ([]*domain.Worksheet, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	conditions := []string{"status = $1", "visibility = TRUE"}
	args := []any{domain.WorksheetStatusPublished}
	conditions, args = appendWorksheetFilter(conditions, args, filter)
	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM worksheets WHERE ` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		log.Error("failed to count published worksheets",
			slog.String("error", err.Error()))
		return nil, 0, MapError(err)
	}

	query := `SELECT ` + worksheetColumns + `
		FROM worksheets
		WHERE ` + where + `
		ORDER BY ` + communityOrderClause(filter.Sort) +
		limitOffsetClause(len(args))
	args = append(args, listLimit(filter.Limit), listOffset(filter.Offset))

	worksheets, err := s.queryWorksheets(ctx, query, args...)
	if err != nil {
		log.Error("failed to list published worksheets",
			slog.String("error", err.Error()))
		return nil, 0, MapError(err)
	}
	return worksheets, total, nil
}

// ListVersions implements store.WorksheetStore.ListVersions
// It walks up to the lineage root, then collects the whole version tree.
func (s *PostgresWorksheetStore) ListVersions(ctx context.Context, id uuid.UUID) ([]*domain.Worksheet, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		WITH RECURSIVE ancestors AS (
			SELECT id, parent_version_id FROM worksheets WHERE id = $1
			UNION ALL
			SELECT w.id, w.parent_version_id
			FROM worksheets w
			JOIN ancestors a ON a.parent_version_id = w.id
		), lineage AS (
			SELECT id FROM ancestors WHERE parent_version_id IS NULL
			UNION ALL
			SELECT w.id
			FROM worksheets w
			JOIN lineage l ON w.parent_version_id = l.id
		)
		SELECT ` + worksheetColumns + `
		FROM worksheets
		WHERE id IN (SELECT id FROM lineage)
		ORDER BY version ASC, created_at ASC
	`

	worksheets, err := s.queryWorksheets(ctx, query, id)
	if err != nil {
		log.Error("failed to list worksheet versions",
			slog.String("error", err.Error()),
			slog.String("worksheet_id", id.String()))
		return nil, MapError(err)
	}
	if len(worksheets) == 0 {
		return nil, store.ErrWorksheetNotFound
	}
	return worksheets, nil
}

// IncrementCloneCount implements store.WorksheetStore.IncrementCloneCount
// The bump is a single atomic statement so concurrent clones never lose counts.
func (s *PostgresWorksheetStore) IncrementCloneCount(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE worksheets
		SET clone_count = clone_count + 1, updated_at = $1
		WHERE id = $2
	`
	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to increment clone count",
			slog.String("error", err.Error()),
			slog.String("worksheet_id", id.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "worksheet"); err != nil {
		return store.ErrWorksheetNotFound
	}
	return nil
}

// RecomputeRating implements store.WorksheetStore.RecomputeRating
// Aggregates are recalculated from the reviews table in one statement, inside
// the same transaction as the review write that invalidated them.
func (s *PostgresWorksheetStore) RecomputeRating(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE worksheets w
		SET average_rating = COALESCE(agg.avg_rating, 0),
			review_count = COALESCE(agg.review_count, 0),
			updated_at = $2
		FROM (
			SELECT AVG(rating)::float8 AS avg_rating, COUNT(*) AS review_count
			FROM reviews
			WHERE worksheet_id = $1
		) agg
		WHERE w.id = $1
	`
	result, err := s.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		log.Error("failed to recompute worksheet rating",
			slog.String("error", err.Error()),
			slog.String("worksheet_id", id.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "worksheet"); err != nil {
		return store.ErrWorksheetNotFound
	}
	return nil
}

// queryWorksheets runs a worksheet select and scans all rows.
func (s *PostgresWorksheetStore) queryWorksheets(
	ctx context.Context,
	query string,
	args ...any,
) ([]*domain.Worksheet, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	worksheets := []*domain.Worksheet{}
	for rows.Next() {
		ws, err := scanWorksheet(rows)
		if err != nil {
			return nil, err
		}
		worksheets = append(worksheets, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return worksheets, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanWorksheet reads one worksheet row in worksheetColumns order.
func scanWorksheet(row rowScanner) (*domain.Worksheet, error) {
	var (
		ws              domain.Worksheet
		subType         sql.NullString
		colorMode       sql.NullString
		content         []byte
		domainsJSON     []byte
		tagsJSON        []byte
		clonedFromID    uuid.NullUUID
		parentVersionID uuid.NullUUID
		childID         uuid.NullUUID
		caseID          uuid.NullUUID
		screeningID     uuid.NullUUID
		reportID        uuid.NullUUID
		generationError sql.NullString
		publishedAt     sql.NullTime
	)

	err := row.Scan(
		&ws.ID,
		&ws.OwnerID,
		&ws.Title,
		&ws.Type,
		&subType,
		&ws.Difficulty,
		&colorMode,
		&content,
		&domainsJSON,
		&tagsJSON,
		&ws.AgeRangeMin,
		&ws.AgeRangeMax,
		&ws.Status,
		&ws.Visibility,
		&ws.AverageRating,
		&ws.ReviewCount,
		&clonedFromID,
		&ws.CloneCount,
		&ws.Version,
		&parentVersionID,
		&childID,
		&caseID,
		&screeningID,
		&reportID,
		&generationError,
		&publishedAt,
		&ws.CreatedAt,
		&ws.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	ws.SubType = subType.String
	ws.ColorMode = domain.ColorMode(colorMode.String)
	ws.Content = content
	ws.GenerationError = generationError.String
	ws.ClonedFromID = uuidPtr(clonedFromID)
	ws.ParentVersionID = uuidPtr(parentVersionID)
	ws.ChildID = uuidPtr(childID)
	ws.CaseID = uuidPtr(caseID)
	ws.ScreeningID = uuidPtr(screeningID)
	ws.ReportID = uuidPtr(reportID)
	if publishedAt.Valid {
		t := publishedAt.Time
		ws.PublishedAt = &t
	}

	if len(domainsJSON) > 0 {
		if err := json.Unmarshal(domainsJSON, &ws.TargetDomains); err != nil {
			return nil, fmt.Errorf("failed to decode target domains: %w", err)
		}
	}
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &ws.ConditionTags); err != nil {
			return nil, fmt.Errorf("failed to decode condition tags: %w", err)
		}
	}
	return &ws, nil
}

// marshalWorksheetLists encodes the JSONB list columns.
func marshalWorksheetLists(ws *domain.Worksheet) ([]byte, []byte, error) {
	domainsJSON, err := json.Marshal(ws.TargetDomains)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode target domains: %w", err)
	}
	tagsJSON, err := json.Marshal(ws.ConditionTags)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode condition tags: %w", err)
	}
	return domainsJSON, tagsJSON, nil
}

// appendWorksheetFilter adds the optional filter conditions shared by owner
// and community listings.
func appendWorksheetFilter(
	conditions []string,
	args []any,
	filter store.WorksheetFilter,
) ([]string, []any) {
	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Type != "" {
		add("type = $%d", filter.Type)
	}
	if filter.Difficulty != "" {
		add("difficulty = $%d", filter.Difficulty)
	}
	if filter.TargetDomain != "" {
		add("target_domains @> $%d", fmt.Sprintf(`["%s"]`, filter.TargetDomain))
	}
	if filter.ChildID != nil {
		add("child_id = $%d", *filter.ChildID)
	}
	if filter.AgeMonths > 0 {
		add("age_range_min <= $%d", filter.AgeMonths)
		add("age_range_max >= $%d", filter.AgeMonths)
	}
	if filter.SearchText != "" {
		add("title ILIKE $%d", "%"+filter.SearchText+"%")
	}
	return conditions, args
}

// communityOrderClause maps a community sort to its ORDER BY expression.
func communityOrderClause(sort store.CommunitySort) string {
	switch sort {
	case store.SortTopRated:
		return "average_rating DESC, review_count DESC, published_at DESC"
	case store.SortMostUsed:
		return "clone_count DESC, published_at DESC"
	default:
		return "published_at DESC"
	}
}

func limitOffsetClause(argCount int) string {
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount+1, argCount+2)
}

func listLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}

func listOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func nullableUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func uuidPtr(id uuid.NullUUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	u := id.UUID
	return &u
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
