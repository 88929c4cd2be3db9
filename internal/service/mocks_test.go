package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sproutwell/sproutwell-api/internal/domain"
	"github.com/sproutwell/sproutwell-api/internal/events"
	"github.com/sproutwell/sproutwell-api/internal/store"
)

// testLogger returns a logger that discards output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTxDB returns a sqlmock-backed connection for driving RunInTransaction.
// Tests declare the expected begin/commit/rollback sequence on the mock.
func newTxDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// mockWorksheetStore is a function-field test double for store.WorksheetStore.
// Unset fields return zero values.
type mockWorksheetStore struct {
	db               *sql.DB
	createFn         func(ctx context.Context, ws *domain.Worksheet) error
	getByIDFn        func(ctx context.Context, id uuid.UUID) (*domain.Worksheet, error)
	updateFn         func(ctx context.Context, ws *domain.Worksheet) error
	listByOwnerFn    func(ctx context.Context, ownerID uuid.UUID, filter store.WorksheetFilter) ([]*domain.Worksheet, error)
	listPublishedFn  func(ctx context.Context, filter store.WorksheetFilter) ([]*domain.Worksheet, int, error)
	listVersionsFn   func(ctx context.Context, id uuid.UUID) ([]*domain.Worksheet, error)
	incrementCloneFn func(ctx context.Context, id uuid.UUID) error
	recomputeFn      func(ctx context.Context, id uuid.UUID) error

	created    []*domain.Worksheet
	updated    []*domain.Worksheet
	recomputed []uuid.UUID
}

func (m *mockWorksheetStore) Create(ctx context.Context, ws *domain.Worksheet) error {
	m.created = append(m.created, ws)
	if m.createFn != nil {
		return m.createFn(ctx, ws)
	}
	return nil
}

func (m *mockWorksheetStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Worksheet, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrWorksheetNotFound
}

func (m *mockWorksheetStore) Update(ctx context.Context, ws *domain.Worksheet) error {
	m.updated = append(m.updated, ws)
	if m.updateFn != nil {
		return m.updateFn(ctx, ws)
	}
	return nil
}

func (m *mockWorksheetStore) ListByOwner(ctx context.Context, ownerID uuid.UUID, filter store.WorksheetFilter) ([]*domain.Worksheet, error) {
	if m.listByOwnerFn != nil {
		return m.listByOwnerFn(ctx, ownerID, filter)
	}
	return []*domain.Worksheet{}, nil
}

func (m *mockWorksheetStore) ListPublished(ctx context.Context, filter store.WorksheetFilter) ([]*domain.Worksheet, int, error) {
	if m.listPublishedFn != nil {
		return m.listPublishedFn(ctx, filter)
	}
	return []*domain.Worksheet{}, 0, nil
}

func (m *mockWorksheetStore) ListVersions(ctx context.Context, id uuid.UUID) ([]*domain.Worksheet, error) {
	if m.listVersionsFn != nil {
		return m.listVersionsFn(ctx, id)
	}
	return []*domain.Worksheet{}, nil
}

func (m *mockWorksheetStore) IncrementCloneCount(ctx context.Context, id uuid.UUID) error {
	if m.incrementCloneFn != nil {
		return m.incrementCloneFn(ctx, id)
	}
	return nil
}

func (m *mockWorksheetStore) RecomputeRating(ctx context.Context, id uuid.UUID) error {
	m.recomputed = append(m.recomputed, id)
	if m.recomputeFn != nil {
		return m.recomputeFn(ctx, id)
	}
	return nil
}

func (m *mockWorksheetStore) WithTx(tx *sql.Tx) store.WorksheetStore { return m }

func (m *mockWorksheetStore) DB() *sql.DB { return m.db }

// mockImageStore is a function-field test double for store.ImageStore.
type mockImageStore struct {
	createFn func(ctx context.Context, img *domain.WorksheetImage) error
	listFn   func(ctx context.Context, worksheetID uuid.UUID) ([]*domain.WorksheetImage, error)

	created []*domain.WorksheetImage
	updated []*domain.WorksheetImage
}

func (m *mockImageStore) Create(ctx context.Context, img *domain.WorksheetImage) error {
	m.created = append(m.created, img)
	if m.createFn != nil {
		return m.createFn(ctx, img)
	}
	return nil
}

func (m *mockImageStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.WorksheetImage, error) {
	return nil, store.ErrImageNotFound
}

func (m *mockImageStore) Update(ctx context.Context, img *domain.WorksheetImage) error {
	m.updated = append(m.updated, img)
	return nil
}

func (m *mockImageStore) ListByWorksheet(ctx context.Context, worksheetID uuid.UUID) ([]*domain.WorksheetImage, error) {
	if m.listFn != nil {
		return m.listFn(ctx, worksheetID)
	}
	return []*domain.WorksheetImage{}, nil
}

func (m *mockImageStore) WithTx(tx *sql.Tx) store.ImageStore { return m }

// mockAssignmentStore is a function-field test double for store.AssignmentStore.
type mockAssignmentStore struct {
	db               *sql.DB
	createFn         func(ctx context.Context, a *domain.Assignment) error
	getByIDFn        func(ctx context.Context, id uuid.UUID) (*domain.Assignment, error)
	updateFn         func(ctx context.Context, a *domain.Assignment) error
	listByAssigneeFn func(ctx context.Context, userID uuid.UUID, filter store.AssignmentFilter) ([]*domain.Assignment, error)
	listByAssignerFn func(ctx context.Context, userID uuid.UUID, filter store.AssignmentFilter) ([]*domain.Assignment, error)

	created []*domain.Assignment
	updated []*domain.Assignment
}

func (m *mockAssignmentStore) Create(ctx context.Context, a *domain.Assignment) error {
	m.created = append(m.created, a)
	if m.createFn != nil {
		return m.createFn(ctx, a)
	}
	return nil
}

func (m *mockAssignmentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Assignment, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrAssignmentNotFound
}

func (m *mockAssignmentStore) Update(ctx context.Context, a *domain.Assignment) error {
	m.updated = append(m.updated, a)
	if m.updateFn != nil {
		return m.updateFn(ctx, a)
	}
	return nil
}

func (m *mockAssignmentStore) ListByAssignee(ctx context.Context, userID uuid.UUID, filter store.AssignmentFilter) ([]*domain.Assignment, error) {
	if m.listByAssigneeFn != nil {
		return m.listByAssigneeFn(ctx, userID, filter)
	}
	return []*domain.Assignment{}, nil
}

func (m *mockAssignmentStore) ListByAssigner(ctx context.Context, userID uuid.UUID, filter store.AssignmentFilter) ([]*domain.Assignment, error) {
	if m.listByAssignerFn != nil {
		return m.listByAssignerFn(ctx, userID, filter)
	}
	return []*domain.Assignment{}, nil
}

func (m *mockAssignmentStore) WithTx(tx *sql.Tx) store.AssignmentStore { return m }

func (m *mockAssignmentStore) DB() *sql.DB { return m.db }

// mockCompletionStore is a function-field test double for store.CompletionStore.
type mockCompletionStore struct {
	createFn          func(ctx context.Context, c *domain.Completion) error
	listByChildFn     func(ctx context.Context, childID uuid.UUID, since time.Time) ([]*domain.Completion, error)
	listByWorksheetFn func(ctx context.Context, worksheetID uuid.UUID) ([]*domain.Completion, error)

	created []*domain.Completion
}

func (m *mockCompletionStore) Create(ctx context.Context, c *domain.Completion) error {
	m.created = append(m.created, c)
	if m.createFn != nil {
		return m.createFn(ctx, c)
	}
	return nil
}

func (m *mockCompletionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Completion, error) {
	return nil, store.ErrCompletionNotFound
}

func (m *mockCompletionStore) ListByChild(ctx context.Context, childID uuid.UUID, since time.Time) ([]*domain.Completion, error) {
	if m.listByChildFn != nil {
		return m.listByChildFn(ctx, childID, since)
	}
	return []*domain.Completion{}, nil
}

func (m *mockCompletionStore) ListByWorksheet(ctx context.Context, worksheetID uuid.UUID) ([]*domain.Completion, error) {
	if m.listByWorksheetFn != nil {
		return m.listByWorksheetFn(ctx, worksheetID)
	}
	return []*domain.Completion{}, nil
}

func (m *mockCompletionStore) WithTx(tx *sql.Tx) store.CompletionStore { return m }

// mockReviewStore is a function-field test double for store.ReviewStore.
type mockReviewStore struct {
	db          *sql.DB
	createFn    func(ctx context.Context, r *domain.Review) error
	getByIDFn   func(ctx context.Context, id uuid.UUID) (*domain.Review, error)
	deleteFn    func(ctx context.Context, id uuid.UUID) error
	listFn      func(ctx context.Context, worksheetID uuid.UUID, limit, offset int) ([]*domain.Review, error)
	incrementFn func(ctx context.Context, id uuid.UUID) error

	created []*domain.Review
	deleted []uuid.UUID
}

func (m *mockReviewStore) Create(ctx context.Context, r *domain.Review) error {
	m.created = append(m.created, r)
	if m.createFn != nil {
		return m.createFn(ctx, r)
	}
	return nil
}

func (m *mockReviewStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrReviewNotFound
}

func (m *mockReviewStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.deleted = append(m.deleted, id)
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockReviewStore) ListByWorksheet(ctx context.Context, worksheetID uuid.UUID, limit, offset int) ([]*domain.Review, error) {
	if m.listFn != nil {
		return m.listFn(ctx, worksheetID, limit, offset)
	}
	return []*domain.Review{}, nil
}

func (m *mockReviewStore) IncrementHelpfulCount(ctx context.Context, id uuid.UUID) error {
	if m.incrementFn != nil {
		return m.incrementFn(ctx, id)
	}
	return nil
}

func (m *mockReviewStore) WithTx(tx *sql.Tx) store.ReviewStore { return m }

func (m *mockReviewStore) DB() *sql.DB { return m.db }

// mockFlagStore is a function-field test double for store.FlagStore.
type mockFlagStore struct {
	db             *sql.DB
	createFn       func(ctx context.Context, f *domain.Flag) error
	getByIDFn      func(ctx context.Context, id uuid.UUID) (*domain.Flag, error)
	updateFn       func(ctx context.Context, f *domain.Flag) error
	listByStatusFn func(ctx context.Context, status domain.FlagStatus, limit, offset int) ([]*domain.Flag, error)
	countPendingFn func(ctx context.Context, worksheetID uuid.UUID) (int, error)

	created []*domain.Flag
	updated []*domain.Flag
}

func (m *mockFlagStore) Create(ctx context.Context, f *domain.Flag) error {
	m.created = append(m.created, f)
	if m.createFn != nil {
		return m.createFn(ctx, f)
	}
	return nil
}

func (m *mockFlagStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Flag, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrFlagNotFound
}

func (m *mockFlagStore) Update(ctx context.Context, f *domain.Flag) error {
	m.updated = append(m.updated, f)
	if m.updateFn != nil {
		return m.updateFn(ctx, f)
	}
	return nil
}

func (m *mockFlagStore) ListByStatus(ctx context.Context, status domain.FlagStatus, limit, offset int) ([]*domain.Flag, error) {
	if m.listByStatusFn != nil {
		return m.listByStatusFn(ctx, status, limit, offset)
	}
	return []*domain.Flag{}, nil
}

func (m *mockFlagStore) ListByWorksheet(ctx context.Context, worksheetID uuid.UUID) ([]*domain.Flag, error) {
	return []*domain.Flag{}, nil
}

func (m *mockFlagStore) CountPendingByWorksheet(ctx context.Context, worksheetID uuid.UUID) (int, error) {
	if m.countPendingFn != nil {
		return m.countPendingFn(ctx, worksheetID)
	}
	return 0, nil
}

func (m *mockFlagStore) WithTx(tx *sql.Tx) store.FlagStore { return m }

func (m *mockFlagStore) DB() *sql.DB { return m.db }

// mockScreeningStore is a function-field test double for store.ScreeningStore.
type mockScreeningStore struct {
	getScoresFn    func(ctx context.Context, screeningID uuid.UUID) ([]*domain.DomainScore, error)
	latestScoresFn func(ctx context.Context, childID uuid.UUID) ([]*domain.DomainScore, error)
	listScoresFn   func(ctx context.Context, childID uuid.UUID) ([]*domain.DomainScore, error)
}

func (m *mockScreeningStore) GetScores(ctx context.Context, screeningID uuid.UUID) ([]*domain.DomainScore, error) {
	if m.getScoresFn != nil {
		return m.getScoresFn(ctx, screeningID)
	}
	return nil, store.ErrScreeningNotFound
}

func (m *mockScreeningStore) LatestScoresByChild(ctx context.Context, childID uuid.UUID) ([]*domain.DomainScore, error) {
	if m.latestScoresFn != nil {
		return m.latestScoresFn(ctx, childID)
	}
	return []*domain.DomainScore{}, nil
}

func (m *mockScreeningStore) ListScoresByChild(ctx context.Context, childID uuid.UUID) ([]*domain.DomainScore, error) {
	if m.listScoresFn != nil {
		return m.listScoresFn(ctx, childID)
	}
	return []*domain.DomainScore{}, nil
}

func (m *mockScreeningStore) WithTx(tx *sql.Tx) store.ScreeningStore { return m }

// mockEventEmitter records emitted events.
type mockEventEmitter struct {
	events  []*events.TaskRequestEvent
	emitErr error
}

func (m *mockEventEmitter) EmitEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	if m.emitErr != nil {
		return m.emitErr
	}
	m.events = append(m.events, event)
	return nil
}

// stubLinker builds predictable document URLs.
type stubLinker struct{}

func (stubLinker) PDFURL(id uuid.UUID) string     { return "/documents/" + id.String() + ".pdf" }
func (stubLinker) PreviewURL(id uuid.UUID) string { return "/documents/" + id.String() + ".png" }
