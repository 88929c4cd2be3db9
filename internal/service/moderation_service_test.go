package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sproutwell/sproutwell-api/internal/domain"
)

func newModerationService(
	t *testing.T,
	flags *mockFlagStore,
	worksheets *mockWorksheetStore,
) ModerationService {
	t.Helper()
	svc, err := NewModerationService(flags, worksheets, testLogger())
	require.NoError(t, err)
	return svc
}

func pendingFlag(t *testing.T, worksheetID uuid.UUID) *domain.Flag {
	t.Helper()
	f, err := domain.NewFlag(worksheetID, uuid.New(), domain.FlagReasonInaccurate, "ages look wrong")
	require.NoError(t, err)
	return f
}

func TestSubmitFlagLeavesWorksheetUntouched(t *testing.T) {
	t.Parallel()

	ws := publishedWorksheet(t, uuid.New())
	worksheets := &mockWorksheetStore{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*domain.Worksheet, error) {
			return ws, nil
		},
	}
	flags := &mockFlagStore{}
	svc := newModerationService(t, flags, worksheets)

	reporterID := uuid.New()
	flag, err := svc.SubmitFlag(context.Background(), reporterID, ws.ID, domain.FlagReasonHarmful, "unsafe cutting activity")
	require.NoError(t, err)

	assert.Equal(t, domain.FlagStatusPending, flag.Status)
	assert.Equal(t, reporterID, flag.ReporterID)
	require.Len(t, flags.created, 1)

	// Submission never moves worksheet state.
	assert.Equal(t, domain.WorksheetStatusPublished, ws.Status)
	assert.Empty(t, worksheets.updated)
}

func TestSubmitFlagRejectsUnpublished(t *testing.T) {
	t.Parallel()

	ws := draftWorksheet(t, uuid.New())
	worksheets := &mockWorksheetStore{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*domain.Worksheet, error) {
			return ws, nil
		},
	}
	flags := &mockFlagStore{}
	svc := newModerationService(t, flags, worksheets)

	_, err := svc.SubmitFlag(context.Background(), uuid.New(), ws.ID, domain.FlagReasonSpam, "")
	assert.ErrorIs(t, err, domain.ErrStateConflict)
	assert.Empty(t, flags.created)
}

func TestResolveFlagActionedPullsWorksheet(t *testing.T) {
	t.Parallel()

	db, mock := newTxDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	ws := publishedWorksheet(t, uuid.New())
	flag := pendingFlag(t, ws.ID)
	flags := &mockFlagStore{
		db: db,
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*domain.Flag, error) {
			return flag, nil
		},
	}
	worksheets := &mockWorksheetStore{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*domain.Worksheet, error) {
			return ws, nil
		},
	}
	svc := newModerationService(t, flags, worksheets)

	moderatorID := uuid.New()
	resolved, err := svc.ResolveFlag(context.Background(), moderatorID, flag.ID, domain.FlagStatusActioned, "removed pending rework")
	require.NoError(t, err)

	assert.Equal(t, domain.FlagStatusActioned, resolved.Status)
	require.NotNil(t, resolved.ResolvedByID)
	assert.Equal(t, moderatorID, *resolved.ResolvedByID)

	assert.Equal(t, domain.WorksheetStatusFlagged, ws.Status)
	assert.False(t, ws.Visibility)
	require.Len(t, worksheets.updated, 1)
	require.Len(t, flags.updated, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveFlagDismissedKeepsWorksheetPublished(t *testing.T) {
	t.Parallel()

	db, mock := newTxDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	ws := publishedWorksheet(t, uuid.New())
	flag := pendingFlag(t, ws.ID)
	flags := &mockFlagStore{
		db: db,
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*domain.Flag, error) {
			return flag, nil
		},
	}
	worksheets := &mockWorksheetStore{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*domain.Worksheet, error) {
			return ws, nil
		},
	}
	svc := newModerationService(t, flags, worksheets)

	resolved, err := svc.ResolveFlag(context.Background(), uuid.New(), flag.ID, domain.FlagStatusDismissed, "content checks out")
	require.NoError(t, err)

	assert.Equal(t, domain.FlagStatusDismissed, resolved.Status)
	assert.Equal(t, domain.WorksheetStatusPublished, ws.Status)
	assert.Empty(t, worksheets.updated)
}

func TestResolveLastFlagRestoresFlaggedWorksheet(t *testing.T) {
	t.Parallel()

	db, mock := newTxDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	ws := publishedWorksheet(t, uuid.New())
	require.NoError(t, ws.MarkFlagged())

	flag := pendingFlag(t, ws.ID)
	flags := &mockFlagStore{
		db: db,
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*domain.Flag, error) {
			return flag, nil
		},
		countPendingFn: func(ctx context.Context, worksheetID uuid.UUID) (int, error) {
			return 0, nil
		},
	}
	worksheets := &mockWorksheetStore{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*domain.Worksheet, error) {
			return ws, nil
		},
	}
	svc := newModerationService(t, flags, worksheets)

	_, err := svc.ResolveFlag(context.Background(), uuid.New(), flag.ID, domain.FlagStatusDismissed, "resolved after rework")
	require.NoError(t, err)

	assert.Equal(t, domain.WorksheetStatusPublished, ws.Status)
	assert.True(t, ws.Visibility)
	require.Len(t, worksheets.updated, 1)
}

func TestResolveFlagHoldsWhileSiblingsPend(t *testing.T) {
	t.Parallel()

	db, mock := newTxDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	ws := publishedWorksheet(t, uuid.New())
	require.NoError(t, ws.MarkFlagged())

	flag := pendingFlag(t, ws.ID)
	flags := &mockFlagStore{
		db: db,
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*domain.Flag, error) {
			return flag, nil
		},
		countPendingFn: func(ctx context.Context, worksheetID uuid.UUID) (int, error) {
			return 2, nil
		},
	}
	worksheets := &mockWorksheetStore{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*domain.Worksheet, error) {
			return ws, nil
		},
	}
	svc := newModerationService(t, flags, worksheets)

	_, err := svc.ResolveFlag(context.Background(), uuid.New(), flag.ID, domain.FlagStatusReviewed, "")
	require.NoError(t, err)

	assert.Equal(t, domain.WorksheetStatusFlagged, ws.Status)
	assert.Empty(t, worksheets.updated)
}

func TestResolveFlagTwiceIsConflict(t *testing.T) {
	t.Parallel()

	db, mock := newTxDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	ws := publishedWorksheet(t, uuid.New())
	flag := pendingFlag(t, ws.ID)
	require.NoError(t, flag.Resolve(uuid.New(), domain.FlagStatusDismissed, "", flag.CreatedAt))

	flags := &mockFlagStore{
		db: db,
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*domain.Flag, error) {
			return flag, nil
		},
	}
	svc := newModerationService(t, flags, &mockWorksheetStore{})

	_, err := svc.ResolveFlag(context.Background(), uuid.New(), flag.ID, domain.FlagStatusActioned, "")
	assert.ErrorIs(t, err, domain.ErrStateConflict)
}

func TestListPendingFlags(t *testing.T) {
	t.Parallel()

	ws := publishedWorksheet(t, uuid.New())
	queue := []*domain.Flag{pendingFlag(t, ws.ID), pendingFlag(t, ws.ID)}
	flags := &mockFlagStore{
		listByStatusFn: func(ctx context.Context, status domain.FlagStatus, limit, offset int) ([]*domain.Flag, error) {
			assert.Equal(t, domain.FlagStatusPending, status)
			return queue, nil
		},
	}
	svc := newModerationService(t, flags, &mockWorksheetStore{})

	result, err := svc.ListPendingFlags(context.Background(), 20, 0)
	require.NoError(t, err)
	assert.Len(t, result, 2)
}
