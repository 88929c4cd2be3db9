package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sproutwell/sproutwell-api/internal/domain"
	"github.com/sproutwell/sproutwell-api/internal/service/auth"
)

func testFlag(t *testing.T, worksheetID, reporterID uuid.UUID) *domain.Flag {
	t.Helper()
	f, err := domain.NewFlag(worksheetID, reporterID, domain.FlagReasonInaccurate, "ages look wrong")
	require.NoError(t, err)
	return f
}

func TestFlagSubmit(t *testing.T) {
	reporterID := uuid.New()
	worksheetID := uuid.New()
	flag := testFlag(t, worksheetID, reporterID)

	tests := []struct {
		name           string
		body           interface{}
		serviceError   error
		expectedStatus int
	}{
		{
			name:           "Created",
			body:           SubmitFlagRequest{Reason: domain.FlagReasonInaccurate, Details: "ages look wrong"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Unknown Reason Rejected",
			body:           SubmitFlagRequest{Reason: "BORING"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Unpublished Worksheet Conflicts",
			body:           SubmitFlagRequest{Reason: domain.FlagReasonSpam},
			serviceError:   domain.ErrStateConflict,
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mockService := &mockModerationService{
				submitFn: func(ctx context.Context, rID, wsID uuid.UUID, reason domain.FlagReason, details string) (*domain.Flag, error) {
					assert.Equal(t, reporterID, rID)
					assert.Equal(t, worksheetID, wsID)
					if tc.serviceError != nil {
						return nil, tc.serviceError
					}
					return flag, nil
				},
			}
			handler := NewFlagHandler(mockService, testLogger())

			req := newTestRequest(t, http.MethodPost, "/api/worksheets/"+worksheetID.String()+"/flags",
				tc.body, reporterID, auth.RoleCaregiver, map[string]string{"id": worksheetID.String()})
			rr := httptest.NewRecorder()

			handler.Submit(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code)
		})
	}
}

func TestFlagResolve(t *testing.T) {
	adminID := uuid.New()
	worksheetID := uuid.New()

	t.Run("actioned decision returns the resolved flag", func(t *testing.T) {
		flag := testFlag(t, worksheetID, uuid.New())
		require.NoError(t, flag.Resolve(adminID, domain.FlagStatusActioned, "removed from community", time.Now()))

		mockService := &mockModerationService{
			resolveFn: func(ctx context.Context, moderatorID, flagID uuid.UUID, status domain.FlagStatus, resolution string) (*domain.Flag, error) {
				assert.Equal(t, adminID, moderatorID)
				assert.Equal(t, flag.ID, flagID)
				assert.Equal(t, domain.FlagStatusActioned, status)
				return flag, nil
			},
		}
		handler := NewFlagHandler(mockService, testLogger())

		req := newTestRequest(t, http.MethodPost, "/api/flags/"+flag.ID.String()+"/resolve",
			ResolveFlagRequest{Status: domain.FlagStatusActioned, Resolution: "removed from community"},
			adminID, auth.RoleAdmin, map[string]string{"id": flag.ID.String()})
		rr := httptest.NewRecorder()

		handler.Resolve(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var got domain.Flag
		decodeBody(t, rr, &got)
		assert.Equal(t, domain.FlagStatusActioned, got.Status)
		assert.NotNil(t, got.ResolvedAt)
	})

	t.Run("pending is not a resolution", func(t *testing.T) {
		flag := testFlag(t, worksheetID, uuid.New())
		handler := NewFlagHandler(&mockModerationService{}, testLogger())

		req := newTestRequest(t, http.MethodPost, "/api/flags/"+flag.ID.String()+"/resolve",
			ResolveFlagRequest{Status: domain.FlagStatusPending},
			adminID, auth.RoleAdmin, map[string]string{"id": flag.ID.String()})
		rr := httptest.NewRecorder()

		handler.Resolve(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("double resolution conflicts", func(t *testing.T) {
		flag := testFlag(t, worksheetID, uuid.New())
		mockService := &mockModerationService{
			resolveFn: func(ctx context.Context, moderatorID, flagID uuid.UUID, status domain.FlagStatus, resolution string) (*domain.Flag, error) {
				return nil, domain.ErrStateConflict
			},
		}
		handler := NewFlagHandler(mockService, testLogger())

		req := newTestRequest(t, http.MethodPost, "/api/flags/"+flag.ID.String()+"/resolve",
			ResolveFlagRequest{Status: domain.FlagStatusDismissed},
			adminID, auth.RoleAdmin, map[string]string{"id": flag.ID.String()})
		rr := httptest.NewRecorder()

		handler.Resolve(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestFlagListPending(t *testing.T) {
	flag := testFlag(t, uuid.New(), uuid.New())

	mockService := &mockModerationService{
		listPendingFn: func(ctx context.Context, limit, offset int) ([]*domain.Flag, error) {
			assert.Equal(t, 20, limit)
			assert.Equal(t, 0, offset)
			return []*domain.Flag{flag}, nil
		},
	}
	handler := NewFlagHandler(mockService, testLogger())

	req := newTestRequest(t, http.MethodGet, "/api/flags?status=pending",
		nil, uuid.New(), auth.RoleAdmin, nil)
	rr := httptest.NewRecorder()

	handler.ListPending(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got FlagListResponse
	decodeBody(t, rr, &got)
	assert.Len(t, got.Flags, 1)
	assert.Equal(t, domain.FlagStatusPending, got.Flags[0].Status)
}

func TestFlagListForWorksheet(t *testing.T) {
	worksheetID := uuid.New()
	flag := testFlag(t, worksheetID, uuid.New())

	mockService := &mockModerationService{
		listFn: func(ctx context.Context, wsID uuid.UUID) ([]*domain.Flag, error) {
			assert.Equal(t, worksheetID, wsID)
			return []*domain.Flag{flag}, nil
		},
	}
	handler := NewFlagHandler(mockService, testLogger())

	req := newTestRequest(t, http.MethodGet, "/api/worksheets/"+worksheetID.String()+"/flags",
		nil, uuid.New(), auth.RoleAdmin, map[string]string{"id": worksheetID.String()})
	rr := httptest.NewRecorder()

	handler.ListForWorksheet(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got FlagListResponse
	decodeBody(t, rr, &got)
	assert.Len(t, got.Flags, 1)
}
