package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sproutwell/sproutwell-api/internal/domain"
	"github.com/sproutwell/sproutwell-api/internal/service"
	"github.com/sproutwell/sproutwell-api/internal/service/auth"
	"github.com/sproutwell/sproutwell-api/internal/store"
)

func validGenerationRequest() *domain.GenerationRequest {
	return &domain.GenerationRequest{
		DataSource:    domain.DataSourceManual,
		Type:          domain.WorksheetTypeActivity,
		TargetDomains: []domain.DevelopmentalDomain{domain.DomainFineMotor},
		Difficulty:    domain.DifficultyDeveloping,
		ImageCount:    2,
		Manual:        &domain.ManualInput{ChildAgeMonths: 48},
	}
}

func testWorksheet(t *testing.T, ownerID uuid.UUID) *domain.Worksheet {
	t.Helper()
	ws, err := domain.NewWorksheet(ownerID, validGenerationRequest())
	require.NoError(t, err)
	return ws
}

func TestWorksheetGenerate(t *testing.T) {
	userID := uuid.New()
	ws := testWorksheet(t, userID)

	tests := []struct {
		name           string
		userIDInCtx    uuid.UUID
		body           interface{}
		serviceResult  *domain.Worksheet
		serviceError   error
		expectedStatus int
	}{
		{
			name:           "Accepted",
			userIDInCtx:    userID,
			body:           validGenerationRequest(),
			serviceResult:  ws,
			expectedStatus: http.StatusAccepted,
		},
		{
			name:           "Validation Error",
			userIDInCtx:    userID,
			body:           validGenerationRequest(),
			serviceError:   domain.NewValidationError("difficulty", "unknown difficulty", domain.ErrValidation),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Missing User ID",
			userIDInCtx:    uuid.Nil,
			body:           validGenerationRequest(),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Service Failure",
			userIDInCtx:    userID,
			body:           validGenerationRequest(),
			serviceError:   errors.New("database error"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mockService := &mockWorksheetService{
				generateFn: func(ctx context.Context, ownerID uuid.UUID, req *domain.GenerationRequest) (*domain.Worksheet, error) {
					assert.Equal(t, tc.userIDInCtx, ownerID)
					return tc.serviceResult, tc.serviceError
				},
			}
			handler := NewWorksheetHandler(mockService, testLogger())

			req := newTestRequest(t, http.MethodPost, "/api/worksheets/generate",
				tc.body, tc.userIDInCtx, auth.RoleTherapist, nil)
			rr := httptest.NewRecorder()

			handler.Generate(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code)
			if tc.expectedStatus == http.StatusAccepted {
				var got domain.Worksheet
				decodeBody(t, rr, &got)
				assert.Equal(t, ws.ID, got.ID)
				assert.Equal(t, domain.WorksheetStatusGenerating, got.Status)
			}
		})
	}
}

func TestWorksheetGetStatus(t *testing.T) {
	worksheetID := uuid.New()

	t.Run("ready worksheet includes document links", func(t *testing.T) {
		mockService := &mockWorksheetService{
			statusFn: func(ctx context.Context, id uuid.UUID) (*service.GenerationStatus, error) {
				assert.Equal(t, worksheetID, id)
				return &service.GenerationStatus{
					WorksheetID: worksheetID,
					Status:      domain.WorksheetStatusDraft,
					PDFURL:      "/documents/" + worksheetID.String() + ".pdf",
					PreviewURL:  "/documents/" + worksheetID.String() + ".png",
				}, nil
			},
		}
		handler := NewWorksheetHandler(mockService, testLogger())

		req := newTestRequest(t, http.MethodGet, "/api/worksheets/"+worksheetID.String()+"/status",
			nil, uuid.New(), auth.RoleTherapist, map[string]string{"id": worksheetID.String()})
		rr := httptest.NewRecorder()

		handler.GetStatus(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var got service.GenerationStatus
		decodeBody(t, rr, &got)
		assert.Equal(t, domain.WorksheetStatusDraft, got.Status)
		assert.NotEmpty(t, got.PDFURL)
	})

	t.Run("unknown worksheet maps to 404", func(t *testing.T) {
		mockService := &mockWorksheetService{
			statusFn: func(ctx context.Context, id uuid.UUID) (*service.GenerationStatus, error) {
				return nil, service.ErrWorksheetNotFound
			},
		}
		handler := NewWorksheetHandler(mockService, testLogger())

		req := newTestRequest(t, http.MethodGet, "/api/worksheets/"+worksheetID.String()+"/status",
			nil, uuid.New(), auth.RoleTherapist, map[string]string{"id": worksheetID.String()})
		rr := httptest.NewRecorder()

		handler.GetStatus(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("malformed worksheet ID maps to 400", func(t *testing.T) {
		handler := NewWorksheetHandler(&mockWorksheetService{}, testLogger())

		req := newTestRequest(t, http.MethodGet, "/api/worksheets/not-a-uuid/status",
			nil, uuid.New(), auth.RoleTherapist, map[string]string{"id": "not-a-uuid"})
		rr := httptest.NewRecorder()

		handler.GetStatus(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestWorksheetTransitions(t *testing.T) {
	ownerID := uuid.New()
	ws := testWorksheet(t, ownerID)
	require.NoError(t, ws.MarkDraft([]byte(`{"sections":[]}`)))

	tests := []struct {
		name           string
		invoke         func(h *WorksheetHandler, w http.ResponseWriter, r *http.Request)
		serviceError   error
		expectedStatus int
	}{
		{
			name:           "Publish",
			invoke:         (*WorksheetHandler).Publish,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Unpublish",
			invoke:         (*WorksheetHandler).Unpublish,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Archive",
			invoke:         (*WorksheetHandler).Archive,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Non-owner forbidden",
			invoke:         (*WorksheetHandler).Publish,
			serviceError:   service.ErrForbidden,
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "Illegal transition conflicts",
			invoke:         (*WorksheetHandler).Archive,
			serviceError:   domain.ErrStateConflict,
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			transition := func(ctx context.Context, actorID, id uuid.UUID) (*domain.Worksheet, error) {
				assert.Equal(t, ownerID, actorID)
				assert.Equal(t, ws.ID, id)
				if tc.serviceError != nil {
					return nil, tc.serviceError
				}
				return ws, nil
			}
			mockService := &mockWorksheetService{
				publishFn:   transition,
				unpublishFn: transition,
				archiveFn:   transition,
			}
			handler := NewWorksheetHandler(mockService, testLogger())

			req := newTestRequest(t, http.MethodPost, "/api/worksheets/"+ws.ID.String()+"/publish",
				nil, ownerID, auth.RoleTherapist, map[string]string{"id": ws.ID.String()})
			rr := httptest.NewRecorder()

			tc.invoke(handler, rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code)
		})
	}
}

func TestWorksheetClone(t *testing.T) {
	userID := uuid.New()
	source := testWorksheet(t, uuid.New())
	require.NoError(t, source.MarkDraft([]byte(`{"sections":[]}`)))
	require.NoError(t, source.Publish(time.Now()))

	clone, err := source.Clone(userID)
	require.NoError(t, err)

	mockService := &mockWorksheetService{
		cloneFn: func(ctx context.Context, actorID, id uuid.UUID) (*domain.Worksheet, error) {
			assert.Equal(t, userID, actorID)
			assert.Equal(t, source.ID, id)
			return clone, nil
		},
	}
	handler := NewWorksheetHandler(mockService, testLogger())

	req := newTestRequest(t, http.MethodPost, "/api/worksheets/"+source.ID.String()+"/clone",
		nil, userID, auth.RoleCaregiver, map[string]string{"id": source.ID.String()})
	rr := httptest.NewRecorder()

	handler.Clone(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var got domain.Worksheet
	decodeBody(t, rr, &got)
	assert.Equal(t, clone.ID, got.ID)
	assert.Equal(t, userID, got.OwnerID)
}

func TestWorksheetBrowse(t *testing.T) {
	ownerID := uuid.New()
	published := testWorksheet(t, ownerID)

	t.Run("community browse parses filters", func(t *testing.T) {
		var captured store.WorksheetFilter
		mockService := &mockWorksheetService{
			browseCommunityFn: func(ctx context.Context, filter store.WorksheetFilter) (*service.CommunityPage, error) {
				captured = filter
				return &service.CommunityPage{
					Worksheets: []*domain.Worksheet{published},
					Total:      42,
				}, nil
			},
		}
		handler := NewWorksheetHandler(mockService, testLogger())

		target := "/api/worksheets?domain=FINE_MOTOR&difficulty=DEVELOPING&sort=top_rated&age_months=48&limit=5"
		req := newTestRequest(t, http.MethodGet, target, nil, uuid.New(), auth.RoleCaregiver, nil)
		rr := httptest.NewRecorder()

		handler.Browse(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, domain.DomainFineMotor, captured.TargetDomain)
		assert.Equal(t, domain.DifficultyDeveloping, captured.Difficulty)
		assert.Equal(t, store.SortTopRated, captured.Sort)
		assert.Equal(t, 48, captured.AgeMonths)
		assert.Equal(t, 5, captured.Limit)

		var got WorksheetListResponse
		decodeBody(t, rr, &got)
		assert.Equal(t, 42, got.Total)
		assert.Len(t, got.Worksheets, 1)
	})

	t.Run("mine lists owned worksheets", func(t *testing.T) {
		mockService := &mockWorksheetService{
			listOwnedFn: func(ctx context.Context, owner uuid.UUID, filter store.WorksheetFilter) ([]*domain.Worksheet, error) {
				assert.Equal(t, ownerID, owner)
				return []*domain.Worksheet{published}, nil
			},
		}
		handler := NewWorksheetHandler(mockService, testLogger())

		req := newTestRequest(t, http.MethodGet, "/api/worksheets?mine=true",
			nil, ownerID, auth.RoleTherapist, nil)
		rr := httptest.NewRecorder()

		handler.Browse(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var got WorksheetListResponse
		decodeBody(t, rr, &got)
		assert.Equal(t, 1, got.Total)
	})
}

func TestWorksheetVersions(t *testing.T) {
	ownerID := uuid.New()
	parent := testWorksheet(t, ownerID)
	require.NoError(t, parent.MarkDraft(json.RawMessage(`{"sections":[]}`)))

	t.Run("create version", func(t *testing.T) {
		version, err := parent.NewVersion()
		require.NoError(t, err)

		mockService := &mockWorksheetService{
			createVersionFn: func(ctx context.Context, actorID, id uuid.UUID) (*domain.Worksheet, error) {
				return version, nil
			},
		}
		handler := NewWorksheetHandler(mockService, testLogger())

		req := newTestRequest(t, http.MethodPost, "/api/worksheets/"+parent.ID.String()+"/versions",
			nil, ownerID, auth.RoleTherapist, map[string]string{"id": parent.ID.String()})
		rr := httptest.NewRecorder()

		handler.CreateVersion(rr, req)

		require.Equal(t, http.StatusCreated, rr.Code)
		var got domain.Worksheet
		decodeBody(t, rr, &got)
		assert.Equal(t, parent.Version+1, got.Version)
	})

	t.Run("list versions", func(t *testing.T) {
		mockService := &mockWorksheetService{
			listVersionsFn: func(ctx context.Context, id uuid.UUID) ([]*domain.Worksheet, error) {
				return []*domain.Worksheet{parent}, nil
			},
		}
		handler := NewWorksheetHandler(mockService, testLogger())

		req := newTestRequest(t, http.MethodGet, "/api/worksheets/"+parent.ID.String()+"/versions",
			nil, ownerID, auth.RoleTherapist, map[string]string{"id": parent.ID.String()})
		rr := httptest.NewRecorder()

		handler.ListVersions(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var got WorksheetListResponse
		decodeBody(t, rr, &got)
		assert.Equal(t, 1, got.Total)
	})
}

func TestWorksheetListImages(t *testing.T) {
	worksheetID := uuid.New()
	img, err := domain.NewWorksheetImage(worksheetID, 0, "a child buttoning a shirt")
	require.NoError(t, err)
	img.MarkFailed("upstream timeout")

	mockService := &mockWorksheetService{
		listImagesFn: func(ctx context.Context, id uuid.UUID) ([]*domain.WorksheetImage, error) {
			assert.Equal(t, worksheetID, id)
			return []*domain.WorksheetImage{img}, nil
		},
	}
	handler := NewWorksheetHandler(mockService, testLogger())

	req := newTestRequest(t, http.MethodGet, "/api/worksheets/"+worksheetID.String()+"/images",
		nil, uuid.New(), auth.RoleCaregiver, map[string]string{"id": worksheetID.String()})
	rr := httptest.NewRecorder()

	handler.ListImages(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got ImageListResponse
	decodeBody(t, rr, &got)
	require.Len(t, got.Images, 1)
	assert.Equal(t, domain.ImageStatusFailed, got.Images[0].Status)
}

func TestWorksheetRegenerateImage(t *testing.T) {
	ownerID := uuid.New()
	worksheetID := uuid.New()

	t.Run("accepted", func(t *testing.T) {
		pending, err := domain.NewWorksheetImage(worksheetID, 1, "a sensory bin with rice")
		require.NoError(t, err)

		mockService := &mockWorksheetService{
			regenerateImageFn: func(ctx context.Context, actorID, id uuid.UUID, slot int) (*domain.WorksheetImage, error) {
				assert.Equal(t, ownerID, actorID)
				assert.Equal(t, worksheetID, id)
				assert.Equal(t, 1, slot)
				return pending, nil
			},
		}
		handler := NewWorksheetHandler(mockService, testLogger())

		req := newTestRequest(t, http.MethodPost,
			"/api/worksheets/"+worksheetID.String()+"/images/1/regenerate",
			nil, ownerID, auth.RoleCaregiver,
			map[string]string{"id": worksheetID.String(), "slot": "1"})
		rr := httptest.NewRecorder()

		handler.RegenerateImage(rr, req)

		require.Equal(t, http.StatusAccepted, rr.Code)
		var got domain.WorksheetImage
		decodeBody(t, rr, &got)
		assert.Equal(t, domain.ImageStatusPending, got.Status)
	})

	t.Run("invalid slot", func(t *testing.T) {
		handler := NewWorksheetHandler(&mockWorksheetService{}, testLogger())

		req := newTestRequest(t, http.MethodPost,
			"/api/worksheets/"+worksheetID.String()+"/images/first/regenerate",
			nil, ownerID, auth.RoleCaregiver,
			map[string]string{"id": worksheetID.String(), "slot": "first"})
		rr := httptest.NewRecorder()

		handler.RegenerateImage(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("non-owner maps to 403", func(t *testing.T) {
		mockService := &mockWorksheetService{
			regenerateImageFn: func(ctx context.Context, actorID, id uuid.UUID, slot int) (*domain.WorksheetImage, error) {
				return nil, service.ErrForbidden
			},
		}
		handler := NewWorksheetHandler(mockService, testLogger())

		req := newTestRequest(t, http.MethodPost,
			"/api/worksheets/"+worksheetID.String()+"/images/0/regenerate",
			nil, uuid.New(), auth.RoleCaregiver,
			map[string]string{"id": worksheetID.String(), "slot": "0"})
		rr := httptest.NewRecorder()

		handler.RegenerateImage(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("unknown slot maps to 404", func(t *testing.T) {
		mockService := &mockWorksheetService{
			regenerateImageFn: func(ctx context.Context, actorID, id uuid.UUID, slot int) (*domain.WorksheetImage, error) {
				return nil, service.ErrImageNotFound
			},
		}
		handler := NewWorksheetHandler(mockService, testLogger())

		req := newTestRequest(t, http.MethodPost,
			"/api/worksheets/"+worksheetID.String()+"/images/7/regenerate",
			nil, ownerID, auth.RoleCaregiver,
			map[string]string{"id": worksheetID.String(), "slot": "7"})
		rr := httptest.NewRecorder()

		handler.RegenerateImage(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
