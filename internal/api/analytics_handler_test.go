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
	"github.com/sproutwell/sproutwell-api/internal/service"
	"github.com/sproutwell/sproutwell-api/internal/service/auth"
)

func TestAnalyticsCompletionStats(t *testing.T) {
	childID := uuid.New()

	t.Run("returns stats with since filter", func(t *testing.T) {
		since := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
		mockService := &mockAnalyticsService{
			completionStatsFn: func(ctx context.Context, id uuid.UUID, gotSince time.Time) (*service.CompletionStats, error) {
				assert.Equal(t, childID, id)
				assert.True(t, gotSince.Equal(since))
				return &service.CompletionStats{TotalCompletions: 12}, nil
			},
		}
		handler := NewAnalyticsHandler(mockService, testLogger())

		req := newTestRequest(t, http.MethodGet,
			"/api/children/"+childID.String()+"/completion-stats?since=2026-06-01T00:00:00Z",
			nil, uuid.New(), auth.RoleCaregiver, map[string]string{"childID": childID.String()})
		rr := httptest.NewRecorder()

		handler.CompletionStats(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var got service.CompletionStats
		decodeBody(t, rr, &got)
		assert.Equal(t, 12, got.TotalCompletions)
	})

	t.Run("rejects malformed since", func(t *testing.T) {
		handler := NewAnalyticsHandler(&mockAnalyticsService{}, testLogger())

		req := newTestRequest(t, http.MethodGet,
			"/api/children/"+childID.String()+"/completion-stats?since=last-week",
			nil, uuid.New(), auth.RoleCaregiver, map[string]string{"childID": childID.String()})
		rr := httptest.NewRecorder()

		handler.CompletionStats(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAnalyticsProgress(t *testing.T) {
	childID := uuid.New()

	mockService := &mockAnalyticsService{
		progressFn: func(ctx context.Context, id uuid.UUID) ([]service.DomainProgress, error) {
			assert.Equal(t, childID, id)
			return []service.DomainProgress{
				{Domain: domain.DomainFineMotor, Trend: service.TrendImproving},
			}, nil
		},
	}
	handler := NewAnalyticsHandler(mockService, testLogger())

	req := newTestRequest(t, http.MethodGet, "/api/children/"+childID.String()+"/progress",
		nil, uuid.New(), auth.RoleTherapist, map[string]string{"childID": childID.String()})
	rr := httptest.NewRecorder()

	handler.Progress(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got struct {
		Domains []service.DomainProgress `json:"domains"`
	}
	decodeBody(t, rr, &got)
	require.Len(t, got.Domains, 1)
	assert.Equal(t, service.TrendImproving, got.Domains[0].Trend)
}

func TestAnalyticsJourney(t *testing.T) {
	childID := uuid.New()
	worksheetID := uuid.New()
	occurred := time.Date(2026, 5, 12, 0, 0, 0, 0, time.UTC)

	mockService := &mockAnalyticsService{
		journeyFn: func(ctx context.Context, id uuid.UUID) ([]service.JourneyEvent, error) {
			assert.Equal(t, childID, id)
			return []service.JourneyEvent{
				{
					OccurredAt:     occurred,
					Kind:           service.JourneyEventCompletion,
					WorksheetID:    &worksheetID,
					WorksheetTitle: "Buttoning practice board",
					Quality:        domain.QualityJustRight,
				},
			}, nil
		},
	}
	handler := NewAnalyticsHandler(mockService, testLogger())

	req := newTestRequest(t, http.MethodGet, "/api/children/"+childID.String()+"/journey",
		nil, uuid.New(), auth.RoleCaregiver, map[string]string{"childID": childID.String()})
	rr := httptest.NewRecorder()

	handler.Journey(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got struct {
		Events []service.JourneyEvent `json:"events"`
	}
	decodeBody(t, rr, &got)
	require.Len(t, got.Events, 1)
	assert.Equal(t, service.JourneyEventCompletion, got.Events[0].Kind)
	assert.Equal(t, "Buttoning practice board", got.Events[0].WorksheetTitle)
}

func TestAnalyticsRecommendations(t *testing.T) {
	childID := uuid.New()
	ws := testWorksheet(t, uuid.New())

	mockService := &mockAnalyticsService{
		recommendationsFn: func(ctx context.Context, id uuid.UUID, limit int) ([]service.Recommendation, error) {
			assert.Equal(t, childID, id)
			assert.Equal(t, 5, limit)
			return []service.Recommendation{
				{Worksheet: ws, Score: 0.86, Reasoning: "targets FINE_MOTOR"},
			}, nil
		},
	}
	handler := NewAnalyticsHandler(mockService, testLogger())

	req := newTestRequest(t, http.MethodGet,
		"/api/children/"+childID.String()+"/recommendations?limit=5",
		nil, uuid.New(), auth.RoleCaregiver, map[string]string{"childID": childID.String()})
	rr := httptest.NewRecorder()

	handler.Recommendations(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got struct {
		Recommendations []service.Recommendation `json:"recommendations"`
	}
	decodeBody(t, rr, &got)
	require.Len(t, got.Recommendations, 1)
	assert.InDelta(t, 0.86, got.Recommendations[0].Score, 0.001)
}

func TestAnalyticsSuggestedDifficulty(t *testing.T) {
	childID := uuid.New()

	mockService := &mockAnalyticsService{
		difficultyFn: func(ctx context.Context, id uuid.UUID) (domain.Difficulty, error) {
			return domain.DifficultyProficient, nil
		},
	}
	handler := NewAnalyticsHandler(mockService, testLogger())

	req := newTestRequest(t, http.MethodGet,
		"/api/children/"+childID.String()+"/suggested-difficulty",
		nil, uuid.New(), auth.RoleCaregiver, map[string]string{"childID": childID.String()})
	rr := httptest.NewRecorder()

	handler.SuggestedDifficulty(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got struct {
		SuggestedDifficulty domain.Difficulty `json:"suggested_difficulty"`
	}
	decodeBody(t, rr, &got)
	assert.Equal(t, domain.DifficultyProficient, got.SuggestedDifficulty)
}

func TestAnalyticsEffectiveness(t *testing.T) {
	worksheetID := uuid.New()

	t.Run("returns the report", func(t *testing.T) {
		mockService := &mockAnalyticsService{
			effectivenessFn: func(ctx context.Context, id uuid.UUID) (*service.EffectivenessReport, error) {
				assert.Equal(t, worksheetID, id)
				return &service.EffectivenessReport{
					WorksheetID:      worksheetID,
					SampleSize:       2,
					ImprovedFraction: 0.5,
				}, nil
			},
		}
		handler := NewAnalyticsHandler(mockService, testLogger())

		req := newTestRequest(t, http.MethodGet,
			"/api/worksheets/"+worksheetID.String()+"/effectiveness",
			nil, uuid.New(), auth.RoleTherapist, map[string]string{"id": worksheetID.String()})
		rr := httptest.NewRecorder()

		handler.Effectiveness(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var got service.EffectivenessReport
		decodeBody(t, rr, &got)
		assert.Equal(t, 2, got.SampleSize)
	})

	t.Run("unknown worksheet maps to 404", func(t *testing.T) {
		mockService := &mockAnalyticsService{
			effectivenessFn: func(ctx context.Context, id uuid.UUID) (*service.EffectivenessReport, error) {
				return nil, service.ErrWorksheetNotFound
			},
		}
		handler := NewAnalyticsHandler(mockService, testLogger())

		req := newTestRequest(t, http.MethodGet,
			"/api/worksheets/"+worksheetID.String()+"/effectiveness",
			nil, uuid.New(), auth.RoleTherapist, map[string]string{"id": worksheetID.String()})
		rr := httptest.NewRecorder()

		handler.Effectiveness(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestAnalyticsScreening(t *testing.T) {
	screeningID := uuid.New()
	childID := uuid.New()

	mockService := &mockAnalyticsService{
		screeningFn: func(ctx context.Context, id uuid.UUID) ([]*domain.DomainScore, error) {
			assert.Equal(t, screeningID, id)
			return []*domain.DomainScore{
				{
					ScreeningID: screeningID,
					ChildID:     childID,
					Domain:      domain.DomainCommunication,
					Score:       62,
					RecordedAt:  time.Now().UTC(),
				},
			}, nil
		},
	}
	handler := NewAnalyticsHandler(mockService, testLogger())

	req := newTestRequest(t, http.MethodGet, "/api/screenings/"+screeningID.String()+"/scores",
		nil, uuid.New(), auth.RoleTherapist, map[string]string{"id": screeningID.String()})
	rr := httptest.NewRecorder()

	handler.Screening(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got struct {
		Scores []*domain.DomainScore `json:"scores"`
	}
	decodeBody(t, rr, &got)
	require.Len(t, got.Scores, 1)
	assert.Equal(t, domain.DomainCommunication, got.Scores[0].Domain)
}
