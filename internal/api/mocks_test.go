package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sproutwell/sproutwell-api/internal/api/shared"
	"github.com/sproutwell/sproutwell-api/internal/domain"
	"github.com/sproutwell/sproutwell-api/internal/generation"
	"github.com/sproutwell/sproutwell-api/internal/service"
	"github.com/sproutwell/sproutwell-api/internal/service/auth"
	"github.com/sproutwell/sproutwell-api/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRequest builds a request with the authenticated user, role, and chi
// path parameters wired into the context the way the router middleware does.
func newTestRequest(
	t *testing.T,
	method, target string,
	body interface{},
	userID uuid.UUID,
	role auth.Role,
	pathParams map[string]string,
) *http.Request {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)

	ctx := req.Context()
	if userID != uuid.Nil {
		ctx = context.WithValue(ctx, shared.UserIDContextKey, userID)
	}
	if role != "" {
		ctx = context.WithValue(ctx, shared.UserRoleContextKey, role)
	}
	if len(pathParams) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range pathParams {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}

	return req.WithContext(ctx)
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rr.Body).Decode(v))
}

// mockWorksheetService is a function-field mock of service.WorksheetService.
type mockWorksheetService struct {
	generateFn        func(ctx context.Context, ownerID uuid.UUID, req *domain.GenerationRequest) (*domain.Worksheet, error)
	getFn             func(ctx context.Context, id uuid.UUID) (*domain.Worksheet, error)
	statusFn          func(ctx context.Context, id uuid.UUID) (*service.GenerationStatus, error)
	publishFn         func(ctx context.Context, actorID, id uuid.UUID) (*domain.Worksheet, error)
	unpublishFn       func(ctx context.Context, actorID, id uuid.UUID) (*domain.Worksheet, error)
	archiveFn         func(ctx context.Context, actorID, id uuid.UUID) (*domain.Worksheet, error)
	cloneFn           func(ctx context.Context, actorID, id uuid.UUID) (*domain.Worksheet, error)
	createVersionFn   func(ctx context.Context, actorID, id uuid.UUID) (*domain.Worksheet, error)
	listVersionsFn    func(ctx context.Context, id uuid.UUID) ([]*domain.Worksheet, error)
	listImagesFn      func(ctx context.Context, id uuid.UUID) ([]*domain.WorksheetImage, error)
	regenerateImageFn func(ctx context.Context, actorID, id uuid.UUID, slot int) (*domain.WorksheetImage, error)
	listOwnedFn       func(ctx context.Context, ownerID uuid.UUID, filter store.WorksheetFilter) ([]*domain.Worksheet, error)
	browseCommunityFn func(ctx context.Context, filter store.WorksheetFilter) (*service.CommunityPage, error)
}

func (m *mockWorksheetService) Generate(
	ctx context.Context,
	ownerID uuid.UUID,
	req *domain.GenerationRequest,
) (*domain.Worksheet, error) {
	return m.generateFn(ctx, ownerID, req)
}

func (m *mockWorksheetService) GetWorksheet(ctx context.Context, id uuid.UUID) (*domain.Worksheet, error) {
	return m.getFn(ctx, id)
}

func (m *mockWorksheetService) GetGenerationStatus(
	ctx context.Context,
	id uuid.UUID,
) (*service.GenerationStatus, error) {
	return m.statusFn(ctx, id)
}

func (m *mockWorksheetService) Publish(ctx context.Context, actorID, id uuid.UUID) (*domain.Worksheet, error) {
	return m.publishFn(ctx, actorID, id)
}

func (m *mockWorksheetService) Unpublish(ctx context.Context, actorID, id uuid.UUID) (*domain.Worksheet, error) {
	return m.unpublishFn(ctx, actorID, id)
}

func (m *mockWorksheetService) Archive(ctx context.Context, actorID, id uuid.UUID) (*domain.Worksheet, error) {
	return m.archiveFn(ctx, actorID, id)
}

func (m *mockWorksheetService) Clone(ctx context.Context, actorID, id uuid.UUID) (*domain.Worksheet, error) {
	return m.cloneFn(ctx, actorID, id)
}

func (m *mockWorksheetService) CreateVersion(ctx context.Context, actorID, id uuid.UUID) (*domain.Worksheet, error) {
	return m.createVersionFn(ctx, actorID, id)
}

func (m *mockWorksheetService) ListVersions(ctx context.Context, id uuid.UUID) ([]*domain.Worksheet, error) {
	return m.listVersionsFn(ctx, id)
}

func (m *mockWorksheetService) ListImages(ctx context.Context, id uuid.UUID) ([]*domain.WorksheetImage, error) {
	return m.listImagesFn(ctx, id)
}

func (m *mockWorksheetService) RegenerateImage(
	ctx context.Context,
	actorID, id uuid.UUID,
	slot int,
) (*domain.WorksheetImage, error) {
	return m.regenerateImageFn(ctx, actorID, id, slot)
}

func (m *mockWorksheetService) ListOwned(
	ctx context.Context,
	ownerID uuid.UUID,
	filter store.WorksheetFilter,
) ([]*domain.Worksheet, error) {
	return m.listOwnedFn(ctx, ownerID, filter)
}

func (m *mockWorksheetService) BrowseCommunity(
	ctx context.Context,
	filter store.WorksheetFilter,
) (*service.CommunityPage, error) {
	return m.browseCommunityFn(ctx, filter)
}

func (m *mockWorksheetService) CompleteGeneration(
	ctx context.Context,
	id uuid.UUID,
	result *generation.GeneratedWorksheet,
) error {
	return nil
}

func (m *mockWorksheetService) FailGeneration(ctx context.Context, id uuid.UUID, reason string) error {
	return nil
}

// mockAssignmentService is a function-field mock of service.AssignmentService.
type mockAssignmentService struct {
	createFn          func(ctx context.Context, actorID uuid.UUID, input service.CreateAssignmentInput) (*domain.Assignment, error)
	getFn             func(ctx context.Context, id uuid.UUID) (*domain.Assignment, error)
	updateStatusFn    func(ctx context.Context, actorID, id uuid.UUID, target domain.AssignmentStatus) (*domain.Assignment, error)
	recordFn          func(ctx context.Context, actorID uuid.UUID, input service.RecordCompletionInput) (*domain.Completion, error)
	listForAssigneeFn func(ctx context.Context, userID uuid.UUID, filter store.AssignmentFilter) ([]*domain.Assignment, error)
	listForAssignerFn func(ctx context.Context, userID uuid.UUID, filter store.AssignmentFilter) ([]*domain.Assignment, error)
	listCompletionsFn func(ctx context.Context, childID uuid.UUID, since time.Time) ([]*domain.Completion, error)
}

func (m *mockAssignmentService) CreateAssignment(
	ctx context.Context,
	actorID uuid.UUID,
	input service.CreateAssignmentInput,
) (*domain.Assignment, error) {
	return m.createFn(ctx, actorID, input)
}

func (m *mockAssignmentService) GetAssignment(ctx context.Context, id uuid.UUID) (*domain.Assignment, error) {
	return m.getFn(ctx, id)
}

func (m *mockAssignmentService) UpdateStatus(
	ctx context.Context,
	actorID, id uuid.UUID,
	target domain.AssignmentStatus,
) (*domain.Assignment, error) {
	return m.updateStatusFn(ctx, actorID, id, target)
}

func (m *mockAssignmentService) RecordCompletion(
	ctx context.Context,
	actorID uuid.UUID,
	input service.RecordCompletionInput,
) (*domain.Completion, error) {
	return m.recordFn(ctx, actorID, input)
}

func (m *mockAssignmentService) ListForAssignee(
	ctx context.Context,
	userID uuid.UUID,
	filter store.AssignmentFilter,
) ([]*domain.Assignment, error) {
	return m.listForAssigneeFn(ctx, userID, filter)
}

func (m *mockAssignmentService) ListForAssigner(
	ctx context.Context,
	userID uuid.UUID,
	filter store.AssignmentFilter,
) ([]*domain.Assignment, error) {
	return m.listForAssignerFn(ctx, userID, filter)
}

func (m *mockAssignmentService) ListCompletionsByChild(
	ctx context.Context,
	childID uuid.UUID,
	since time.Time,
) ([]*domain.Completion, error) {
	return m.listCompletionsFn(ctx, childID, since)
}

// mockReviewService is a function-field mock of service.ReviewService.
type mockReviewService struct {
	createFn      func(ctx context.Context, actorID, worksheetID uuid.UUID, rating int, text string) (*domain.Review, error)
	deleteFn      func(ctx context.Context, actorID, reviewID uuid.UUID, adminOverride bool) error
	listFn        func(ctx context.Context, worksheetID uuid.UUID, limit, offset int) ([]*domain.Review, error)
	markHelpfulFn func(ctx context.Context, reviewID uuid.UUID) error
}

func (m *mockReviewService) CreateReview(
	ctx context.Context,
	actorID, worksheetID uuid.UUID,
	rating int,
	text string,
) (*domain.Review, error) {
	return m.createFn(ctx, actorID, worksheetID, rating, text)
}

func (m *mockReviewService) DeleteReview(
	ctx context.Context,
	actorID, reviewID uuid.UUID,
	adminOverride bool,
) error {
	return m.deleteFn(ctx, actorID, reviewID, adminOverride)
}

func (m *mockReviewService) ListReviews(
	ctx context.Context,
	worksheetID uuid.UUID,
	limit, offset int,
) ([]*domain.Review, error) {
	return m.listFn(ctx, worksheetID, limit, offset)
}

func (m *mockReviewService) MarkHelpful(ctx context.Context, reviewID uuid.UUID) error {
	return m.markHelpfulFn(ctx, reviewID)
}

// mockModerationService is a function-field mock of service.ModerationService.
type mockModerationService struct {
	submitFn      func(ctx context.Context, reporterID, worksheetID uuid.UUID, reason domain.FlagReason, details string) (*domain.Flag, error)
	getFn         func(ctx context.Context, id uuid.UUID) (*domain.Flag, error)
	resolveFn     func(ctx context.Context, moderatorID, flagID uuid.UUID, status domain.FlagStatus, resolution string) (*domain.Flag, error)
	listPendingFn func(ctx context.Context, limit, offset int) ([]*domain.Flag, error)
	listFn        func(ctx context.Context, worksheetID uuid.UUID) ([]*domain.Flag, error)
}

func (m *mockModerationService) SubmitFlag(
	ctx context.Context,
	reporterID, worksheetID uuid.UUID,
	reason domain.FlagReason,
	details string,
) (*domain.Flag, error) {
	return m.submitFn(ctx, reporterID, worksheetID, reason, details)
}

func (m *mockModerationService) GetFlag(ctx context.Context, id uuid.UUID) (*domain.Flag, error) {
	return m.getFn(ctx, id)
}

func (m *mockModerationService) ResolveFlag(
	ctx context.Context,
	moderatorID, flagID uuid.UUID,
	status domain.FlagStatus,
	resolution string,
) (*domain.Flag, error) {
	return m.resolveFn(ctx, moderatorID, flagID, status, resolution)
}

func (m *mockModerationService) ListPendingFlags(
	ctx context.Context,
	limit, offset int,
) ([]*domain.Flag, error) {
	return m.listPendingFn(ctx, limit, offset)
}

func (m *mockModerationService) ListWorksheetFlags(
	ctx context.Context,
	worksheetID uuid.UUID,
) ([]*domain.Flag, error) {
	return m.listFn(ctx, worksheetID)
}

// mockAnalyticsService is a function-field mock of service.AnalyticsService.
type mockAnalyticsService struct {
	screeningFn       func(ctx context.Context, screeningID uuid.UUID) ([]*domain.DomainScore, error)
	completionStatsFn func(ctx context.Context, childID uuid.UUID, since time.Time) (*service.CompletionStats, error)
	progressFn        func(ctx context.Context, childID uuid.UUID) ([]service.DomainProgress, error)
	journeyFn         func(ctx context.Context, childID uuid.UUID) ([]service.JourneyEvent, error)
	effectivenessFn   func(ctx context.Context, worksheetID uuid.UUID) (*service.EffectivenessReport, error)
	recommendationsFn func(ctx context.Context, childID uuid.UUID, limit int) ([]service.Recommendation, error)
	difficultyFn      func(ctx context.Context, childID uuid.UUID) (domain.Difficulty, error)
}

func (m *mockAnalyticsService) GetScreeningScores(
	ctx context.Context,
	screeningID uuid.UUID,
) ([]*domain.DomainScore, error) {
	return m.screeningFn(ctx, screeningID)
}

func (m *mockAnalyticsService) CompletionStats(
	ctx context.Context,
	childID uuid.UUID,
	since time.Time,
) (*service.CompletionStats, error) {
	return m.completionStatsFn(ctx, childID, since)
}

func (m *mockAnalyticsService) ProgressTimeline(
	ctx context.Context,
	childID uuid.UUID,
) ([]service.DomainProgress, error) {
	return m.progressFn(ctx, childID)
}

func (m *mockAnalyticsService) ChildJourney(
	ctx context.Context,
	childID uuid.UUID,
) ([]service.JourneyEvent, error) {
	return m.journeyFn(ctx, childID)
}

func (m *mockAnalyticsService) WorksheetEffectiveness(
	ctx context.Context,
	worksheetID uuid.UUID,
) (*service.EffectivenessReport, error) {
	return m.effectivenessFn(ctx, worksheetID)
}

func (m *mockAnalyticsService) Recommendations(
	ctx context.Context,
	childID uuid.UUID,
	limit int,
) ([]service.Recommendation, error) {
	return m.recommendationsFn(ctx, childID, limit)
}

func (m *mockAnalyticsService) SuggestedDifficulty(
	ctx context.Context,
	childID uuid.UUID,
) (domain.Difficulty, error) {
	return m.difficultyFn(ctx, childID)
}
