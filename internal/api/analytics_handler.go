package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sproutwell/sproutwell-api/internal/api/shared"
	"github.com/sproutwell/sproutwell-api/internal/platform/logger"
	"github.com/sproutwell/sproutwell-api/internal/service"
)

// AnalyticsHandler handles progress analytics and recommendation requests.
type AnalyticsHandler struct {
	analyticsService service.AnalyticsService
	logger           *slog.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(
	analyticsService service.AnalyticsService,
	logger *slog.Logger,
) *AnalyticsHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for AnalyticsHandler")
	}

	return &AnalyticsHandler{
		analyticsService: analyticsService,
		logger:           logger.With(slog.String("component", "analytics_handler")),
	}
}

// CompletionStats handles GET /children/{childID}/completion-stats requests.
func (h *AnalyticsHandler) CompletionStats(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	childID, err := getPathUUID(r, "childID")
	if err != nil {
		log.Warn("invalid child ID in path")
		HandleAPIError(w, r, err, "")
		return
	}

	since := time.Time{}
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, parseErr := time.Parse(time.RFC3339, raw)
		if parseErr != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid since timestamp")
			return
		}
		since = parsed
	}

	stats, err := h.analyticsService.CompletionStats(r.Context(), childID, since)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to compute completion stats")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}

// Progress handles GET /children/{childID}/progress requests.
// It returns per-domain screening score timelines with trend direction.
func (h *AnalyticsHandler) Progress(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	childID, err := getPathUUID(r, "childID")
	if err != nil {
		log.Warn("invalid child ID in path")
		HandleAPIError(w, r, err, "")
		return
	}

	progress, err := h.analyticsService.ProgressTimeline(r.Context(), childID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to compute progress timeline")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"domains": progress,
	})
}

// Journey handles GET /children/{childID}/journey requests. It returns the
// child's completions and screening observations as one chronological feed.
func (h *AnalyticsHandler) Journey(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	childID, err := getPathUUID(r, "childID")
	if err != nil {
		log.Warn("invalid child ID in path")
		HandleAPIError(w, r, err, "")
		return
	}

	events, err := h.analyticsService.ChildJourney(r.Context(), childID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to build child journey")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"events": events,
	})
}

// Recommendations handles GET /children/{childID}/recommendations requests.
func (h *AnalyticsHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	childID, err := getPathUUID(r, "childID")
	if err != nil {
		log.Warn("invalid child ID in path")
		HandleAPIError(w, r, err, "")
		return
	}

	limit := queryInt(r.URL.Query().Get("limit"), 10, 50)

	recommendations, err := h.analyticsService.Recommendations(r.Context(), childID, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to compute recommendations")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"recommendations": recommendations,
	})
}

// SuggestedDifficulty handles GET /children/{childID}/suggested-difficulty requests.
func (h *AnalyticsHandler) SuggestedDifficulty(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	childID, err := getPathUUID(r, "childID")
	if err != nil {
		log.Warn("invalid child ID in path")
		HandleAPIError(w, r, err, "")
		return
	}

	difficulty, err := h.analyticsService.SuggestedDifficulty(r.Context(), childID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to compute suggested difficulty")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"suggested_difficulty": difficulty,
	})
}

// Effectiveness handles GET /worksheets/{id}/effectiveness requests.
// It reports screening score deltas around the worksheet's completions.
func (h *AnalyticsHandler) Effectiveness(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	worksheetID, err := getPathUUID(r, "id")
	if err != nil {
		log.Warn("invalid worksheet ID in path")
		HandleAPIError(w, r, err, "")
		return
	}

	report, err := h.analyticsService.WorksheetEffectiveness(r.Context(), worksheetID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to compute worksheet effectiveness")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, report)
}

// Screening handles GET /screenings/{id}/scores requests.
func (h *AnalyticsHandler) Screening(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	screeningID, err := getPathUUID(r, "id")
	if err != nil {
		log.Warn("invalid screening ID in path")
		HandleAPIError(w, r, err, "")
		return
	}

	scores, err := h.analyticsService.GetScreeningScores(r.Context(), screeningID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get screening scores")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"scores": scores,
	})
}
