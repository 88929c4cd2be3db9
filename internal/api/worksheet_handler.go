// Package api provides HTTP handlers for the API.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sproutwell/sproutwell-api/internal/api/shared"
	"github.com/sproutwell/sproutwell-api/internal/domain"
	"github.com/sproutwell/sproutwell-api/internal/platform/logger"
	"github.com/sproutwell/sproutwell-api/internal/service"
	"github.com/sproutwell/sproutwell-api/internal/store"
)

// WorksheetHandler handles worksheet lifecycle HTTP requests.
type WorksheetHandler struct {
	worksheetService service.WorksheetService
	logger           *slog.Logger
}

// NewWorksheetHandler creates a new WorksheetHandler.
func NewWorksheetHandler(
	worksheetService service.WorksheetService,
	logger *slog.Logger,
) *WorksheetHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for WorksheetHandler")
	}

	return &WorksheetHandler{
		worksheetService: worksheetService,
		logger:           logger.With(slog.String("component", "worksheet_handler")),
	}
}

// WorksheetListResponse wraps a page of worksheets with the total match count.
type WorksheetListResponse struct {
	Worksheets []*domain.Worksheet `json:"worksheets"`
	Total      int                 `json:"total"`
}

// Generate handles POST /worksheets/generate requests.
// It enqueues asynchronous generation and returns the placeholder worksheet
// with 202 Accepted.
func (h *WorksheetHandler) Generate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req domain.GenerationRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid generation request body", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	ws, err := h.worksheetService.Generate(r.Context(), userID, &req)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start worksheet generation")
		return
	}

	log.Debug("worksheet generation enqueued",
		slog.String("worksheet_id", ws.ID.String()),
		slog.String("user_id", userID.String()))
	shared.RespondWithJSON(w, r, http.StatusAccepted, ws)
}

// GetStatus handles GET /worksheets/{id}/status requests.
func (h *WorksheetHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	worksheetID, err := getPathUUID(r, "id")
	if err != nil {
		log.Warn("invalid worksheet ID in path")
		HandleAPIError(w, r, err, "")
		return
	}

	status, err := h.worksheetService.GetGenerationStatus(r.Context(), worksheetID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get generation status")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, status)
}

// Get handles GET /worksheets/{id} requests.
func (h *WorksheetHandler) Get(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	worksheetID, err := getPathUUID(r, "id")
	if err != nil {
		log.Warn("invalid worksheet ID in path")
		HandleAPIError(w, r, err, "")
		return
	}

	ws, err := h.worksheetService.GetWorksheet(r.Context(), worksheetID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get worksheet")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ws)
}

// Browse handles GET /worksheets requests.
// It returns published community worksheets matching the query filters, or
// the caller's own worksheets when mine=true.
func (h *WorksheetHandler) Browse(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	filter := worksheetFilterFromQuery(r)

	if r.URL.Query().Get("mine") == "true" {
		userID, ok := getUserIDFromContext(r)
		if !ok {
			log.Warn("user ID not found or invalid in request context")
			shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
			return
		}

		worksheets, err := h.worksheetService.ListOwned(r.Context(), userID, filter)
		if err != nil {
			HandleAPIError(w, r, err, "Failed to list worksheets")
			return
		}
		shared.RespondWithJSON(w, r, http.StatusOK, WorksheetListResponse{
			Worksheets: worksheets,
			Total:      len(worksheets),
		})
		return
	}

	page, err := h.worksheetService.BrowseCommunity(r.Context(), filter)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to browse worksheets")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, WorksheetListResponse{
		Worksheets: page.Worksheets,
		Total:      page.Total,
	})
}

// Publish handles POST /worksheets/{id}/publish requests.
func (h *WorksheetHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "publish", h.worksheetService.Publish)
}

// Unpublish handles POST /worksheets/{id}/unpublish requests.
func (h *WorksheetHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "unpublish", h.worksheetService.Unpublish)
}

// Archive handles POST /worksheets/{id}/archive requests.
func (h *WorksheetHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "archive", h.worksheetService.Archive)
}

// Clone handles POST /worksheets/{id}/clone requests.
// It copies a published worksheet into the caller's drafts.
func (h *WorksheetHandler) Clone(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, worksheetID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	clone, err := h.worksheetService.Clone(r.Context(), userID, worksheetID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to clone worksheet")
		return
	}

	log.Debug("worksheet cloned",
		slog.String("source_id", worksheetID.String()),
		slog.String("clone_id", clone.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, clone)
}

// CreateVersion handles POST /worksheets/{id}/versions requests.
func (h *WorksheetHandler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, worksheetID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	version, err := h.worksheetService.CreateVersion(r.Context(), userID, worksheetID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create worksheet version")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, version)
}

// ListVersions handles GET /worksheets/{id}/versions requests.
func (h *WorksheetHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	worksheetID, err := getPathUUID(r, "id")
	if err != nil {
		log.Warn("invalid worksheet ID in path")
		HandleAPIError(w, r, err, "")
		return
	}

	versions, err := h.worksheetService.ListVersions(r.Context(), worksheetID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list worksheet versions")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, WorksheetListResponse{
		Worksheets: versions,
		Total:      len(versions),
	})
}

// ImageListResponse wraps a worksheet's image records.
type ImageListResponse struct {
	Images []*domain.WorksheetImage `json:"images"`
}

// ListImages handles GET /worksheets/{id}/images requests.
// It exposes each image's generation sub-status so clients can see which
// slots failed on a worksheet that otherwise reached draft.
func (h *WorksheetHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	worksheetID, err := getPathUUID(r, "id")
	if err != nil {
		log.Warn("invalid worksheet ID in path")
		HandleAPIError(w, r, err, "")
		return
	}

	images, err := h.worksheetService.ListImages(r.Context(), worksheetID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list worksheet images")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ImageListResponse{Images: images})
}

// RegenerateImage handles POST /worksheets/{id}/images/{slot}/regenerate
// requests. It resets the slot and enqueues the re-render, returning the
// pending image record with 202 Accepted.
func (h *WorksheetHandler) RegenerateImage(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, worksheetID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	slot, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil || slot < 0 {
		log.Warn("invalid image slot in path", slog.String("slot", chi.URLParam(r, "slot")))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid image slot")
		return
	}

	img, err := h.worksheetService.RegenerateImage(r.Context(), userID, worksheetID, slot)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to regenerate image")
		return
	}

	log.Debug("image regeneration enqueued",
		slog.String("worksheet_id", worksheetID.String()),
		slog.Int("slot", slot))
	shared.RespondWithJSON(w, r, http.StatusAccepted, img)
}

// transition runs an owner-gated lifecycle transition and writes the
// updated worksheet.
func (h *WorksheetHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	name string,
	fn func(ctx context.Context, actorID, id uuid.UUID) (*domain.Worksheet, error),
) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, worksheetID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	ws, err := fn(r.Context(), userID, worksheetID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to "+name+" worksheet")
		return
	}

	log.Debug("worksheet state changed",
		slog.String("worksheet_id", worksheetID.String()),
		slog.String("transition", name),
		slog.String("status", string(ws.Status)))
	shared.RespondWithJSON(w, r, http.StatusOK, ws)
}

// worksheetFilterFromQuery builds a store filter from browse query params.
func worksheetFilterFromQuery(r *http.Request) store.WorksheetFilter {
	q := r.URL.Query()

	filter := store.WorksheetFilter{
		Status:       domain.WorksheetStatus(q.Get("status")),
		Type:         domain.WorksheetType(q.Get("type")),
		Difficulty:   domain.Difficulty(q.Get("difficulty")),
		TargetDomain: domain.DevelopmentalDomain(q.Get("domain")),
		SearchText:   q.Get("q"),
		Sort:         store.CommunitySort(q.Get("sort")),
	}

	if raw := q.Get("child_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			filter.ChildID = &id
		}
	}
	if raw := q.Get("age_months"); raw != "" {
		if age, err := strconv.Atoi(raw); err == nil && age > 0 {
			filter.AgeMonths = age
		}
	}
	filter.Limit = queryInt(q.Get("limit"), 20, 100)
	filter.Offset = queryInt(q.Get("offset"), 0, 10000)

	return filter
}

// queryInt parses a non-negative integer query param with a default and cap.
func queryInt(raw string, def, max int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
