package api

import (
	"log/slog"
	"net/http"

	"github.com/sproutwell/sproutwell-api/internal/api/shared"
	"github.com/sproutwell/sproutwell-api/internal/domain"
	"github.com/sproutwell/sproutwell-api/internal/platform/logger"
	"github.com/sproutwell/sproutwell-api/internal/service"
)

// FlagHandler handles content moderation HTTP requests.
type FlagHandler struct {
	moderationService service.ModerationService
	logger            *slog.Logger
}

// NewFlagHandler creates a new FlagHandler.
func NewFlagHandler(moderationService service.ModerationService, logger *slog.Logger) *FlagHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for FlagHandler")
	}

	return &FlagHandler{
		moderationService: moderationService,
		logger:            logger.With(slog.String("component", "flag_handler")),
	}
}

// FlagListResponse wraps a page of flags.
type FlagListResponse struct {
	Flags []*domain.Flag `json:"flags"`
}

// Submit handles POST /worksheets/{id}/flags requests.
// Submitting a flag never changes the worksheet's state.
func (h *FlagHandler) Submit(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, worksheetID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req SubmitFlagRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid flag request body", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	flag, err := h.moderationService.SubmitFlag(r.Context(), userID, worksheetID, req.Reason, req.Details)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit flag")
		return
	}

	log.Debug("flag submitted",
		slog.String("flag_id", flag.ID.String()),
		slog.String("worksheet_id", worksheetID.String()),
		slog.String("reason", string(flag.Reason)))
	shared.RespondWithJSON(w, r, http.StatusCreated, flag)
}

// Resolve handles POST /flags/{id}/resolve requests.
// Admin only; an actioned decision pulls the worksheet from the community.
func (h *FlagHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, flagID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req ResolveFlagRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid flag resolution body", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	flag, err := h.moderationService.ResolveFlag(r.Context(), userID, flagID, req.Status, req.Resolution)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to resolve flag")
		return
	}

	log.Debug("flag resolved",
		slog.String("flag_id", flagID.String()),
		slog.String("status", string(flag.Status)))
	shared.RespondWithJSON(w, r, http.StatusOK, flag)
}

// ListPending handles GET /flags requests for the moderation queue.
func (h *FlagHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := queryInt(q.Get("limit"), 20, 100)
	offset := queryInt(q.Get("offset"), 0, 10000)

	flags, err := h.moderationService.ListPendingFlags(r.Context(), limit, offset)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list pending flags")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, FlagListResponse{Flags: flags})
}

// ListForWorksheet handles GET /worksheets/{id}/flags requests.
func (h *FlagHandler) ListForWorksheet(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	worksheetID, err := getPathUUID(r, "id")
	if err != nil {
		log.Warn("invalid worksheet ID in path")
		HandleAPIError(w, r, err, "")
		return
	}

	flags, err := h.moderationService.ListWorksheetFlags(r.Context(), worksheetID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list worksheet flags")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, FlagListResponse{Flags: flags})
}
