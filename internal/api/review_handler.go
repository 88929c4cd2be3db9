package api

import (
	"log/slog"
	"net/http"

	"github.com/sproutwell/sproutwell-api/internal/api/shared"
	"github.com/sproutwell/sproutwell-api/internal/domain"
	"github.com/sproutwell/sproutwell-api/internal/platform/logger"
	"github.com/sproutwell/sproutwell-api/internal/service"
	"github.com/sproutwell/sproutwell-api/internal/service/auth"
)

// ReviewHandler handles community review HTTP requests.
type ReviewHandler struct {
	reviewService service.ReviewService
	logger        *slog.Logger
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewService service.ReviewService, logger *slog.Logger) *ReviewHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ReviewHandler")
	}

	return &ReviewHandler{
		reviewService: reviewService,
		logger:        logger.With(slog.String("component", "review_handler")),
	}
}

// ReviewListResponse wraps a page of reviews.
type ReviewListResponse struct {
	Reviews []*domain.Review `json:"reviews"`
}

// Create handles POST /worksheets/{id}/reviews requests.
// One review per user per worksheet; only published worksheets accept reviews.
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, worksheetID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req CreateReviewRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid review request body", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	review, err := h.reviewService.CreateReview(r.Context(), userID, worksheetID, req.Rating, req.ReviewText)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create review")
		return
	}

	log.Debug("review created",
		slog.String("review_id", review.ID.String()),
		slog.String("worksheet_id", worksheetID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, review)
}

// List handles GET /worksheets/{id}/reviews requests.
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	worksheetID, err := getPathUUID(r, "id")
	if err != nil {
		log.Warn("invalid worksheet ID in path")
		HandleAPIError(w, r, err, "")
		return
	}

	q := r.URL.Query()
	limit := queryInt(q.Get("limit"), 20, 100)
	offset := queryInt(q.Get("offset"), 0, 10000)

	reviews, err := h.reviewService.ListReviews(r.Context(), worksheetID, limit, offset)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list reviews")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ReviewListResponse{Reviews: reviews})
}

// Delete handles DELETE /reviews/{id} requests.
// Authors delete their own reviews; admins may delete any review.
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, reviewID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	role, _ := getUserRoleFromContext(r)
	adminOverride := role == auth.RoleAdmin

	if err := h.reviewService.DeleteReview(r.Context(), userID, reviewID, adminOverride); err != nil {
		HandleAPIError(w, r, err, "Failed to delete review")
		return
	}

	log.Debug("review deleted",
		slog.String("review_id", reviewID.String()),
		slog.Bool("admin_override", adminOverride))
	w.WriteHeader(http.StatusNoContent)
}

// MarkHelpful handles POST /reviews/{id}/helpful requests.
func (h *ReviewHandler) MarkHelpful(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	reviewID, err := getPathUUID(r, "id")
	if err != nil {
		log.Warn("invalid review ID in path")
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.reviewService.MarkHelpful(r.Context(), reviewID); err != nil {
		HandleAPIError(w, r, err, "Failed to mark review helpful")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
