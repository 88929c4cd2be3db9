package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sproutwell/sproutwell-api/internal/api/shared"
	"github.com/sproutwell/sproutwell-api/internal/domain"
	"github.com/sproutwell/sproutwell-api/internal/platform/logger"
	"github.com/sproutwell/sproutwell-api/internal/service"
	"github.com/sproutwell/sproutwell-api/internal/store"
)

// AssignmentHandler handles assignment and completion HTTP requests.
type AssignmentHandler struct {
	assignmentService service.AssignmentService
	logger            *slog.Logger
}

// NewAssignmentHandler creates a new AssignmentHandler.
func NewAssignmentHandler(
	assignmentService service.AssignmentService,
	logger *slog.Logger,
) *AssignmentHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for AssignmentHandler")
	}

	return &AssignmentHandler{
		assignmentService: assignmentService,
		logger:            logger.With(slog.String("component", "assignment_handler")),
	}
}

// AssignmentListResponse wraps a page of assignments.
type AssignmentListResponse struct {
	Assignments []*domain.Assignment `json:"assignments"`
}

// Create handles POST /assignments requests.
// Only published worksheets can be assigned.
func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req CreateAssignmentRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid assignment request body", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	assignment, err := h.assignmentService.CreateAssignment(r.Context(), userID, service.CreateAssignmentInput{
		WorksheetID:  req.WorksheetID,
		AssignedToID: req.AssignedToID,
		ChildID:      req.ChildID,
		CaseID:       req.CaseID,
		DueDate:      req.DueDate,
		Notes:        req.Notes,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create assignment")
		return
	}

	log.Debug("assignment created",
		slog.String("assignment_id", assignment.ID.String()),
		slog.String("worksheet_id", req.WorksheetID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, assignment)
}

// Get handles GET /assignments/{id} requests.
func (h *AssignmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	assignmentID, err := getPathUUID(r, "id")
	if err != nil {
		log.Warn("invalid assignment ID in path")
		HandleAPIError(w, r, err, "")
		return
	}

	assignment, err := h.assignmentService.GetAssignment(r.Context(), assignmentID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get assignment")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, assignment)
}

// UpdateStatus handles PATCH /assignments/{id} requests.
// The assignee moves the assignment one step forward (viewed, in_progress).
func (h *AssignmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, assignmentID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req UpdateAssignmentRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid assignment update body", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	assignment, err := h.assignmentService.UpdateStatus(r.Context(), userID, assignmentID, req.Status)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update assignment")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, assignment)
}

// List handles GET /assignments requests.
// By default it lists assignments addressed to the caller; role=assigner
// lists assignments the caller created.
func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	q := r.URL.Query()
	filter := store.AssignmentFilter{
		Status: domain.AssignmentStatus(q.Get("status")),
		Limit:  queryInt(q.Get("limit"), 20, 100),
		Offset: queryInt(q.Get("offset"), 0, 10000),
	}
	if raw := q.Get("child_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			filter.ChildID = &id
		}
	}

	var (
		assignments []*domain.Assignment
		err         error
	)
	if q.Get("role") == "assigner" {
		assignments, err = h.assignmentService.ListForAssigner(r.Context(), userID, filter)
	} else {
		assignments, err = h.assignmentService.ListForAssignee(r.Context(), userID, filter)
	}
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list assignments")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AssignmentListResponse{Assignments: assignments})
}

// RecordCompletion handles POST /completions requests.
// Completions may reference an assignment or stand alone for ad hoc practice.
func (h *AssignmentHandler) RecordCompletion(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req RecordCompletionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid completion request body", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	completion, err := h.assignmentService.RecordCompletion(r.Context(), userID, service.RecordCompletionInput{
		WorksheetID:      req.WorksheetID,
		ChildID:          req.ChildID,
		AssignmentID:     req.AssignmentID,
		TimeSpentMinutes: req.TimeSpentMinutes,
		DifficultyRating: req.DifficultyRating,
		EngagementRating: req.EngagementRating,
		HelpLevel:        req.HelpLevel,
		Quality:          req.Quality,
		ParentNotes:      req.ParentNotes,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record completion")
		return
	}

	log.Debug("completion recorded",
		slog.String("completion_id", completion.ID.String()),
		slog.String("child_id", completion.ChildID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, completion)
}

// ListCompletions handles GET /children/{childID}/completions requests.
func (h *AssignmentHandler) ListCompletions(w http.ResponseWriter, r *http.Request) {
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

	completions, err := h.assignmentService.ListCompletionsByChild(r.Context(), childID, since)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list completions")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"completions": completions,
	})
}
