package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/sproutwell/sproutwell-api/internal/domain"
)

// Common request/response structures

// CreateAssignmentRequest defines the payload for assigning a worksheet
// to a caregiver for a child.
type CreateAssignmentRequest struct {
	WorksheetID  uuid.UUID  `json:"worksheet_id"  validate:"required"`
	AssignedToID uuid.UUID  `json:"assigned_to_id" validate:"required"`
	ChildID      uuid.UUID  `json:"child_id"      validate:"required"`
	CaseID       *uuid.UUID `json:"case_id,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	Notes        string     `json:"notes,omitempty" validate:"max=2000"`
}

// UpdateAssignmentRequest defines the payload for advancing an assignment's
// status. Completion happens through the completions endpoint, not here.
type UpdateAssignmentRequest struct {
	Status domain.AssignmentStatus `json:"status" validate:"required,oneof=viewed in_progress"`
}

// RecordCompletionRequest defines the payload for recording a completed
// worksheet session. When AssignmentID is set, the assignment's worksheet
// and child take precedence over the values supplied here.
type RecordCompletionRequest struct {
	WorksheetID      uuid.UUID                `json:"worksheet_id"`
	ChildID          uuid.UUID                `json:"child_id"`
	AssignmentID     *uuid.UUID               `json:"assignment_id,omitempty"`
	TimeSpentMinutes int                      `json:"time_spent_minutes,omitempty" validate:"omitempty,min=0,max=600"`
	DifficultyRating int                      `json:"difficulty_rating,omitempty"  validate:"omitempty,min=1,max=5"`
	EngagementRating int                      `json:"engagement_rating,omitempty"  validate:"omitempty,min=1,max=5"`
	HelpLevel        domain.HelpLevel         `json:"help_level,omitempty"         validate:"omitempty,oneof=INDEPENDENT MINIMAL MODERATE FULL_SUPPORT"`
	Quality          domain.CompletionQuality `json:"quality,omitempty"            validate:"omitempty,oneof=TOO_EASY JUST_RIGHT TOO_HARD NOT_COMPLETED"`
	ParentNotes      string                   `json:"parent_notes,omitempty"       validate:"max=2000"`
}

// CreateReviewRequest defines the payload for rating a published worksheet.
type CreateReviewRequest struct {
	Rating     int    `json:"rating"                validate:"required,min=1,max=5"`
	ReviewText string `json:"review_text,omitempty" validate:"max=2000"`
}

// SubmitFlagRequest defines the payload for reporting a worksheet.
type SubmitFlagRequest struct {
	Reason  domain.FlagReason `json:"reason"            validate:"required,oneof=INAPPROPRIATE INACCURATE HARMFUL SPAM OTHER"`
	Details string            `json:"details,omitempty" validate:"max=2000"`
}

// ResolveFlagRequest defines the payload for a moderator's flag decision.
type ResolveFlagRequest struct {
	Status     domain.FlagStatus `json:"status"               validate:"required,oneof=reviewed dismissed actioned"`
	Resolution string            `json:"resolution,omitempty" validate:"max=2000"`
}
