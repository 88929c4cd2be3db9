package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// HelpLevel records how much support the child needed.
type HelpLevel string

// Possible help levels.
const (
	HelpLevelIndependent HelpLevel = "INDEPENDENT"
	HelpLevelMinimal     HelpLevel = "MINIMAL"
	HelpLevelModerate    HelpLevel = "MODERATE"
	HelpLevelFullSupport HelpLevel = "FULL_SUPPORT"
)

// CompletionQuality is the caregiver's read on how the worksheet landed.
type CompletionQuality string

// Possible completion quality values.
const (
	QualityTooEasy      CompletionQuality = "TOO_EASY"
	QualityJustRight    CompletionQuality = "JUST_RIGHT"
	QualityTooHard      CompletionQuality = "TOO_HARD"
	QualityNotCompleted CompletionQuality = "NOT_COMPLETED"
)

// Completion-specific validation errors.
var (
	ErrCompletionIDEmpty        = errors.New("completion ID cannot be empty")
	ErrCompletionWorksheetEmpty = errors.New("completion worksheet ID cannot be empty")
	ErrCompletionChildEmpty     = errors.New("completion child ID cannot be empty")
	ErrCompletionUserEmpty      = errors.New("completion user ID cannot be empty")
	ErrRatingOutOfRange         = errors.New("rating must be between 1 and 5")
	ErrInvalidHelpLevel         = errors.New("invalid help level")
	ErrInvalidQuality           = errors.New("invalid completion quality")
	ErrTimeSpentNegative        = errors.New("time spent cannot be negative")
)

// Completion is a terminal record of a caregiver working a worksheet with a
// child. AssignmentID is optional: ad-hoc practice produces completions
// without touching any assignment.
type Completion struct {
	ID               uuid.UUID         `json:"id"`
	WorksheetID      uuid.UUID         `json:"worksheet_id"`
	ChildID          uuid.UUID         `json:"child_id"`
	AssignmentID     *uuid.UUID        `json:"assignment_id,omitempty"`
	CompletedByID    uuid.UUID         `json:"completed_by_id"`
	TimeSpentMinutes int               `json:"time_spent_minutes,omitempty"`
	DifficultyRating int               `json:"difficulty_rating,omitempty"` // 1-5, 0 = not rated
	EngagementRating int               `json:"engagement_rating,omitempty"` // 1-5, 0 = not rated
	HelpLevel        HelpLevel         `json:"help_level,omitempty"`
	Quality          CompletionQuality `json:"completion_quality,omitempty"`
	ParentNotes      string            `json:"parent_notes,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// NewCompletion creates a completion record. Ratings are bounded ordinal
// scales; zero means not rated.
func NewCompletion(
	worksheetID, childID, completedByID uuid.UUID,
	assignmentID *uuid.UUID,
) (*Completion, error) {
	c := &Completion{
		ID:            uuid.New(),
		WorksheetID:   worksheetID,
		ChildID:       childID,
		AssignmentID:  assignmentID,
		CompletedByID: completedByID,
		CreatedAt:     time.Now().UTC(),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks if the Completion has valid data.
func (c *Completion) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCompletionIDEmpty
	}
	if c.WorksheetID == uuid.Nil {
		return ErrCompletionWorksheetEmpty
	}
	if c.ChildID == uuid.Nil {
		return ErrCompletionChildEmpty
	}
	if c.CompletedByID == uuid.Nil {
		return ErrCompletionUserEmpty
	}
	if err := validateRating(c.DifficultyRating); err != nil {
		return err
	}
	if err := validateRating(c.EngagementRating); err != nil {
		return err
	}
	if c.TimeSpentMinutes < 0 {
		return ErrTimeSpentNegative
	}
	if c.HelpLevel != "" {
		switch c.HelpLevel {
		case HelpLevelIndependent, HelpLevelMinimal, HelpLevelModerate, HelpLevelFullSupport:
		default:
			return ErrInvalidHelpLevel
		}
	}
	if c.Quality != "" {
		switch c.Quality {
		case QualityTooEasy, QualityJustRight, QualityTooHard, QualityNotCompleted:
		default:
			return ErrInvalidQuality
		}
	}
	return nil
}

// validateRating accepts 0 (not rated) or the 1-5 ordinal scale.
func validateRating(r int) error {
	if r == 0 {
		return nil
	}
	if r < 1 || r > 5 {
		return ErrRatingOutOfRange
	}
	return nil
}
