package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FlagReason is the reporter's stated reason for flagging a worksheet.
type FlagReason string

// Possible flag reasons.
const (
	FlagReasonInappropriate FlagReason = "INAPPROPRIATE"
	FlagReasonInaccurate    FlagReason = "INACCURATE"
	FlagReasonHarmful       FlagReason = "HARMFUL"
	FlagReasonSpam          FlagReason = "SPAM"
	FlagReasonOther         FlagReason = "OTHER"
)

// FlagStatus is the moderation state of a flag.
type FlagStatus string

// Possible flag status values.
const (
	FlagStatusPending   FlagStatus = "pending"
	FlagStatusReviewed  FlagStatus = "reviewed"
	FlagStatusDismissed FlagStatus = "dismissed"
	FlagStatusActioned  FlagStatus = "actioned"
)

// Flag-specific validation errors.
var (
	ErrFlagIDEmpty        = errors.New("flag ID cannot be empty")
	ErrFlagWorksheetEmpty = errors.New("flag worksheet ID cannot be empty")
	ErrFlagReporterEmpty  = errors.New("flag reporter ID cannot be empty")
	ErrInvalidFlagReason  = errors.New("invalid flag reason")
	ErrInvalidFlagStatus  = errors.New("invalid flag status")
)

// Flag is a moderation report against a published worksheet. Multiple open
// flags may exist concurrently for one worksheet; each resolves
// independently.
type Flag struct {
	ID           uuid.UUID  `json:"id"`
	WorksheetID  uuid.UUID  `json:"worksheet_id"`
	ReporterID   uuid.UUID  `json:"reporter_id"`
	Reason       FlagReason `json:"reason"`
	Details      string     `json:"details,omitempty"`
	Status       FlagStatus `json:"status"`
	ResolvedByID *uuid.UUID `json:"resolved_by_id,omitempty"`
	Resolution   string     `json:"resolution,omitempty"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// NewFlag creates a pending flag.
func NewFlag(worksheetID, reporterID uuid.UUID, reason FlagReason, details string) (*Flag, error) {
	f := &Flag{
		ID:          uuid.New(),
		WorksheetID: worksheetID,
		ReporterID:  reporterID,
		Reason:      reason,
		Details:     details,
		Status:      FlagStatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks if the Flag has valid data.
func (f *Flag) Validate() error {
	if f.ID == uuid.Nil {
		return ErrFlagIDEmpty
	}
	if f.WorksheetID == uuid.Nil {
		return ErrFlagWorksheetEmpty
	}
	if f.ReporterID == uuid.Nil {
		return ErrFlagReporterEmpty
	}
	switch f.Reason {
	case FlagReasonInappropriate, FlagReasonInaccurate, FlagReasonHarmful,
		FlagReasonSpam, FlagReasonOther:
	default:
		return ErrInvalidFlagReason
	}
	switch f.Status {
	case FlagStatusPending, FlagStatusReviewed, FlagStatusDismissed, FlagStatusActioned:
	default:
		return ErrInvalidFlagStatus
	}
	return nil
}

// Resolve closes the flag with the moderator's decision. A flag resolves
// exactly once; a second resolution is a state conflict.
func (f *Flag) Resolve(resolverID uuid.UUID, status FlagStatus, resolution string, now time.Time) error {
	if f.Status != FlagStatusPending {
		return fmt.Errorf("%w: flag is already %s", ErrStateConflict, f.Status)
	}
	switch status {
	case FlagStatusReviewed, FlagStatusDismissed, FlagStatusActioned:
	default:
		return ErrInvalidFlagStatus
	}
	if resolverID == uuid.Nil {
		return NewValidationError("resolvedBy", "resolver is required", ErrValidation)
	}
	f.Status = status
	f.ResolvedByID = &resolverID
	f.Resolution = resolution
	resolved := now.UTC()
	f.ResolvedAt = &resolved
	return nil
}
