package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WorksheetType categorizes the kind of document a worksheet is.
type WorksheetType string

// Possible worksheet types.
const (
	WorksheetTypeActivity        WorksheetType = "ACTIVITY"
	WorksheetTypeVisualSupport   WorksheetType = "VISUAL_SUPPORT"
	WorksheetTypeStructuredPlan  WorksheetType = "STRUCTURED_PLAN"
	WorksheetTypeProgressTracker WorksheetType = "PROGRESS_TRACKER"
)

// Difficulty is the tier a worksheet is pitched at.
type Difficulty string

// Difficulty tiers, ordered from easiest to hardest.
const (
	DifficultyFoundational Difficulty = "FOUNDATIONAL"
	DifficultyDeveloping   Difficulty = "DEVELOPING"
	DifficultyProficient   Difficulty = "PROFICIENT"
	DifficultyAdvanced     Difficulty = "ADVANCED"
)

// DifficultyOrder lists tiers in ascending order. Used by the analytics
// engine to step suggestions up or down one tier.
var DifficultyOrder = []Difficulty{
	DifficultyFoundational,
	DifficultyDeveloping,
	DifficultyProficient,
	DifficultyAdvanced,
}

// ColorMode controls worksheet rendering.
type ColorMode string

// Possible color modes.
const (
	ColorModeFullColor  ColorMode = "FULL_COLOR"
	ColorModeBlackWhite ColorMode = "BLACK_WHITE"
)

// Worksheet-specific validation errors.
var (
	ErrWorksheetIDEmpty      = errors.New("worksheet ID cannot be empty")
	ErrWorksheetOwnerEmpty   = errors.New("worksheet owner ID cannot be empty")
	ErrWorksheetTitleEmpty   = errors.New("worksheet title cannot be empty")
	ErrInvalidWorksheetType  = errors.New("invalid worksheet type")
	ErrInvalidDifficulty     = errors.New("invalid difficulty tier")
	ErrInvalidColorMode      = errors.New("invalid color mode")
	ErrInvalidWorksheetState = errors.New("invalid worksheet status")
)

// Worksheet is a generated therapy content artifact. It owns its lifecycle
// status, community aggregates, and clone/version lineage. Rating and clone
// counters are maintained by the store with atomic SQL; the struct carries
// the last-read values.
type Worksheet struct {
	ID              uuid.UUID             `json:"id"`
	OwnerID         uuid.UUID             `json:"owner_id"`
	Title           string                `json:"title"`
	Type            WorksheetType         `json:"type"`
	SubType         string                `json:"sub_type,omitempty"`
	Difficulty      Difficulty            `json:"difficulty"`
	ColorMode       ColorMode             `json:"color_mode"`
	Content         json.RawMessage       `json:"content,omitempty"`
	TargetDomains   []DevelopmentalDomain `json:"target_domains"`
	ConditionTags   []string              `json:"condition_tags,omitempty"`
	AgeRangeMin     int                   `json:"age_range_min,omitempty"` // months
	AgeRangeMax     int                   `json:"age_range_max,omitempty"` // months
	Status          WorksheetStatus       `json:"status"`
	Visibility      bool                  `json:"visibility"`
	AverageRating   float64               `json:"average_rating"`
	ReviewCount     int                   `json:"review_count"`
	ClonedFromID    *uuid.UUID            `json:"cloned_from_id,omitempty"`
	CloneCount      int                   `json:"clone_count"`
	Version         int                   `json:"version"`
	ParentVersionID *uuid.UUID            `json:"parent_version_id,omitempty"`
	ChildID         *uuid.UUID            `json:"child_id,omitempty"`
	CaseID          *uuid.UUID            `json:"case_id,omitempty"`
	ScreeningID     *uuid.UUID            `json:"screening_id,omitempty"`
	ReportID        *uuid.UUID            `json:"report_id,omitempty"`
	GenerationError string                `json:"generation_error,omitempty"`
	PublishedAt     *time.Time            `json:"published_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// NewWorksheet creates a worksheet in the generating state from an accepted
// generation request. Content stays empty until the background job fills it.
func NewWorksheet(ownerID uuid.UUID, req *GenerationRequest) (*Worksheet, error) {
	if ownerID == uuid.Nil {
		return nil, ErrWorksheetOwnerEmpty
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ws := &Worksheet{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		Title:         req.title(),
		Type:          req.Type,
		SubType:       req.SubType,
		Difficulty:    req.Difficulty,
		ColorMode:     req.colorMode(),
		TargetDomains: req.TargetDomains,
		ConditionTags: req.ConditionTags,
		Status:        WorksheetStatusGenerating,
		Version:       1,
		ChildID:       req.ChildID,
		CaseID:        req.CaseID,
		ScreeningID:   req.ScreeningID,
		ReportID:      req.ReportID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.Manual != nil {
		ws.AgeRangeMin = req.Manual.ChildAgeMonths
		ws.AgeRangeMax = req.Manual.ChildAgeMonths
	}
	return ws, nil
}

// Validate checks if the Worksheet has valid data. Target domains must be
// non-empty once the status has left the in-flight state.
func (w *Worksheet) Validate() error {
	if w.ID == uuid.Nil {
		return ErrWorksheetIDEmpty
	}
	if w.OwnerID == uuid.Nil {
		return ErrWorksheetOwnerEmpty
	}
	if w.Title == "" {
		return ErrWorksheetTitleEmpty
	}
	if !isValidWorksheetType(w.Type) {
		return ErrInvalidWorksheetType
	}
	if !isValidDifficulty(w.Difficulty) {
		return ErrInvalidDifficulty
	}
	if w.ColorMode != "" && !isValidColorMode(w.ColorMode) {
		return ErrInvalidColorMode
	}
	if !IsValidWorksheetStatus(w.Status) {
		return ErrInvalidWorksheetState
	}
	if w.Status != WorksheetStatusGenerating && w.Status != WorksheetStatusGenerationFailed {
		if err := ValidateDomains(w.TargetDomains); err != nil {
			return err
		}
	}
	return nil
}

// MarkDraft records successful content production, moving the worksheet out
// of the in-flight state.
func (w *Worksheet) MarkDraft(content json.RawMessage) error {
	if err := w.transitionTo(WorksheetStatusDraft); err != nil {
		return err
	}
	w.Content = content
	w.GenerationError = ""
	return nil
}

// MarkGenerationFailed records a terminal generation failure with the
// surfaced reason.
func (w *Worksheet) MarkGenerationFailed(reason string) error {
	if err := w.transitionTo(WorksheetStatusGenerationFailed); err != nil {
		return err
	}
	w.GenerationError = reason
	return nil
}

// Publish makes a draft worksheet publicly discoverable. Publishing an
// already-published worksheet is a no-op success; publishing from any other
// state is a state conflict.
func (w *Worksheet) Publish(now time.Time) error {
	if w.Status == WorksheetStatusPublished {
		return nil
	}
	if err := w.transitionTo(WorksheetStatusPublished); err != nil {
		return err
	}
	w.Visibility = true
	published := now.UTC()
	w.PublishedAt = &published
	return nil
}

// Unpublish withdraws a published worksheet back to draft. Idempotent:
// unpublishing a draft is a no-op success. Rating aggregates are preserved.
func (w *Worksheet) Unpublish() error {
	if w.Status == WorksheetStatusDraft {
		return nil
	}
	if err := w.transitionTo(WorksheetStatusDraft); err != nil {
		return err
	}
	w.Visibility = false
	return nil
}

// Archive retires the worksheet. Legal from any state; archived worksheets
// stay readable for audit but leave community browsing and new assignments.
func (w *Worksheet) Archive() error {
	if w.Status == WorksheetStatusArchived {
		return nil
	}
	if err := w.transitionTo(WorksheetStatusArchived); err != nil {
		return err
	}
	w.Visibility = false
	return nil
}

// MarkFlagged restricts the worksheet pending moderation. Only the
// moderation workflow calls this, on an actioned flag resolution.
func (w *Worksheet) MarkFlagged() error {
	if err := w.transitionTo(WorksheetStatusFlagged); err != nil {
		return err
	}
	w.Visibility = false
	return nil
}

// Restore moves a flagged worksheet back to published as part of a
// moderation resolution.
func (w *Worksheet) Restore() error {
	if w.Status != WorksheetStatusFlagged {
		return fmt.Errorf("%w: only flagged worksheets can be restored", ErrStateConflict)
	}
	if err := w.transitionTo(WorksheetStatusPublished); err != nil {
		return err
	}
	w.Visibility = true
	return nil
}

// Clone produces an independent copy owned by the cloning user. The copy
// starts as a private draft with fresh aggregates and lineage pointing at
// the source; the caller is responsible for incrementing the source's clone
// counter atomically in the same transaction.
func (w *Worksheet) Clone(ownerID uuid.UUID) (*Worksheet, error) {
	if ownerID == uuid.Nil {
		return nil, ErrWorksheetOwnerEmpty
	}
	if w.Status != WorksheetStatusPublished {
		return nil, fmt.Errorf("%w: only published worksheets can be cloned", ErrStateConflict)
	}

	now := time.Now().UTC()
	sourceID := w.ID
	clone := *w
	clone.ID = uuid.New()
	clone.OwnerID = ownerID
	clone.Status = WorksheetStatusDraft
	clone.Visibility = false
	clone.AverageRating = 0
	clone.ReviewCount = 0
	clone.CloneCount = 0
	clone.ClonedFromID = &sourceID
	clone.Version = 1
	clone.ParentVersionID = nil
	clone.PublishedAt = nil
	clone.CreatedAt = now
	clone.UpdatedAt = now
	clone.Content = append(json.RawMessage(nil), w.Content...)
	clone.TargetDomains = append([]DevelopmentalDomain(nil), w.TargetDomains...)
	clone.ConditionTags = append([]string(nil), w.ConditionTags...)
	return &clone, nil
}

// NewVersion produces the next edit-history version of the worksheet. The
// version lineage is a tree rooted at version 1 and is independent of the
// clone lineage.
func (w *Worksheet) NewVersion() (*Worksheet, error) {
	if w.Status == WorksheetStatusGenerating || w.Status == WorksheetStatusGenerationFailed {
		return nil, fmt.Errorf("%w: cannot version a worksheet without generated content", ErrStateConflict)
	}

	now := time.Now().UTC()
	parentID := w.ID
	next := *w
	next.ID = uuid.New()
	next.Status = WorksheetStatusDraft
	next.Visibility = false
	next.AverageRating = 0
	next.ReviewCount = 0
	next.CloneCount = 0
	next.Version = w.Version + 1
	next.ParentVersionID = &parentID
	next.PublishedAt = nil
	next.CreatedAt = now
	next.UpdatedAt = now
	next.Content = append(json.RawMessage(nil), w.Content...)
	next.TargetDomains = append([]DevelopmentalDomain(nil), w.TargetDomains...)
	next.ConditionTags = append([]string(nil), w.ConditionTags...)
	return &next, nil
}

func (w *Worksheet) touch() {
	w.UpdatedAt = time.Now().UTC()
}

func isValidWorksheetType(t WorksheetType) bool {
	switch t {
	case WorksheetTypeActivity, WorksheetTypeVisualSupport,
		WorksheetTypeStructuredPlan, WorksheetTypeProgressTracker:
		return true
	default:
		return false
	}
}

func isValidDifficulty(d Difficulty) bool {
	switch d {
	case DifficultyFoundational, DifficultyDeveloping,
		DifficultyProficient, DifficultyAdvanced:
		return true
	default:
		return false
	}
}

func isValidColorMode(c ColorMode) bool {
	switch c {
	case ColorModeFullColor, ColorModeBlackWhite:
		return true
	default:
		return false
	}
}
