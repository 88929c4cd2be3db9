package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GenerationDataSource identifies which kind of input the generation request
// draws on. Each source carries its own payload.
type GenerationDataSource string

// Possible generation data sources.
const (
	DataSourceManual         GenerationDataSource = "MANUAL"
	DataSourceScreening      GenerationDataSource = "SCREENING"
	DataSourceUploadedReport GenerationDataSource = "UPLOADED_REPORT"
	DataSourceIEPGoals       GenerationDataSource = "IEP_GOALS"
	DataSourceSessionNotes   GenerationDataSource = "SESSION_NOTES"
)

// ManualInput is the payload for manually described children.
type ManualInput struct {
	ChildAgeMonths int      `json:"child_age_months"`
	Concerns       []string `json:"concerns,omitempty"`
}

// IEPGoalsInput is the payload for IEP-goal-driven generation.
type IEPGoalsInput struct {
	Goals []string `json:"goals"`
}

// SessionNotesInput is the payload for session-note-driven generation.
type SessionNotesInput struct {
	Notes string `json:"notes"`
}

// GenerationRequest is the typed request accepted by the generation
// coordinator. Exactly one data-source payload must be populated, and it
// must match DataSource; a mismatch is a validation error, never silently
// ignored.
type GenerationRequest struct {
	DataSource          GenerationDataSource  `json:"data_source"`
	Type                WorksheetType         `json:"type"`
	SubType             string                `json:"sub_type,omitempty"`
	TargetDomains       []DevelopmentalDomain `json:"target_domains"`
	ConditionTags       []string              `json:"condition_tags,omitempty"`
	Difficulty          Difficulty            `json:"difficulty"`
	Interests           []string              `json:"interests,omitempty"`
	DurationMinutes     int                   `json:"duration_minutes,omitempty"`
	ColorMode           ColorMode             `json:"color_mode,omitempty"`
	SpecialInstructions string                `json:"special_instructions,omitempty"`
	ImageCount          int                   `json:"image_count,omitempty"`
	ChildID             *uuid.UUID            `json:"child_id,omitempty"`
	CaseID              *uuid.UUID            `json:"case_id,omitempty"`
	ScreeningID         *uuid.UUID            `json:"screening_id,omitempty"`
	ReportID            *uuid.UUID            `json:"report_id,omitempty"`
	Manual              *ManualInput          `json:"manual,omitempty"`
	IEPGoals            *IEPGoalsInput        `json:"iep_goals,omitempty"`
	SessionNotes        *SessionNotesInput    `json:"session_notes,omitempty"`
}

// Validate checks the request shape and that the payload matches the
// declared data source.
func (r *GenerationRequest) Validate() error {
	if r == nil {
		return NewValidationError("request", "cannot be nil", ErrValidation)
	}
	if !isValidWorksheetType(r.Type) {
		return NewValidationError("type", "unknown worksheet type "+string(r.Type), ErrValidation)
	}
	if !isValidDifficulty(r.Difficulty) {
		return NewValidationError("difficulty", "unknown difficulty "+string(r.Difficulty), ErrValidation)
	}
	if r.ColorMode != "" && !isValidColorMode(r.ColorMode) {
		return NewValidationError("colorMode", "unknown color mode "+string(r.ColorMode), ErrValidation)
	}
	if err := ValidateDomains(r.TargetDomains); err != nil {
		return err
	}
	if r.DurationMinutes < 0 {
		return NewValidationError("durationMinutes", "cannot be negative", ErrValidation)
	}
	if r.ImageCount < 0 {
		return NewValidationError("imageCount", "cannot be negative", ErrValidation)
	}

	switch r.DataSource {
	case DataSourceManual:
		if r.Manual == nil || r.Manual.ChildAgeMonths <= 0 {
			return NewValidationError("manual",
				"manual data source requires the child's age", ErrValidation)
		}
	case DataSourceScreening:
		if r.ScreeningID == nil || *r.ScreeningID == uuid.Nil {
			return NewValidationError("screeningId",
				"screening data source requires a screening reference", ErrValidation)
		}
	case DataSourceUploadedReport:
		if r.ReportID == nil || *r.ReportID == uuid.Nil {
			return NewValidationError("reportId",
				"uploaded-report data source requires a report reference", ErrValidation)
		}
	case DataSourceIEPGoals:
		if r.IEPGoals == nil || len(r.IEPGoals.Goals) == 0 {
			return NewValidationError("iepGoals",
				"IEP-goals data source requires at least one goal", ErrValidation)
		}
	case DataSourceSessionNotes:
		if r.SessionNotes == nil || strings.TrimSpace(r.SessionNotes.Notes) == "" {
			return NewValidationError("sessionNotes",
				"session-notes data source requires notes text", ErrValidation)
		}
	default:
		return NewValidationError("dataSource",
			"unknown data source "+string(r.DataSource), ErrValidation)
	}
	return nil
}

// title derives a provisional title for the in-flight worksheet; the
// generated content replaces it once production succeeds.
func (r *GenerationRequest) title() string {
	kind := strings.ReplaceAll(strings.ToLower(string(r.Type)), "_", " ")
	domains := make([]string, len(r.TargetDomains))
	for i, d := range r.TargetDomains {
		domains[i] = strings.ReplaceAll(strings.ToLower(string(d)), "_", " ")
	}
	return fmt.Sprintf("%s worksheet (%s)", kind, strings.Join(domains, ", "))
}

func (r *GenerationRequest) colorMode() ColorMode {
	if r.ColorMode == "" {
		return ColorModeFullColor
	}
	return r.ColorMode
}
