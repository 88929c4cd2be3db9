package domain

import "fmt"

// WorksheetStatus represents the lifecycle state of a worksheet.
type WorksheetStatus string

// Possible worksheet status values.
const (
	// WorksheetStatusGenerating is the initial state for newly requested
	// content; the document and images are still being produced.
	WorksheetStatusGenerating WorksheetStatus = "generating"

	// WorksheetStatusGenerationFailed is the terminal state reached when
	// content generation exhausts its retries or times out.
	WorksheetStatusGenerationFailed WorksheetStatus = "generation_failed"

	// WorksheetStatusDraft is a private, editable worksheet.
	WorksheetStatusDraft WorksheetStatus = "draft"

	// WorksheetStatusPublished is publicly discoverable and assignable.
	WorksheetStatusPublished WorksheetStatus = "published"

	// WorksheetStatusArchived is retired and read-only.
	WorksheetStatusArchived WorksheetStatus = "archived"

	// WorksheetStatusFlagged is restricted pending moderation.
	WorksheetStatusFlagged WorksheetStatus = "flagged"
)

// lifecycleTransitions is the single source of truth for legal worksheet
// status transitions. Callers never check transition rules ad hoc; they go
// through Worksheet.transitionTo.
var lifecycleTransitions = map[WorksheetStatus][]WorksheetStatus{
	WorksheetStatusGenerating: {
		WorksheetStatusDraft,
		WorksheetStatusGenerationFailed,
		WorksheetStatusArchived,
	},
	WorksheetStatusGenerationFailed: {
		WorksheetStatusArchived,
	},
	WorksheetStatusDraft: {
		WorksheetStatusPublished,
		WorksheetStatusFlagged,
		WorksheetStatusArchived,
	},
	WorksheetStatusPublished: {
		WorksheetStatusDraft,
		WorksheetStatusFlagged,
		WorksheetStatusArchived,
	},
	WorksheetStatusFlagged: {
		WorksheetStatusPublished,
		WorksheetStatusArchived,
	},
	WorksheetStatusArchived: {},
}

// IsValidWorksheetStatus checks if the given status is a valid WorksheetStatus.
func IsValidWorksheetStatus(status WorksheetStatus) bool {
	_, ok := lifecycleTransitions[status]
	return ok
}

// IsTerminalGenerationStatus reports whether a poller observing this status
// should stop polling: everything except the in-flight state is terminal
// from the generation request's point of view.
func IsTerminalGenerationStatus(status WorksheetStatus) bool {
	return status != WorksheetStatusGenerating
}

// CanTransition reports whether moving a worksheet from one status to
// another is legal per the lifecycle table.
func CanTransition(from, to WorksheetStatus) bool {
	for _, next := range lifecycleTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// transitionTo moves the worksheet to the target status after checking the
// lifecycle table. Returns an error wrapping ErrStateConflict if the
// transition is illegal from the current status.
func (w *Worksheet) transitionTo(to WorksheetStatus) error {
	if !IsValidWorksheetStatus(to) {
		return NewValidationError("status", "unknown status "+string(to), ErrValidation)
	}
	if !CanTransition(w.Status, to) {
		return fmt.Errorf("%w: cannot move worksheet from %s to %s",
			ErrStateConflict, w.Status, to)
	}
	w.Status = to
	w.touch()
	return nil
}
