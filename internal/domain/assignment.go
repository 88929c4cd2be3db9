package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AssignmentStatus is the stored task state of an assignment. Statuses move
// strictly forward through assignmentStatusOrder; "overdue" is derived at
// read time and never stored.
type AssignmentStatus string

// Possible assignment status values, in strict forward order.
const (
	AssignmentStatusAssigned   AssignmentStatus = "assigned"
	AssignmentStatusViewed     AssignmentStatus = "viewed"
	AssignmentStatusInProgress AssignmentStatus = "in_progress"
	AssignmentStatusCompleted  AssignmentStatus = "completed"

	// AssignmentStatusOverdue is a derived display state computed from the
	// due date. It is a valid value for EffectiveStatus results only; it is
	// never persisted and never appears in status-history audits.
	AssignmentStatusOverdue AssignmentStatus = "overdue"
)

var assignmentStatusOrder = map[AssignmentStatus]int{
	AssignmentStatusAssigned:   0,
	AssignmentStatusViewed:     1,
	AssignmentStatusInProgress: 2,
	AssignmentStatusCompleted:  3,
}

// Assignment-specific validation errors.
var (
	ErrAssignmentIDEmpty        = errors.New("assignment ID cannot be empty")
	ErrAssignmentWorksheetEmpty = errors.New("assignment worksheet ID cannot be empty")
	ErrAssignmentAssigneeEmpty  = errors.New("assignment assignee ID cannot be empty")
	ErrAssignmentAssignerEmpty  = errors.New("assignment assigner ID cannot be empty")
	ErrAssignmentChildEmpty     = errors.New("assignment child ID cannot be empty")
	ErrInvalidAssignmentStatus  = errors.New("invalid assignment status")
)

// Assignment is a directed task linking a worksheet, the caregiver it was
// assigned to, and a child. Assignments are never deleted; they form the
// audit trail behind completions.
type Assignment struct {
	ID           uuid.UUID        `json:"id"`
	WorksheetID  uuid.UUID        `json:"worksheet_id"`
	AssignedByID uuid.UUID        `json:"assigned_by_id"`
	AssignedToID uuid.UUID        `json:"assigned_to_id"`
	ChildID      uuid.UUID        `json:"child_id"`
	CaseID       *uuid.UUID       `json:"case_id,omitempty"`
	Status       AssignmentStatus `json:"status"`
	DueDate      *time.Time       `json:"due_date,omitempty"`
	Notes        string           `json:"notes,omitempty"`
	ParentNotes  string           `json:"parent_notes,omitempty"`
	ViewedAt     *time.Time       `json:"viewed_at,omitempty"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// NewAssignment creates an assignment in the assigned state.
func NewAssignment(
	worksheetID, assignedByID, assignedToID, childID uuid.UUID,
	caseID *uuid.UUID,
	dueDate *time.Time,
	notes string,
) (*Assignment, error) {
	now := time.Now().UTC()
	a := &Assignment{
		ID:           uuid.New(),
		WorksheetID:  worksheetID,
		AssignedByID: assignedByID,
		AssignedToID: assignedToID,
		ChildID:      childID,
		CaseID:       caseID,
		Status:       AssignmentStatusAssigned,
		DueDate:      dueDate,
		Notes:        notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate checks if the Assignment has valid data.
func (a *Assignment) Validate() error {
	if a.ID == uuid.Nil {
		return ErrAssignmentIDEmpty
	}
	if a.WorksheetID == uuid.Nil {
		return ErrAssignmentWorksheetEmpty
	}
	if a.AssignedByID == uuid.Nil {
		return ErrAssignmentAssignerEmpty
	}
	if a.AssignedToID == uuid.Nil {
		return ErrAssignmentAssigneeEmpty
	}
	if a.ChildID == uuid.Nil {
		return ErrAssignmentChildEmpty
	}
	if _, ok := assignmentStatusOrder[a.Status]; !ok {
		return ErrInvalidAssignmentStatus
	}
	return nil
}

// UpdateStatus applies a bare status update. Only single forward steps are
// legal; moving backward, skipping a state, or reaching completed this way
// is rejected. Completion is reserved for RecordCompletion, which is the
// only path allowed to jump.
func (a *Assignment) UpdateStatus(target AssignmentStatus, now time.Time) error {
	targetRank, ok := assignmentStatusOrder[target]
	if !ok {
		return ErrInvalidAssignmentStatus
	}
	if target == AssignmentStatusCompleted {
		return fmt.Errorf("%w: assignments complete through completion recording, not a status update",
			ErrStateConflict)
	}
	currentRank := assignmentStatusOrder[a.Status]
	if targetRank != currentRank+1 {
		return fmt.Errorf("%w: cannot move assignment from %s to %s",
			ErrStateConflict, a.Status, target)
	}
	a.Status = target
	if target == AssignmentStatusViewed && a.ViewedAt == nil {
		viewed := now.UTC()
		a.ViewedAt = &viewed
	}
	a.UpdatedAt = now.UTC()
	return nil
}

// Complete drives the assignment to the completed state from any prior
// state. Called only by the completion-recording path; a second completion
// is a state conflict, never a silent duplicate.
func (a *Assignment) Complete(now time.Time) error {
	if a.Status == AssignmentStatusCompleted {
		return fmt.Errorf("%w: assignment is already completed", ErrStateConflict)
	}
	a.Status = AssignmentStatusCompleted
	completed := now.UTC()
	a.CompletedAt = &completed
	a.UpdatedAt = completed
	return nil
}

// EffectiveStatus derives the display status at read time: an incomplete
// assignment past its due date reads as overdue. The stored status is
// untouched so it never drifts against wall-clock time.
func (a *Assignment) EffectiveStatus(now time.Time) AssignmentStatus {
	if a.Status != AssignmentStatusCompleted && a.DueDate != nil && a.DueDate.Before(now) {
		return AssignmentStatusOverdue
	}
	return a.Status
}
