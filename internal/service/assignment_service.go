package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sproutwell/sproutwell-api/internal/domain"
	"github.com/sproutwell/sproutwell-api/internal/store"
)

// AssignmentRepository is the persistence surface the assignment service
// needs: the store interface plus the raw connection for service-owned
// transactions.
type AssignmentRepository interface {
	store.AssignmentStore

	// DB returns the underlying database connection
	DB() *sql.DB
}

// CreateAssignmentInput carries the fields for a new assignment.
type CreateAssignmentInput struct {
	WorksheetID  uuid.UUID
	AssignedToID uuid.UUID
	ChildID      uuid.UUID
	CaseID       *uuid.UUID
	DueDate      *time.Time
	Notes        string
}

// RecordCompletionInput carries the fields for a new completion record.
// AssignmentID is optional; ad-hoc practice completes without one.
type RecordCompletionInput struct {
	WorksheetID      uuid.UUID
	ChildID          uuid.UUID
	AssignmentID     *uuid.UUID
	TimeSpentMinutes int
	DifficultyRating int
	EngagementRating int
	HelpLevel        domain.HelpLevel
	Quality          domain.CompletionQuality
	ParentNotes      string
}

// AssignmentService coordinates worksheet assignments and completion
// recording.
type AssignmentService interface {
	// CreateAssignment assigns a published worksheet to a caregiver for a
	// child. Assigning an unpublished worksheet is a state conflict.
	CreateAssignment(ctx context.Context, actorID uuid.UUID, input CreateAssignmentInput) (*domain.Assignment, error)

	// GetAssignment retrieves an assignment by its ID.
	GetAssignment(ctx context.Context, id uuid.UUID) (*domain.Assignment, error)

	// UpdateStatus advances the assignment one step forward. Only the
	// assignee may advance; completion goes through RecordCompletion.
	UpdateStatus(ctx context.Context, actorID, id uuid.UUID, target domain.AssignmentStatus) (*domain.Assignment, error)

	// RecordCompletion writes a completion record. When the input names an
	// assignment, the assignment is completed in the same transaction.
	RecordCompletion(ctx context.Context, actorID uuid.UUID, input RecordCompletionInput) (*domain.Completion, error)

	// ListForAssignee retrieves assignments directed at the user. An overdue
	// status filter selects on the derived status rather than the stored one.
	ListForAssignee(ctx context.Context, userID uuid.UUID, filter store.AssignmentFilter) ([]*domain.Assignment, error)

	// ListForAssigner retrieves assignments the user created.
	ListForAssigner(ctx context.Context, userID uuid.UUID, filter store.AssignmentFilter) ([]*domain.Assignment, error)

	// ListCompletionsByChild retrieves a child's completion records within
	// the window. A zero since means no lower bound.
	ListCompletionsByChild(ctx context.Context, childID uuid.UUID, since time.Time) ([]*domain.Completion, error)
}

// assignmentServiceImpl implements the AssignmentService interface
type assignmentServiceImpl struct {
	assignments AssignmentRepository
	completions store.CompletionStore
	worksheets  store.WorksheetStore
	logger      *slog.Logger
	timeFunc    func() time.Time // Injectable for testing
}

// NewAssignmentService creates a new AssignmentService.
func NewAssignmentService(
	assignments AssignmentRepository,
	completions store.CompletionStore,
	worksheets store.WorksheetStore,
	logger *slog.Logger,
) (AssignmentService, error) {
	if assignments == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "assignments cannot be nil"}
	}
	if completions == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "completions cannot be nil"}
	}
	if worksheets == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "worksheets cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &assignmentServiceImpl{
		assignments: assignments,
		completions: completions,
		worksheets:  worksheets,
		logger:      logger.With("component", "assignment_service"),
		timeFunc:    time.Now,
	}, nil
}

// CreateAssignment assigns a published worksheet to a caregiver for a child.
func (s *assignmentServiceImpl) CreateAssignment(
	ctx context.Context,
	actorID uuid.UUID,
	input CreateAssignmentInput,
) (*domain.Assignment, error) {
	ws, err := s.worksheets.GetByID(ctx, input.WorksheetID)
	if err != nil {
		return nil, NewServiceError("create_assignment", "failed to retrieve worksheet", err)
	}
	if ws.Status != domain.WorksheetStatusPublished {
		return nil, fmt.Errorf("%w: only published worksheets can be assigned (worksheet is %s)",
			domain.ErrStateConflict, ws.Status)
	}

	assignment, err := domain.NewAssignment(
		input.WorksheetID,
		actorID,
		input.AssignedToID,
		input.ChildID,
		input.CaseID,
		input.DueDate,
		input.Notes,
	)
	if err != nil {
		return nil, err
	}

	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, NewServiceError("create_assignment", "failed to save assignment", err)
	}

	s.logger.Info("assignment created",
		"assignment_id", assignment.ID,
		"worksheet_id", input.WorksheetID,
		"assigned_to", input.AssignedToID,
		"child_id", input.ChildID)

	return assignment, nil
}

// GetAssignment retrieves an assignment by its ID.
func (s *assignmentServiceImpl) GetAssignment(ctx context.Context, id uuid.UUID) (*domain.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		return nil, NewServiceError("get_assignment", "failed to retrieve assignment", err)
	}
	return assignment, nil
}

// UpdateStatus advances the assignment one step forward.
func (s *assignmentServiceImpl) UpdateStatus(
	ctx context.Context,
	actorID, id uuid.UUID,
	target domain.AssignmentStatus,
) (*domain.Assignment, error) {
	var result *domain.Assignment
	err := store.RunInTransaction(ctx, s.assignments.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txAssignments := s.assignments.WithTx(tx)

		assignment, err := txAssignments.GetByID(ctx, id)
		if err != nil {
			return NewServiceError("update_assignment_status", "failed to retrieve assignment", err)
		}
		if assignment.AssignedToID != actorID {
			return ErrForbidden
		}

		if err := assignment.UpdateStatus(target, s.timeFunc()); err != nil {
			return err
		}

		if err := txAssignments.Update(ctx, assignment); err != nil {
			return NewServiceError("update_assignment_status", "failed to save assignment", err)
		}

		result = assignment
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("assignment status updated",
		"assignment_id", id,
		"status", string(result.Status))

	return result, nil
}

// RecordCompletion writes a completion record, completing the linked
// assignment in the same transaction when one is named. The two writes
// commit together or not at all.
func (s *assignmentServiceImpl) RecordCompletion(
	ctx context.Context,
	actorID uuid.UUID,
	input RecordCompletionInput,
) (*domain.Completion, error) {
	var completion *domain.Completion
	err := store.RunInTransaction(ctx, s.assignments.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txAssignments := s.assignments.WithTx(tx)
		txCompletions := s.completions.WithTx(tx)

		worksheetID := input.WorksheetID
		childID := input.ChildID

		if input.AssignmentID != nil {
			assignment, err := txAssignments.GetByID(ctx, *input.AssignmentID)
			if err != nil {
				return NewServiceError("record_completion", "failed to retrieve assignment", err)
			}
			if assignment.AssignedToID != actorID {
				return ErrForbidden
			}

			// The assignment is the source of truth for what was worked.
			worksheetID = assignment.WorksheetID
			childID = assignment.ChildID

			if err := assignment.Complete(s.timeFunc()); err != nil {
				return err
			}
			if err := txAssignments.Update(ctx, assignment); err != nil {
				return NewServiceError("record_completion", "failed to save assignment", err)
			}
		}

		c, err := domain.NewCompletion(worksheetID, childID, actorID, input.AssignmentID)
		if err != nil {
			return err
		}
		c.TimeSpentMinutes = input.TimeSpentMinutes
		c.DifficultyRating = input.DifficultyRating
		c.EngagementRating = input.EngagementRating
		c.HelpLevel = input.HelpLevel
		c.Quality = input.Quality
		c.ParentNotes = input.ParentNotes
		if err := c.Validate(); err != nil {
			return err
		}

		if err := txCompletions.Create(ctx, c); err != nil {
			return NewServiceError("record_completion", "failed to save completion", err)
		}

		completion = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("completion recorded",
		"completion_id", completion.ID,
		"worksheet_id", completion.WorksheetID,
		"child_id", completion.ChildID,
		"assignment_linked", completion.AssignmentID != nil)

	return completion, nil
}

// ListForAssignee retrieves assignments directed at the user.
func (s *assignmentServiceImpl) ListForAssignee(
	ctx context.Context,
	userID uuid.UUID,
	filter store.AssignmentFilter,
) ([]*domain.Assignment, error) {
	return s.listAssignments(ctx, "list_for_assignee", filter, func(f store.AssignmentFilter) ([]*domain.Assignment, error) {
		return s.assignments.ListByAssignee(ctx, userID, f)
	})
}

// ListForAssigner retrieves assignments the user created.
func (s *assignmentServiceImpl) ListForAssigner(
	ctx context.Context,
	userID uuid.UUID,
	filter store.AssignmentFilter,
) ([]*domain.Assignment, error) {
	return s.listAssignments(ctx, "list_for_assigner", filter, func(f store.AssignmentFilter) ([]*domain.Assignment, error) {
		return s.assignments.ListByAssigner(ctx, userID, f)
	})
}

// listAssignments runs the store query, translating an overdue status filter
// into a derived-status selection since overdue is never stored.
func (s *assignmentServiceImpl) listAssignments(
	ctx context.Context,
	operation string,
	filter store.AssignmentFilter,
	query func(store.AssignmentFilter) ([]*domain.Assignment, error),
) ([]*domain.Assignment, error) {
	wantOverdue := filter.Status == domain.AssignmentStatusOverdue
	if wantOverdue {
		filter.Status = ""
	}

	assignments, err := query(filter)
	if err != nil {
		return nil, NewServiceError(operation, "failed to list assignments", err)
	}

	if !wantOverdue {
		return assignments, nil
	}

	now := s.timeFunc()
	overdue := make([]*domain.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if a.EffectiveStatus(now) == domain.AssignmentStatusOverdue {
			overdue = append(overdue, a)
		}
	}
	return overdue, nil
}

// ListCompletionsByChild retrieves a child's completion records.
func (s *assignmentServiceImpl) ListCompletionsByChild(
	ctx context.Context,
	childID uuid.UUID,
	since time.Time,
) ([]*domain.Completion, error) {
	completions, err := s.completions.ListByChild(ctx, childID, since)
	if err != nil {
		return nil, NewServiceError("list_completions", "failed to list completions", err)
	}
	return completions, nil
}
