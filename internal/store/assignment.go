package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/sproutwell/sproutwell-api/internal/domain"
)

// AssignmentFilter narrows assignment listings. Zero values mean "no filter".
type AssignmentFilter struct {
	ChildID *uuid.UUID
	Status  domain.AssignmentStatus
	Limit   int
	Offset  int
}

// AssignmentStore defines the interface for assignment persistence.
// Assignments are append-then-update records; they are never deleted.
type AssignmentStore interface {
	// Create saves a new assignment to the store.
	Create(ctx context.Context, a *domain.Assignment) error

	// GetByID retrieves an assignment by its unique ID.
	// Returns ErrAssignmentNotFound if the assignment does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Assignment, error)

	// Update saves changes to an existing assignment.
	// Returns ErrAssignmentNotFound if the assignment does not exist.
	Update(ctx context.Context, a *domain.Assignment) error

	// ListByAssignee retrieves assignments directed at the given user,
	// newest first.
	ListByAssignee(ctx context.Context, userID uuid.UUID, filter AssignmentFilter) ([]*domain.Assignment, error)

	// ListByAssigner retrieves assignments created by the given user,
	// newest first.
	ListByAssigner(ctx context.Context, userID uuid.UUID, filter AssignmentFilter) ([]*domain.Assignment, error)

	// WithTx returns a new AssignmentStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) AssignmentStore
}
