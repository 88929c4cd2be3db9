package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the
	// store. This is the generic version of the entity-specific not found
	// errors (e.g., ErrWorksheetNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate of
	// a unique entity (e.g., a second review by the same user).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUpdateFailed is returned when an update operation fails, for example
	// because the entity does not exist or the update violates constraints.
	ErrUpdateFailed = errors.New("update failed")

	// ErrDeleteFailed is returned when a delete operation fails, for example
	// because the entity is referenced by other entities.
	ErrDeleteFailed = errors.New("delete failed")

	// ErrTransactionFailed is returned when a database transaction fails to
	// commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors

	// ErrWorksheetNotFound indicates that the requested worksheet does not exist.
	ErrWorksheetNotFound = fmt.Errorf("%w: worksheet", ErrNotFound)

	// ErrImageNotFound indicates that the requested worksheet image does not exist.
	ErrImageNotFound = fmt.Errorf("%w: worksheet image", ErrNotFound)

	// ErrAssignmentNotFound indicates that the requested assignment does not exist.
	ErrAssignmentNotFound = fmt.Errorf("%w: assignment", ErrNotFound)

	// ErrCompletionNotFound indicates that the requested completion does not exist.
	ErrCompletionNotFound = fmt.Errorf("%w: completion", ErrNotFound)

	// ErrReviewNotFound indicates that the requested review does not exist.
	ErrReviewNotFound = fmt.Errorf("%w: review", ErrNotFound)

	// ErrFlagNotFound indicates that the requested moderation flag does not exist.
	ErrFlagNotFound = fmt.Errorf("%w: flag", ErrNotFound)

	// ErrScreeningNotFound indicates that the requested screening has no scores.
	ErrScreeningNotFound = fmt.Errorf("%w: screening", ErrNotFound)

	// ErrTaskNotFound indicates that the requested background task does not exist.
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrDuplicateReview indicates the user already reviewed this worksheet.
	ErrDuplicateReview = fmt.Errorf("%w: review", ErrDuplicate)

	// ErrDuplicateCompletion indicates the assignment already has a completion.
	ErrDuplicateCompletion = fmt.Errorf("%w: completion", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error,
// generic or entity-specific.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error,
// generic or entity-specific.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "worksheet", "assignment")
	Operation string // The operation that failed (e.g., "create", "update")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
