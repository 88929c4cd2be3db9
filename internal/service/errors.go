package service

import (
	"errors"
	"fmt"

	"github.com/sproutwell/sproutwell-api/internal/store"
)

// Common service errors - sentinel errors used across service implementations.
// These errors represent conditions that callers may want to check for with
// errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in ServiceError
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrForbidden indicates the actor lacks permission for the operation,
	// typically an ownership or role check failure.
	// API layer maps this to HTTP 403 Forbidden.
	ErrForbidden = errors.New("operation not permitted for this user")

	// ErrWorksheetNotFound indicates the worksheet does not exist.
	ErrWorksheetNotFound = errors.New("worksheet not found")

	// ErrImageNotFound indicates the worksheet has no image in that slot.
	ErrImageNotFound = errors.New("worksheet image not found")

	// ErrAssignmentNotFound indicates the assignment does not exist.
	ErrAssignmentNotFound = errors.New("assignment not found")

	// ErrReviewNotFound indicates the review does not exist.
	ErrReviewNotFound = errors.New("review not found")

	// ErrFlagNotFound indicates the moderation flag does not exist.
	ErrFlagNotFound = errors.New("flag not found")

	// ErrScreeningNotFound indicates no screening scores exist for the child
	// or screening in question.
	ErrScreeningNotFound = errors.New("screening scores not found")

	// ErrDuplicateReview indicates the user has already reviewed the worksheet.
	// API layer maps this to HTTP 409 Conflict.
	ErrDuplicateReview = errors.New("user has already reviewed this worksheet")

	// ErrDuplicateCompletion indicates the assignment already has a
	// completion recorded.
	ErrDuplicateCompletion = errors.New("assignment already has a recorded completion")
)

// ServiceError wraps unexpected errors from service operations with context.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "generate_worksheet")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError. Known sentinel errors pass
// through so callers can match them directly; store-level not-found and
// duplicate sentinels are mapped to their service-level equivalents.
func NewServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	if mapped := mapStoreSentinel(err); mapped != nil {
		return mapped
	}

	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// mapStoreSentinel translates store sentinels into service sentinels.
// Returns nil when the error is not a recognized sentinel.
func mapStoreSentinel(err error) error {
	switch {
	case errors.Is(err, ErrForbidden),
		errors.Is(err, ErrWorksheetNotFound),
		errors.Is(err, ErrImageNotFound),
		errors.Is(err, ErrAssignmentNotFound),
		errors.Is(err, ErrReviewNotFound),
		errors.Is(err, ErrFlagNotFound),
		errors.Is(err, ErrScreeningNotFound),
		errors.Is(err, ErrDuplicateReview),
		errors.Is(err, ErrDuplicateCompletion):
		return err
	case errors.Is(err, store.ErrWorksheetNotFound):
		return ErrWorksheetNotFound
	case errors.Is(err, store.ErrImageNotFound):
		return ErrImageNotFound
	case errors.Is(err, store.ErrAssignmentNotFound):
		return ErrAssignmentNotFound
	case errors.Is(err, store.ErrReviewNotFound):
		return ErrReviewNotFound
	case errors.Is(err, store.ErrFlagNotFound):
		return ErrFlagNotFound
	case errors.Is(err, store.ErrScreeningNotFound):
		return ErrScreeningNotFound
	case errors.Is(err, store.ErrDuplicateReview):
		return ErrDuplicateReview
	case errors.Is(err, store.ErrDuplicateCompletion):
		return ErrDuplicateCompletion
	default:
		return nil
	}
}
