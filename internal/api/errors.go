package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sproutwell/sproutwell-api/internal/api/shared"
	"github.com/sproutwell/sproutwell-api/internal/domain"
	"github.com/sproutwell/sproutwell-api/internal/generation"
	"github.com/sproutwell/sproutwell-api/internal/service"
	"github.com/sproutwell/sproutwell-api/internal/service/auth"
	"github.com/sproutwell/sproutwell-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrUnknownRole):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, service.ErrWorksheetNotFound),
		errors.Is(err, service.ErrImageNotFound),
		errors.Is(err, service.ErrAssignmentNotFound),
		errors.Is(err, service.ErrReviewNotFound),
		errors.Is(err, service.ErrFlagNotFound),
		errors.Is(err, service.ErrScreeningNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, domain.ErrStateConflict),
		errors.Is(err, store.ErrDuplicate),
		errors.Is(err, service.ErrDuplicateReview),
		errors.Is(err, service.ErrDuplicateCompletion):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Upstream generation failures
	case errors.Is(err, generation.ErrTransientFailure),
		errors.Is(err, generation.ErrContentBlocked),
		errors.Is(err, generation.ErrInvalidResponse):
		return http.StatusBadGateway

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrUnknownRole):
		return "Invalid token"

	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"

	case errors.Is(err, auth.ErrTokenNotYetValid):
		return "Token not yet valid"

	// Authorization errors
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, domain.ErrUnauthorized):
		return "You do not have permission to perform this action"

	// Not found errors
	case errors.Is(err, service.ErrWorksheetNotFound),
		errors.Is(err, store.ErrWorksheetNotFound):
		return "Worksheet not found"

	case errors.Is(err, service.ErrImageNotFound),
		errors.Is(err, store.ErrImageNotFound):
		return "Worksheet image not found"

	case errors.Is(err, service.ErrAssignmentNotFound),
		errors.Is(err, store.ErrAssignmentNotFound):
		return "Assignment not found"

	case errors.Is(err, service.ErrReviewNotFound),
		errors.Is(err, store.ErrReviewNotFound):
		return "Review not found"

	case errors.Is(err, service.ErrFlagNotFound),
		errors.Is(err, store.ErrFlagNotFound):
		return "Flag not found"

	case errors.Is(err, service.ErrScreeningNotFound),
		errors.Is(err, store.ErrScreeningNotFound):
		return "Screening scores not found"

	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	// Conflict errors
	case errors.Is(err, service.ErrDuplicateReview):
		return "You have already reviewed this worksheet"

	case errors.Is(err, service.ErrDuplicateCompletion):
		return "This assignment already has a recorded completion"

	case errors.Is(err, domain.ErrStateConflict):
		// State-conflict messages are written for callers; surfacing them
		// tells the client which transition was illegal.
		return err.Error()

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			return ve.Error()
		}
		return "Invalid request data"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	// Upstream generation failures
	case errors.Is(err, generation.ErrContentBlocked):
		return "Generated content was blocked by safety filters"

	case errors.Is(err, generation.ErrTransientFailure),
		errors.Is(err, generation.ErrInvalidResponse):
		return "Content generation is temporarily unavailable"

	// Default case for unknown errors
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError maps the error to a status code and safe message and writes
// the response. defaultMsg overrides the generic fallback message when the
// error is not a recognized type.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if defaultMsg != "" && message == "An unexpected error occurred" {
		message = defaultMsg
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Check if this is likely a validator package error message
	if strings.Contains(errMsg, "Field validation") {
		// Example format: "Key: 'CreateReviewRequest.Rating' Error:Field
		// validation for 'Rating' failed on the 'max' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too small"
	case "max":
		return "too large"
	case "oneof":
		return "invalid value"
	case "uuid":
		return "invalid identifier format"
	default:
		return "validation failed"
	}
}
