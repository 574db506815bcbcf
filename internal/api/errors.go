package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/taskr/internal/api/shared"
	"github.com/phrazzld/taskr/internal/domain"
	"github.com/phrazzld/taskr/internal/service"
	"github.com/phrazzld/taskr/internal/service/auth"
	"github.com/phrazzld/taskr/internal/store"
	"github.com/phrazzld/taskr/internal/validation"
)

const genericErrorMessage = "An unexpected error occurred"

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrMissingIdentity),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrEmptyTitle),
		errors.Is(err, domain.ErrEmptyTaskID),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, store.ErrBadCursor):
		return http.StatusBadRequest

	case errors.Is(err, shared.ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge

	// Not found errors
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, service.ErrNoAttachment):
		return http.StatusNotFound

	// Checked before ErrTimeout: a dispatch that timed out is still a 500.
	case errors.Is(err, service.ErrWorkflowDispatch):
		return http.StatusInternalServerError

	case errors.Is(err, service.ErrTimeout):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return genericErrorMessage
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrMissingIdentity),
		errors.Is(err, domain.ErrUnauthorized):
		return "Unauthorized"

	case errors.Is(err, domain.ErrValidation):
		return "Validation failed"
	case errors.Is(err, domain.ErrEmptyTitle):
		return "Title is required"
	case errors.Is(err, domain.ErrEmptyTaskID):
		return "Task ID is required"
	case errors.Is(err, domain.ErrInvalidStatus):
		return "Invalid status"
	case errors.Is(err, store.ErrBadCursor):
		return "Invalid pagination token"
	case errors.Is(err, shared.ErrBodyTooLarge):
		return "Request body too large"

	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrNotFound):
		return "Task not found"
	case errors.Is(err, service.ErrNoAttachment):
		return "Task has no attachment"

	case errors.Is(err, service.ErrWorkflowDispatch):
		return "Status updated but workflow could not be started"
	case errors.Is(err, service.ErrTimeout):
		return "Service temporarily unavailable, please retry"
	case errors.Is(err, service.ErrAttachmentsDisabled):
		return "Attachments are not enabled"

	default:
		return genericErrorMessage
	}
}

// HandleAPIError writes the response for err and logs it. defaultMsg
// replaces the generic message of unmapped errors. Validation errors carry
// their field messages into the body.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	msg := GetSafeErrorMessage(err)
	if msg == genericErrorMessage && defaultMsg != "" {
		msg = defaultMsg
	}

	var opts []shared.ResponseOption
	var verr *validation.Error
	if errors.As(err, &verr) {
		opts = append(opts, shared.WithFields(verr.Fields))
	}
	var ferr *domain.FieldError
	if errors.As(err, &ferr) {
		opts = append(opts, shared.WithFields(map[string]string{ferr.Field: ferr.Message}))
	}

	shared.RespondWithErrorAndLog(w, r, status, msg, err, opts...)
}
