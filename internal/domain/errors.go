// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized is returned when no authenticated identity is available.
	ErrUnauthorized = errors.New("unauthorized operation")

	ErrEmptyTaskID   = errors.New("task ID cannot be empty")
	ErrEmptyOwnerID  = errors.New("task owner ID cannot be empty")
	ErrEmptyTitle    = errors.New("task title cannot be empty")
	ErrInvalidStatus = errors.New("invalid task status")
)

// FieldError ties a validation failure to the field that caused it.
type FieldError struct {
	Field   string
	Message string
	Err     error
}

// NewFieldError creates a FieldError; err is usually one of the sentinels above.
func NewFieldError(field, message string, err error) *FieldError {
	return &FieldError{Field: field, Message: message, Err: err}
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap exposes the sentinel so errors.Is works through the FieldError.
func (e *FieldError) Unwrap() error {
	if e.Err == nil {
		return ErrValidation
	}
	return e.Err
}
