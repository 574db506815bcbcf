package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned by conditional writes when the task does not exist
	// for the given owner. Get does not use it; a missing task is (nil, nil).
	ErrNotFound = errors.New("task not found")

	// ErrDuplicate is returned when a create would overwrite an existing key.
	// It always arrives wrapped in a StoreError, so it also matches ErrStoreFault.
	ErrDuplicate = errors.New("task already exists")

	// ErrBadCursor is returned when a pagination cursor cannot be decoded or
	// does not belong to the caller's partition.
	ErrBadCursor = errors.New("invalid pagination cursor")

	// ErrStoreFault marks any failure of the backing store itself.
	// Check the wrapped error for the driver-level cause.
	ErrStoreFault = errors.New("task store failure")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")
)

// StoreError is a custom error type for backend failures with additional context.
// It matches ErrStoreFault and unwraps to the original error.
type StoreError struct {
	Operation string // The operation that failed (e.g., "create", "list")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is reports every StoreError as an ErrStoreFault.
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreFault
}

// NewStoreError creates a new StoreError with the given operation, message, and wrapped error.
func NewStoreError(operation, message string, err error) *StoreError {
	return &StoreError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
