package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/taskr/internal/domain"
	"github.com/phrazzld/taskr/internal/store"
)

// Common service errors - sentinel errors used across service implementations.
// These errors represent common conditions that callers may want to check for with errors.Is().
var (
	// ErrTaskNotFound indicates the caller owns no task with the requested ID.
	// API layer should map this to HTTP 404 Not Found.
	ErrTaskNotFound = errors.New("task not found")

	// ErrNoAttachment indicates the task exists but no attachment was requested for it.
	ErrNoAttachment = errors.New("task has no attachment")

	// ErrWorkflowDispatch indicates the status was persisted but the workflow
	// could not be started.
	ErrWorkflowDispatch = errors.New("failed to start status workflow")

	// ErrTimeout indicates a collaborator did not answer within its deadline.
	// API layer should map this to HTTP 503 Service Unavailable.
	ErrTimeout = errors.New("operation timed out")

	// ErrAttachmentsDisabled indicates an attachment was requested but no
	// issuer is configured.
	ErrAttachmentsDisabled = errors.New("attachments are not enabled")
)

// DispatchError reports a status change that was committed while its
// workflow failed to start. Task is the committed state.
type DispatchError struct {
	Task *domain.Task
	Err  error
}

// Error implements the error interface for DispatchError.
func (e *DispatchError) Error() string {
	return fmt.Sprintf("%v: task %s is now %s: %v",
		ErrWorkflowDispatch, e.Task.TaskID, e.Task.Status, e.Err)
}

// Unwrap exposes both ErrWorkflowDispatch and the starter's error.
func (e *DispatchError) Unwrap() []error {
	return []error{ErrWorkflowDispatch, e.Err}
}

// mapError converts a collaborator error into the service vocabulary.
// opCtx is the context the call ran under.
func mapError(opCtx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(opCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	if errors.Is(err, store.ErrNotFound) {
		return ErrTaskNotFound
	}
	return err
}

// withTimeout bounds one collaborator call. A zero timeout leaves ctx as is.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
