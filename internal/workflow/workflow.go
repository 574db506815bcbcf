package workflow

import (
	"context"
	"errors"

	"github.com/phrazzld/taskr/internal/domain"
)

// Common errors returned by workflow starters.
var (
	// ErrQueueFull is returned when the local engine cannot accept more work.
	ErrQueueFull = errors.New("workflow queue is full")

	// ErrEngineStopped is returned when an execution is started after Stop.
	ErrEngineStopped = errors.New("workflow engine is stopped")
)

// Input is the document handed to every workflow execution.
type Input struct {
	TaskID string            `json:"taskId"`
	UserID string            `json:"userId"`
	Status domain.TaskStatus `json:"status"`
}

// Starter begins a workflow execution and returns its handle (for Step
// Functions, the execution ARN). It does not wait for the workflow to finish.
type Starter interface {
	StartExecution(ctx context.Context, in Input) (string, error)
}

// StarterFunc adapts a function to the Starter interface.
type StarterFunc func(ctx context.Context, in Input) (string, error)

// StartExecution calls f.
func (f StarterFunc) StartExecution(ctx context.Context, in Input) (string, error) {
	return f(ctx, in)
}
