package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ExecutionState is the lifecycle state of a local execution.
type ExecutionState string

// Possible execution states
const (
	ExecutionPending   ExecutionState = "pending"
	ExecutionRunning   ExecutionState = "running"
	ExecutionSucceeded ExecutionState = "succeeded"
	ExecutionFailed    ExecutionState = "failed"
)

// HandlePrefix prefixes the handles issued by the local engine.
const HandlePrefix = "local:execution:"

// Execution is the persisted record of one local workflow run.
type Execution struct {
	ID        uuid.UUID
	Input     Input
	State     ExecutionState
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewExecution creates a pending execution for in.
func NewExecution(in Input, now time.Time) *Execution {
	return &Execution{
		ID:        uuid.New(),
		Input:     in,
		State:     ExecutionPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Handle is the identifier returned to callers of StartExecution.
func (e *Execution) Handle() string {
	return HandlePrefix + e.ID.String()
}

// ExecutionStore persists execution records so that work survives a restart.
type ExecutionStore interface {
	// Save inserts a new execution record.
	Save(ctx context.Context, exec *Execution) error

	// UpdateState sets the state and error message of an execution.
	UpdateState(ctx context.Context, id uuid.UUID, state ExecutionState, errMsg string) error

	// Pending returns all executions waiting to run, oldest first.
	Pending(ctx context.Context) ([]*Execution, error)

	// Running returns executions in the running state. If olderThan is
	// non-zero, only those not updated for at least that long are returned.
	Running(ctx context.Context, olderThan time.Duration) ([]*Execution, error)
}
