package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/phrazzld/taskr/internal/domain"
	"github.com/phrazzld/taskr/internal/platform/logger"
	"github.com/phrazzld/taskr/internal/redact"
	"github.com/phrazzld/taskr/internal/store"
	"github.com/phrazzld/taskr/internal/validation"
	"github.com/phrazzld/taskr/internal/workflow"
)

// StatusResult is a committed status change and the handle of the
// workflow execution it started.
type StatusResult struct {
	Task                 *domain.Task
	WorkflowExecutionArn string
}

// StatusService persists status changes and starts their workflow.
type StatusService struct {
	store           store.TaskStore
	starter         workflow.Starter
	storeTimeout    time.Duration
	workflowTimeout time.Duration
	logger          *slog.Logger
}

// NewStatusService creates a StatusService.
func NewStatusService(
	taskStore store.TaskStore,
	starter workflow.Starter,
	storeTimeout, workflowTimeout time.Duration,
	logger *slog.Logger,
) (*StatusService, error) {
	if taskStore == nil {
		return nil, domain.NewFieldError("taskStore", "cannot be nil", domain.ErrValidation)
	}
	if starter == nil {
		return nil, domain.NewFieldError("starter", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusService{
		store:           taskStore,
		starter:         starter,
		storeTimeout:    storeTimeout,
		workflowTimeout: workflowTimeout,
		logger:          logger.With(slog.String("component", "status_service")),
	}, nil
}

// Transition sets the status of one of ownerID's tasks, then starts the
// status workflow. If the update fails nothing is dispatched. If the
// dispatch fails the new status stays committed and a *DispatchError is
// returned.
func (s *StatusService) Transition(
	ctx context.Context,
	ownerID, taskID string,
	status domain.TaskStatus,
) (*StatusResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	if err := validation.ValidateStatus(status); err != nil {
		return nil, err
	}

	storeCtx, cancelStore := withTimeout(ctx, s.storeTimeout)
	task, err := s.store.UpdateStatus(storeCtx, ownerID, taskID, status)
	err = mapError(storeCtx, err)
	cancelStore()
	if err != nil {
		return nil, err
	}

	wfCtx, cancelWF := withTimeout(ctx, s.workflowTimeout)
	defer cancelWF()
	handle, err := s.starter.StartExecution(wfCtx, workflow.Input{
		TaskID: task.TaskID,
		UserID: task.OwnerID,
		Status: task.Status,
	})
	if err != nil {
		// No compensation: the status change is durable and the gap is only logged.
		log.Error("status committed but workflow dispatch failed",
			slog.String("task_id", task.TaskID),
			slog.String("status", string(task.Status)),
			slog.String("error", redact.Error(err)))
		return nil, &DispatchError{Task: task, Err: mapError(wfCtx, err)}
	}

	log.Debug("status workflow started",
		slog.String("task_id", task.TaskID),
		slog.String("status", string(task.Status)),
		slog.String("execution", handle))
	return &StatusResult{Task: task, WorkflowExecutionArn: handle}, nil
}
