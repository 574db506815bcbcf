package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/taskr/internal/api/shared"
	"github.com/phrazzld/taskr/internal/domain"
	"github.com/phrazzld/taskr/internal/platform/logger"
	"github.com/phrazzld/taskr/internal/service"
	"github.com/phrazzld/taskr/internal/validation"
)

// TaskService is the task CRUD surface used by TaskHandler.
type TaskService interface {
	Create(ctx context.Context, ownerID string, in *validation.CreateTaskInput) (*domain.Task, error)
	Get(ctx context.Context, ownerID, taskID string) (*domain.Task, error)
	List(ctx context.Context, ownerID, rawLimit, cursor string) (*service.ListResult, error)
	Update(ctx context.Context, ownerID, taskID string, in *validation.UpdateTaskInput) (*domain.Task, error)
	Delete(ctx context.Context, ownerID, taskID string) error
	DownloadURL(ctx context.Context, ownerID, taskID string) (string, error)
}

// StatusService changes task status and starts the status workflow.
type StatusService interface {
	Transition(ctx context.Context, ownerID, taskID string, status domain.TaskStatus) (*service.StatusResult, error)
}

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	tasks  TaskService
	status StatusService
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(tasks TaskService, status StatusService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		tasks:  tasks,
		status: status,
		logger: logger.With(slog.String("component", "task_handler")),
	}
}

// CreateTask handles POST /tasks
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	ownerID, ok := requireOwner(w, r, log)
	if !ok {
		return
	}

	body, err := shared.ReadBody(r)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to read request")
		return
	}
	in, err := validation.ParseCreateTask(body)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.tasks.Create(r.Context(), ownerID, in)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}

	log.Info("task created", slog.String("task_id", task.TaskID))
	shared.RespondWithJSON(w, r, http.StatusCreated, task)
}

// ListTasks handles GET /tasks?limit=&lastKey=
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	ownerID, ok := requireOwner(w, r, log)
	if !ok {
		return
	}

	q := r.URL.Query()
	res, err := h.tasks.List(r.Context(), ownerID, q.Get("limit"), q.Get("lastKey"))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, res)
}

// GetTask handles GET /tasks/{id}
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	ownerID, taskID, ok := ownerAndTaskID(w, r, log)
	if !ok {
		return
	}

	task, err := h.tasks.Get(r.Context(), ownerID, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to fetch task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// UpdateTask handles PUT /tasks/{id}. Title and description are both
// replaced; an omitted description is erased.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	ownerID, taskID, ok := ownerAndTaskID(w, r, log)
	if !ok {
		return
	}

	body, err := shared.ReadBody(r)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to read request")
		return
	}
	in, err := validation.ParseUpdateTask(body)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.tasks.Update(r.Context(), ownerID, taskID, in)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// UpdateTaskStatus handles PATCH /tasks/{id}/status
func (h *TaskHandler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	ownerID, taskID, ok := ownerAndTaskID(w, r, log)
	if !ok {
		return
	}

	body, err := shared.ReadBody(r)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to read request")
		return
	}
	in, err := validation.ParseStatusUpdate(body)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	res, err := h.status.Transition(r.Context(), ownerID, taskID, in.Status)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update status")
		return
	}

	log.Info("task status changed",
		slog.String("task_id", taskID),
		slog.String("status", string(res.Task.Status)))
	shared.RespondWithJSON(w, r, http.StatusOK, StatusResponse{
		Task:                 res.Task,
		WorkflowExecutionArn: res.WorkflowExecutionArn,
	})
}

// DeleteTask handles DELETE /tasks/{id}
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	ownerID, taskID, ok := ownerAndTaskID(w, r, log)
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), ownerID, taskID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, MessageResponse{Message: "Task deleted"})
}

// GetAttachmentURL handles GET /tasks/{id}/attachment
func (h *TaskHandler) GetAttachmentURL(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	ownerID, taskID, ok := ownerAndTaskID(w, r, log)
	if !ok {
		return
	}

	url, err := h.tasks.DownloadURL(r.Context(), ownerID, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create download URL")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, DownloadResponse{DownloadURL: url})
}
