package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/taskr/internal/attachment"
	"github.com/phrazzld/taskr/internal/domain"
	"github.com/phrazzld/taskr/internal/platform/logger"
	"github.com/phrazzld/taskr/internal/redact"
	"github.com/phrazzld/taskr/internal/store"
	"github.com/phrazzld/taskr/internal/validation"
)

// TaskServiceConfig tunes a TaskService.
type TaskServiceConfig struct {
	// StoreTimeout bounds each store and issuer call.
	StoreTimeout time.Duration
	// MaxPageSize caps the list limit; zero means store.MaxPageSize.
	MaxPageSize int
}

// ListResult is one page of tasks. NextToken is nil on the last page.
type ListResult struct {
	Items     []*domain.Task `json:"items"`
	NextToken *string        `json:"nextToken"`
}

// TaskService implements task CRUD for one owner at a time.
type TaskService struct {
	store  store.TaskStore
	issuer attachment.Issuer
	cfg    TaskServiceConfig
	now    func() time.Time
	logger *slog.Logger
}

// NewTaskService creates a TaskService. issuer may be nil, in which case
// attachment requests fail with ErrAttachmentsDisabled.
func NewTaskService(
	taskStore store.TaskStore,
	issuer attachment.Issuer,
	cfg TaskServiceConfig,
	logger *slog.Logger,
) (*TaskService, error) {
	if taskStore == nil {
		return nil, domain.NewFieldError("taskStore", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = store.MaxPageSize
	}
	return &TaskService{
		store:  taskStore,
		issuer: issuer,
		cfg:    cfg,
		now:    domain.Now,
		logger: logger.With(slog.String("component", "task_service")),
	}, nil
}

// Create stores a new task for ownerID. With in.Attachment set, an upload
// URL is issued first and returned on the task.
func (s *TaskService) Create(
	ctx context.Context,
	ownerID string,
	in *validation.CreateTaskInput,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}

	task, err := domain.NewTask(ownerID, in.Title, domain.NormalizeDescription(in.Description), in.Status, s.now())
	if err != nil {
		return nil, fmt.Errorf("invalid task: %w", err)
	}

	if in.Attachment {
		if s.issuer == nil {
			return nil, ErrAttachmentsDisabled
		}
		opCtx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
		upload, err := s.issuer.IssueUploadURL(opCtx, ownerID, task.TaskID)
		if err != nil {
			err = mapError(opCtx, err)
			cancel()
			log.Error("failed to issue attachment upload url",
				slog.String("task_id", task.TaskID),
				slog.String("error", redact.Error(err)))
			return nil, err
		}
		cancel()
		task.AttachmentKey = upload.Key
		task.AttachmentUploadURL = upload.URL
	}

	opCtx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	if err := s.store.Create(opCtx, task); err != nil {
		return nil, mapError(opCtx, err)
	}

	log.Debug("task created",
		slog.String("task_id", task.TaskID),
		slog.Bool("attachment", task.AttachmentKey != ""))
	return task, nil
}

// Get returns one of ownerID's tasks.
func (s *TaskService) Get(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	opCtx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	task, err := s.store.Get(opCtx, ownerID, taskID)
	if err != nil {
		return nil, mapError(opCtx, err)
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// List returns a page of ownerID's tasks. rawLimit and cursor are the
// unparsed query values; a bad limit falls back to the default page size,
// a bad cursor is store.ErrBadCursor.
func (s *TaskService) List(ctx context.Context, ownerID, rawLimit, cursor string) (*ListResult, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}

	opts := store.ListOptions{Limit: store.ParseLimit(rawLimit, s.cfg.MaxPageSize)}
	if cursor != "" {
		key, err := store.DecodeCursor(cursor, ownerID)
		if err != nil {
			return nil, err
		}
		opts.Cursor = key
	}

	opCtx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	page, err := s.store.List(opCtx, ownerID, opts)
	if err != nil {
		return nil, mapError(opCtx, err)
	}

	res := &ListResult{Items: page.Items}
	if res.Items == nil {
		res.Items = []*domain.Task{}
	}
	if page.Next != nil {
		token := store.EncodeCursor(*page.Next)
		res.NextToken = &token
	}
	return res, nil
}

// Update overwrites title and description of one of ownerID's tasks.
func (s *TaskService) Update(
	ctx context.Context,
	ownerID, taskID string,
	in *validation.UpdateTaskInput,
) (*domain.Task, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	opCtx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	task, err := s.store.Update(opCtx, ownerID, taskID, store.TaskUpdate{
		Title:       in.Title,
		Description: domain.NormalizeDescription(in.Description),
	})
	if err != nil {
		return nil, mapError(opCtx, err)
	}
	return task, nil
}

// Delete removes one of ownerID's tasks. Deleting a missing task succeeds.
func (s *TaskService) Delete(ctx context.Context, ownerID, taskID string) error {
	if ownerID == "" {
		return domain.ErrUnauthorized
	}
	opCtx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	return mapError(opCtx, s.store.Delete(opCtx, ownerID, taskID))
}

// DownloadURL presigns a download of the task's attachment.
func (s *TaskService) DownloadURL(ctx context.Context, ownerID, taskID string) (string, error) {
	task, err := s.Get(ctx, ownerID, taskID)
	if err != nil {
		return "", err
	}
	if task.AttachmentKey == "" {
		return "", ErrNoAttachment
	}
	if s.issuer == nil {
		return "", ErrAttachmentsDisabled
	}

	opCtx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	url, err := s.issuer.DownloadURL(opCtx, task.AttachmentKey)
	if err != nil {
		return "", mapError(opCtx, err)
	}
	return url, nil
}
