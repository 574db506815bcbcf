package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/taskr/internal/domain"
	"github.com/phrazzld/taskr/internal/store"
)

// TaskStore is a mutex-guarded map implementation of store.TaskStore.
// Tasks are kept per owner, so listing never scans other partitions.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]map[string]*domain.Task
	now   func() time.Time
}

// Option configures a TaskStore.
type Option func(*TaskStore)

// WithClock replaces the clock used to stamp updatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *TaskStore) {
		s.now = now
	}
}

// NewTaskStore creates an empty store.
func NewTaskStore(opts ...Option) *TaskStore {
	s := &TaskStore{
		tasks: make(map[string]map[string]*domain.Task),
		now:   domain.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ store.TaskStore = (*TaskStore)(nil)

// Create implements store.TaskStore.
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	if err := ctx.Err(); err != nil {
		return store.NewStoreError("create", "context done", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	partition, ok := s.tasks[task.OwnerID]
	if !ok {
		partition = make(map[string]*domain.Task)
		s.tasks[task.OwnerID] = partition
	}
	if _, exists := partition[task.TaskID]; exists {
		return store.NewStoreError("create", "key already present", store.ErrDuplicate)
	}
	partition[task.TaskID] = task.Clone()
	return nil
}

// Get implements store.TaskStore.
func (s *TaskStore) Get(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.NewStoreError("get", "context done", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tasks[ownerID][taskID].Clone(), nil
}

// List implements store.TaskStore.
func (s *TaskStore) List(ctx context.Context, ownerID string, opts store.ListOptions) (*store.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.NewStoreError("list", "context done", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	partition := s.tasks[ownerID]
	ids := make([]string, 0, len(partition))
	for id := range partition {
		if opts.Cursor != nil && id <= opts.Cursor.TaskID {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	limit := opts.EffectiveLimit()
	page := &store.Page{Items: make([]*domain.Task, 0, min(limit, len(ids)))}
	for _, id := range ids {
		if len(page.Items) == limit {
			last := page.Items[len(page.Items)-1]
			page.Next = &store.Key{UserID: ownerID, TaskID: last.TaskID}
			break
		}
		page.Items = append(page.Items, partition[id].Clone())
	}
	return page, nil
}

// Update implements store.TaskStore.
func (s *TaskStore) Update(
	ctx context.Context,
	ownerID, taskID string,
	upd store.TaskUpdate,
) (*domain.Task, error) {
	return s.mutate(ctx, "update", ownerID, taskID, func(t *domain.Task, now time.Time) {
		t.ApplyUpdate(upd.Title, upd.Description, now)
	})
}

// UpdateStatus implements store.TaskStore.
func (s *TaskStore) UpdateStatus(
	ctx context.Context,
	ownerID, taskID string,
	status domain.TaskStatus,
) (*domain.Task, error) {
	return s.mutate(ctx, "update status", ownerID, taskID, func(t *domain.Task, now time.Time) {
		t.SetStatus(status, now)
	})
}

func (s *TaskStore) mutate(
	ctx context.Context,
	op, ownerID, taskID string,
	apply func(*domain.Task, time.Time),
) (*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.NewStoreError(op, "context done", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[ownerID][taskID]
	if !ok {
		return nil, store.ErrNotFound
	}
	apply(task, s.now())
	return task.Clone(), nil
}

// Delete implements store.TaskStore.
func (s *TaskStore) Delete(ctx context.Context, ownerID, taskID string) error {
	if err := ctx.Err(); err != nil {
		return store.NewStoreError("delete", "context done", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tasks[ownerID], taskID)
	return nil
}
