package mocks

import (
	"context"

	"github.com/phrazzld/taskr/internal/domain"
	"github.com/phrazzld/taskr/internal/store"
)

// MockTaskStore implements store.TaskStore for testing
type MockTaskStore struct {
	CreateFn       func(ctx context.Context, task *domain.Task) error
	GetFn          func(ctx context.Context, ownerID, taskID string) (*domain.Task, error)
	ListFn         func(ctx context.Context, ownerID string, opts store.ListOptions) (*store.Page, error)
	UpdateFn       func(ctx context.Context, ownerID, taskID string, upd store.TaskUpdate) (*domain.Task, error)
	UpdateStatusFn func(ctx context.Context, ownerID, taskID string, status domain.TaskStatus) (*domain.Task, error)
	DeleteFn       func(ctx context.Context, ownerID, taskID string) error

	// Default return values
	Task         *domain.Task
	Page         *store.Page
	DefaultError error
}

var _ store.TaskStore = (*MockTaskStore)(nil)

// Create implements store.TaskStore
func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}
	return m.DefaultError
}

// Get implements store.TaskStore
func (m *MockTaskStore) Get(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, ownerID, taskID)
	}
	return m.Task, m.DefaultError
}

// List implements store.TaskStore
func (m *MockTaskStore) List(ctx context.Context, ownerID string, opts store.ListOptions) (*store.Page, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, ownerID, opts)
	}
	return m.Page, m.DefaultError
}

// Update implements store.TaskStore
func (m *MockTaskStore) Update(ctx context.Context, ownerID, taskID string, upd store.TaskUpdate) (*domain.Task, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, ownerID, taskID, upd)
	}
	return m.Task, m.DefaultError
}

// UpdateStatus implements store.TaskStore
func (m *MockTaskStore) UpdateStatus(
	ctx context.Context,
	ownerID, taskID string,
	status domain.TaskStatus,
) (*domain.Task, error) {
	if m.UpdateStatusFn != nil {
		return m.UpdateStatusFn(ctx, ownerID, taskID, status)
	}
	return m.Task, m.DefaultError
}

// Delete implements store.TaskStore
func (m *MockTaskStore) Delete(ctx context.Context, ownerID, taskID string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, ownerID, taskID)
	}
	return m.DefaultError
}
