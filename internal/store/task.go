package store

import (
	"context"
	"strconv"

	"github.com/phrazzld/taskr/internal/domain"
)

// Page size bounds applied to list requests.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Key is the primary key of a task: the owner partition plus the task sort key.
// It doubles as the pagination cursor.
type Key struct {
	UserID string `json:"userId"`
	TaskID string `json:"taskId"`
}

// ListOptions controls a single page of a List call.
type ListOptions struct {
	// Limit is the maximum number of items; values <1 mean DefaultPageSize.
	Limit int
	// Cursor is the key of the last item of the previous page, or nil for the first page.
	Cursor *Key
}

// Page is one page of list results. Next is nil when there are no more items.
type Page struct {
	Items []*domain.Task
	Next  *Key
}

// TaskUpdate is the full replacement of a task's editable content.
// A nil Description erases any stored description.
type TaskUpdate struct {
	Title       string
	Description *string
}

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// Create inserts a new task. It never overwrites: a key collision returns
	// a StoreError wrapping ErrDuplicate.
	Create(ctx context.Context, task *domain.Task) error

	// Get returns the task, or (nil, nil) if the owner has no task with this ID.
	Get(ctx context.Context, ownerID, taskID string) (*domain.Task, error)

	// List returns the owner's tasks in ascending taskId order.
	List(ctx context.Context, ownerID string, opts ListOptions) (*Page, error)

	// Update overwrites title and description and refreshes updatedAt.
	// Returns ErrNotFound if the task does not exist for this owner.
	Update(ctx context.Context, ownerID, taskID string, upd TaskUpdate) (*domain.Task, error)

	// UpdateStatus overwrites status and refreshes updatedAt, leaving all
	// other fields untouched. Returns ErrNotFound like Update.
	UpdateStatus(ctx context.Context, ownerID, taskID string, status domain.TaskStatus) (*domain.Task, error)

	// Delete removes the task. Deleting a missing task is not an error.
	Delete(ctx context.Context, ownerID, taskID string) error
}

// ParseLimit converts a raw limit query value into a page size. Missing,
// non-numeric and non-positive values give DefaultPageSize; anything above
// max is clamped to max.
func ParseLimit(raw string, max int) int {
	if max <= 0 {
		max = MaxPageSize
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		n = DefaultPageSize
	}
	if n > max {
		n = max
	}
	return n
}

// EffectiveLimit applies the same defaults to an already-parsed limit.
func (o ListOptions) EffectiveLimit() int {
	if o.Limit < 1 {
		return DefaultPageSize
	}
	if o.Limit > MaxPageSize {
		return MaxPageSize
	}
	return o.Limit
}
