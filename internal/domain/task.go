package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the workflow state of a task. Any status may follow any
// other; only membership in the enum is checked.
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// TaskStatuses lists every valid status in declaration order.
func TaskStatuses() []TaskStatus {
	return []TaskStatus{TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted}
}

// Valid reports whether s is a member of the status enum.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	default:
		return false
	}
}

// Task is the sole persisted entity. OwnerID is the partition key and TaskID
// the sort key; together they identify a task.
//
// Description is a pointer so that "no description" is stored and returned as
// an explicit null rather than an empty string or a missing attribute.
type Task struct {
	OwnerID     string     `json:"userId"`
	TaskID      string     `json:"taskId"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	// Set only when an attachment was requested at creation.
	AttachmentKey       string `json:"attachmentKey,omitempty"`
	AttachmentUploadURL string `json:"attachmentUploadUrl,omitempty"`
}

// Now returns the current time in the precision tasks are stored with.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// NewTask creates a task owned by ownerID with a fresh random ID. createdAt and
// updatedAt are both set to now. An empty status defaults to pending.
func NewTask(ownerID, title string, description *string, status TaskStatus, now time.Time) (*Task, error) {
	if status == "" {
		status = TaskStatusPending
	}
	t := &Task{
		OwnerID:     ownerID,
		TaskID:      uuid.NewString(),
		Title:       title,
		Description: CloneString(description),
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.OwnerID == "" {
		return ErrEmptyOwnerID
	}
	if t.TaskID == "" {
		return ErrEmptyTaskID
	}
	if t.Title == "" {
		return ErrEmptyTitle
	}
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// ApplyUpdate overwrites title and description. A nil description erases the
// stored one; fields outside the update (status, attachment) are untouched.
func (t *Task) ApplyUpdate(title string, description *string, now time.Time) {
	t.Title = title
	t.Description = CloneString(description)
	t.touch(now)
}

// SetStatus rewrites the status and refreshes UpdatedAt.
func (t *Task) SetStatus(status TaskStatus, now time.Time) {
	t.Status = status
	t.touch(now)
}

// touch never moves UpdatedAt backwards, even if the clock does.
func (t *Task) touch(now time.Time) {
	if now.After(t.UpdatedAt) {
		t.UpdatedAt = now
	}
}

// Clone returns a deep copy of t.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Description = CloneString(t.Description)
	return &c
}

// NormalizeDescription treats an empty description as no description.
func NormalizeDescription(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	return p
}

// CloneString copies the string behind p so callers cannot alias stored state.
func CloneString(p *string) *string {
	if p == nil {
		return nil
	}
	s := *p
	return &s
}
