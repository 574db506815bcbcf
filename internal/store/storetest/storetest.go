// Package storetest holds behaviour tests shared by every store.TaskStore
// implementation. Backends call RunTaskStoreTests from their own test files.
package storetest

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/phrazzld/taskr/internal/domain"
	"github.com/phrazzld/taskr/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) store.TaskStore

func strPtr(s string) *string { return &s }

// NewTask builds a valid task for ownerID, failing the test on error.
func NewTask(t *testing.T, ownerID, title string, description *string) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(ownerID, title, description, "", domain.Now())
	require.NoError(t, err)
	return task
}

// RunTaskStoreTests exercises the TaskStore contract against newStore.
func RunTaskStoreTests(t *testing.T, newStore Factory) {
	t.Run("RoundTrip", func(t *testing.T) { testRoundTrip(t, newStore(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore(t)) })
	t.Run("CreateNeverOverwrites", func(t *testing.T) { testCreateDuplicate(t, newStore(t)) })
	t.Run("OwnershipIsolation", func(t *testing.T) { testOwnershipIsolation(t, newStore(t)) })
	t.Run("DestructiveUpdate", func(t *testing.T) { testDestructiveUpdate(t, newStore(t)) })
	t.Run("StatusIsolation", func(t *testing.T) { testStatusIsolation(t, newStore(t)) })
	t.Run("UpdateMissing", func(t *testing.T) { testUpdateMissing(t, newStore(t)) })
	t.Run("DeleteIdempotent", func(t *testing.T) { testDeleteIdempotent(t, newStore(t)) })
	t.Run("Pagination", func(t *testing.T) { testPagination(t, newStore(t)) })
	t.Run("ListEmpty", func(t *testing.T) { testListEmpty(t, newStore(t)) })
}

func testRoundTrip(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	task := NewTask(t, "owner-a", "A", nil)
	require.NoError(t, s.Create(ctx, task))

	got, err := s.Get(ctx, "owner-a", task.TaskID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "A", got.Title)
	assert.Nil(t, got.Description)
	assert.Equal(t, domain.TaskStatusPending, got.Status)
	assert.True(t, got.CreatedAt.Equal(got.UpdatedAt))
	assert.True(t, got.CreatedAt.Equal(task.CreatedAt))
}

func testGetMissing(t *testing.T, s store.TaskStore) {
	got, err := s.Get(context.Background(), "owner-a", "does-not-exist")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func testCreateDuplicate(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	task := NewTask(t, "owner-a", "first", nil)
	require.NoError(t, s.Create(ctx, task))

	dup := task.Clone()
	dup.Title = "second"
	err := s.Create(ctx, dup)
	assert.True(t, errors.Is(err, store.ErrStoreFault), "got %v", err)
	assert.True(t, errors.Is(err, store.ErrDuplicate), "got %v", err)

	got, err := s.Get(ctx, "owner-a", task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Title)
}

func testOwnershipIsolation(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	task := NewTask(t, "owner-a", "mine", nil)
	require.NoError(t, s.Create(ctx, task))

	got, err := s.Get(ctx, "owner-b", task.TaskID)
	require.NoError(t, err)
	assert.Nil(t, got)

	page, err := s.List(ctx, "owner-b", store.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	_, err = s.Update(ctx, "owner-b", task.TaskID, store.TaskUpdate{Title: "stolen"})
	assert.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)

	_, err = s.UpdateStatus(ctx, "owner-b", task.TaskID, domain.TaskStatusCompleted)
	assert.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)

	require.NoError(t, s.Delete(ctx, "owner-b", task.TaskID))

	got, err = s.Get(ctx, "owner-a", task.TaskID)
	require.NoError(t, err)
	require.NotNil(t, got, "another owner's delete must not remove the task")
	assert.Equal(t, "mine", got.Title)
	assert.Equal(t, domain.TaskStatusPending, got.Status)
}

func testDestructiveUpdate(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	task := NewTask(t, "owner-a", "X", strPtr("Y"))
	require.NoError(t, s.Create(ctx, task))

	time.Sleep(2 * time.Millisecond)
	updated, err := s.Update(ctx, "owner-a", task.TaskID, store.TaskUpdate{Title: "Z"})
	require.NoError(t, err)
	assert.Equal(t, "Z", updated.Title)
	assert.Nil(t, updated.Description)
	assert.Equal(t, domain.TaskStatusPending, updated.Status)
	assert.True(t, updated.UpdatedAt.After(task.UpdatedAt))

	got, err := s.Get(ctx, "owner-a", task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, "Z", got.Title)
	assert.Nil(t, got.Description)
	assert.True(t, got.CreatedAt.Equal(task.CreatedAt))
}

func testStatusIsolation(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	task := NewTask(t, "owner-a", "X", strPtr("Y"))
	require.NoError(t, s.Create(ctx, task))

	updated, err := s.UpdateStatus(ctx, "owner-a", task.TaskID, domain.TaskStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, updated.Status)

	got, err := s.Get(ctx, "owner-a", task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
	assert.Equal(t, "X", got.Title)
	require.NotNil(t, got.Description)
	assert.Equal(t, "Y", *got.Description)
	assert.False(t, got.UpdatedAt.Before(task.UpdatedAt))
}

func testUpdateMissing(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	_, err := s.Update(ctx, "owner-a", "missing", store.TaskUpdate{Title: "Z"})
	assert.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)

	_, err = s.UpdateStatus(ctx, "owner-a", "missing", domain.TaskStatusCompleted)
	assert.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)

	got, err := s.Get(ctx, "owner-a", "missing")
	require.NoError(t, err)
	assert.Nil(t, got, "a failed update must not create the task")
}

func testDeleteIdempotent(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	task := NewTask(t, "owner-a", "X", nil)
	require.NoError(t, s.Create(ctx, task))

	require.NoError(t, s.Delete(ctx, "owner-a", task.TaskID))
	require.NoError(t, s.Delete(ctx, "owner-a", task.TaskID))

	got, err := s.Get(ctx, "owner-a", task.TaskID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testPagination(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	var ids []string
	for _, title := range []string{"one", "two", "three"} {
		task := NewTask(t, "owner-a", title, nil)
		require.NoError(t, s.Create(ctx, task))
		ids = append(ids, task.TaskID)
	}
	// A task in another partition must never show up.
	require.NoError(t, s.Create(ctx, NewTask(t, "owner-b", "other", nil)))
	sort.Strings(ids)

	var seen []string
	var cursor *store.Key
	for i := 0; i < len(ids); i++ {
		page, err := s.List(ctx, "owner-a", store.ListOptions{Limit: 1, Cursor: cursor})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		seen = append(seen, page.Items[0].TaskID)

		if i < len(ids)-1 {
			require.NotNil(t, page.Next, "page %d should have a next cursor", i)
			assert.Equal(t, "owner-a", page.Next.UserID)
			cursor = page.Next
		} else {
			assert.Nil(t, page.Next, "the last page must not have a cursor")
		}
	}
	assert.Equal(t, ids, seen)

	all, err := s.List(ctx, "owner-a", store.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 3)
	assert.Nil(t, all.Next)
}

func testListEmpty(t *testing.T, s store.TaskStore) {
	page, err := s.List(context.Background(), "nobody", store.ListOptions{Limit: 5})
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Nil(t, page.Next)
}
