package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskr/internal/store"
	"github.com/phrazzld/taskr/internal/workflow"
)

// ExecutionStore keeps workflow execution records in memory.
type ExecutionStore struct {
	mu    sync.Mutex
	execs map[uuid.UUID]*workflow.Execution
	now   func() time.Time
}

// NewExecutionStore creates an empty ExecutionStore.
func NewExecutionStore() *ExecutionStore {
	return &ExecutionStore{
		execs: make(map[uuid.UUID]*workflow.Execution),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

var _ workflow.ExecutionStore = (*ExecutionStore)(nil)

// Save implements workflow.ExecutionStore.
func (s *ExecutionStore) Save(_ context.Context, exec *workflow.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.execs[exec.ID]; exists {
		return store.NewStoreError("save execution", "id already present", store.ErrDuplicate)
	}
	c := *exec
	s.execs[exec.ID] = &c
	return nil
}

// UpdateState implements workflow.ExecutionStore.
func (s *ExecutionStore) UpdateState(
	_ context.Context,
	id uuid.UUID,
	state workflow.ExecutionState,
	errMsg string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exec, ok := s.execs[id]
	if !ok {
		return store.ErrNotFound
	}
	exec.State = state
	exec.Error = errMsg
	exec.UpdatedAt = s.now()
	return nil
}

// Pending implements workflow.ExecutionStore.
func (s *ExecutionStore) Pending(_ context.Context) ([]*workflow.Execution, error) {
	return s.byState(workflow.ExecutionPending, 0), nil
}

// Running implements workflow.ExecutionStore.
func (s *ExecutionStore) Running(_ context.Context, olderThan time.Duration) ([]*workflow.Execution, error) {
	return s.byState(workflow.ExecutionRunning, olderThan), nil
}

// Get returns a copy of one execution, for tests and diagnostics.
func (s *ExecutionStore) Get(id uuid.UUID) (*workflow.Execution, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exec, ok := s.execs[id]
	if !ok {
		return nil, false
	}
	c := *exec
	return &c, true
}

func (s *ExecutionStore) byState(state workflow.ExecutionState, olderThan time.Duration) []*workflow.Execution {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-olderThan)
	var out []*workflow.Execution
	for _, exec := range s.execs {
		if exec.State != state {
			continue
		}
		if olderThan > 0 {
			if !exec.UpdatedAt.Before(cutoff) {
				continue
			}
			// Claim it so the next sweep does not return it again.
			exec.UpdatedAt = s.now()
		}
		c := *exec
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
