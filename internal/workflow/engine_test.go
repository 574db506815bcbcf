package workflow_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/taskr/internal/domain"
	"github.com/phrazzld/taskr/internal/platform/logger"
	"github.com/phrazzld/taskr/internal/platform/memory"
	"github.com/phrazzld/taskr/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() workflow.EngineConfig {
	cfg := workflow.DefaultEngineConfig()
	cfg.WorkerCount = 1
	cfg.QueueSize = 10
	return cfg
}

func input(taskID string) workflow.Input {
	return workflow.Input{TaskID: taskID, UserID: "user-1", Status: domain.TaskStatusCompleted}
}

func execFromHandle(t *testing.T, s *memory.ExecutionStore, handle string) *workflow.Execution {
	t.Helper()
	pending, err := s.Pending(context.Background())
	require.NoError(t, err)
	for _, e := range pending {
		if e.Handle() == handle {
			return e
		}
	}
	t.Fatalf("execution %s not found among pending executions", handle)
	return nil
}

func TestEngine_RunsHandler(t *testing.T) {
	store := memory.NewExecutionStore()
	log, _ := logger.NewTestLogger()

	var got atomic.Value
	started := make(chan struct{})
	release := make(chan struct{})
	handler := func(ctx context.Context, exec *workflow.Execution) error {
		got.Store(exec.Input)
		close(started)
		<-release
		return nil
	}

	engine := workflow.NewEngine(store, handler, testConfig(), log)
	handle, err := engine.StartExecution(context.Background(), input("task-1"))
	require.NoError(t, err)
	assert.Contains(t, handle, workflow.HandlePrefix)
	exec := execFromHandle(t, store, handle)

	require.NoError(t, engine.Start())
	defer engine.Stop()

	<-started
	close(release)
	assert.Eventually(t, func() bool {
		e, _ := store.Get(exec.ID)
		return e.State == workflow.ExecutionSucceeded
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, input("task-1"), got.Load())
}

func TestEngine_HandlerFailureAndPanic(t *testing.T) {
	tests := []struct {
		name    string
		handler workflow.Handler
		wantErr string
	}{
		{
			name:    "error",
			handler: func(ctx context.Context, exec *workflow.Execution) error { return errors.New("boom") },
			wantErr: "boom",
		},
		{
			name:    "panic",
			handler: func(ctx context.Context, exec *workflow.Execution) error { panic("kaboom") },
			wantErr: "handler panic: kaboom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewExecutionStore()
			log, _ := logger.NewTestLogger()
			engine := workflow.NewEngine(store, tt.handler, testConfig(), log)

			handle, err := engine.StartExecution(context.Background(), input("task-1"))
			require.NoError(t, err)
			exec := execFromHandle(t, store, handle)

			require.NoError(t, engine.Start())
			defer engine.Stop()

			assert.Eventually(t, func() bool {
				e, _ := store.Get(exec.ID)
				return e.State == workflow.ExecutionFailed && e.Error == tt.wantErr
			}, 2*time.Second, 10*time.Millisecond)
		})
	}
}

func TestEngine_QueueFull(t *testing.T) {
	store := memory.NewExecutionStore()
	log, _ := logger.NewTestLogger()
	ctx := context.Background()
	cfg := testConfig()
	cfg.QueueSize = 1

	var runs atomic.Int32
	handler := func(ctx context.Context, exec *workflow.Execution) error {
		runs.Add(1)
		return nil
	}
	engine := workflow.NewEngine(store, handler, cfg, log)

	handle, err := engine.StartExecution(ctx, input("a"))
	require.NoError(t, err)
	queued := execFromHandle(t, store, handle)

	_, err = engine.StartExecution(ctx, input("b"))
	assert.True(t, errors.Is(err, workflow.ErrQueueFull))

	pending, err := store.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1, "a rejected execution is not left pending")
	assert.Equal(t, queued.ID, pending[0].ID)

	require.NoError(t, engine.Start())
	defer engine.Stop()

	assert.Eventually(t, func() bool {
		e, _ := store.Get(queued.ID)
		return e.State == workflow.ExecutionSucceeded
	}, 2*time.Second, 10*time.Millisecond)

	engine.SweepStuck(ctx)
	pending, err = store.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending, "nothing is stranded after the queue drains")
	running, err := store.Running(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, running)
	assert.Equal(t, int32(1), runs.Load(), "the rejected execution never runs")
}

func TestEngine_RequeueOverflowFails(t *testing.T) {
	store := memory.NewExecutionStore()
	log, _ := logger.NewTestLogger()
	ctx := context.Background()
	old := time.Now().UTC().Add(-time.Hour)

	first := workflow.NewExecution(input("first"), old)
	second := workflow.NewExecution(input("second"), old.Add(time.Second))
	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Save(ctx, second))

	cfg := testConfig()
	cfg.QueueSize = 1
	engine := workflow.NewEngine(store, workflow.LogHandler(log), cfg, log)
	require.NoError(t, engine.Recover(ctx))

	overflow, ok := store.Get(second.ID)
	require.True(t, ok)
	assert.Equal(t, workflow.ExecutionFailed, overflow.State)
	assert.Equal(t, workflow.ErrQueueFull.Error(), overflow.Error)
}

func TestEngine_StartDoesNotRequeueQueued(t *testing.T) {
	store := memory.NewExecutionStore()
	log, _ := logger.NewTestLogger()
	ctx := context.Background()

	var runs atomic.Int32
	handler := func(ctx context.Context, exec *workflow.Execution) error {
		runs.Add(1)
		return nil
	}
	engine := workflow.NewEngine(store, handler, testConfig(), log)

	handle, err := engine.StartExecution(ctx, input("early"))
	require.NoError(t, err)
	exec := execFromHandle(t, store, handle)

	require.NoError(t, engine.Start())
	defer engine.Stop()

	assert.Eventually(t, func() bool {
		e, _ := store.Get(exec.ID)
		return e.State == workflow.ExecutionSucceeded
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load(), "an execution queued before Start runs once")
}

func TestEngine_RecoverAndSweep(t *testing.T) {
	store := memory.NewExecutionStore()
	log, _ := logger.NewTestLogger()
	ctx := context.Background()
	old := time.Now().UTC().Add(-time.Hour)

	pending := workflow.NewExecution(input("pending"), old)
	require.NoError(t, store.Save(ctx, pending))

	interrupted := workflow.NewExecution(input("interrupted"), old)
	interrupted.State = workflow.ExecutionRunning
	require.NoError(t, store.Save(ctx, interrupted))

	var runs atomic.Int32
	handler := func(ctx context.Context, exec *workflow.Execution) error {
		runs.Add(1)
		return nil
	}

	engine := workflow.NewEngine(store, handler, testConfig(), log)
	require.NoError(t, engine.Start())
	defer engine.Stop()

	for _, exec := range []*workflow.Execution{pending, interrupted} {
		id := exec.ID
		assert.Eventually(t, func() bool {
			e, _ := store.Get(id)
			return e.State == workflow.ExecutionSucceeded
		}, 2*time.Second, 10*time.Millisecond)
	}
	assert.Equal(t, int32(2), runs.Load())

	stuck := workflow.NewExecution(input("stuck"), old)
	stuck.State = workflow.ExecutionRunning
	require.NoError(t, store.Save(ctx, stuck))

	engine.SweepStuck(ctx)

	assert.Eventually(t, func() bool {
		e, _ := store.Get(stuck.ID)
		return e.State == workflow.ExecutionSucceeded
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEngine_StoppedRejects(t *testing.T) {
	store := memory.NewExecutionStore()
	log, _ := logger.NewTestLogger()
	engine := workflow.NewEngine(store, workflow.LogHandler(log), testConfig(), log)
	require.NoError(t, engine.Start())
	engine.Stop()
	engine.Stop()

	_, err := engine.StartExecution(context.Background(), input("late"))
	assert.True(t, errors.Is(err, workflow.ErrEngineStopped))
}

func TestEngine_InvalidSchedule(t *testing.T) {
	log, _ := logger.NewTestLogger()
	cfg := testConfig()
	cfg.StuckSweepSchedule = "not a schedule"
	engine := workflow.NewEngine(memory.NewExecutionStore(), workflow.LogHandler(log), cfg, log)

	err := engine.Start()
	assert.ErrorContains(t, err, "invalid stuck sweep schedule")
}

func TestStarterFunc(t *testing.T) {
	var s workflow.Starter = workflow.StarterFunc(func(ctx context.Context, in workflow.Input) (string, error) {
		return "handle-" + in.TaskID, nil
	})
	h, err := s.StartExecution(context.Background(), input("x"))
	require.NoError(t, err)
	assert.Equal(t, "handle-x", h)
}
