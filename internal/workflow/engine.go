package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskr/internal/config"
	"github.com/robfig/cron/v3"
)

// Handler runs the body of a local workflow execution.
type Handler func(ctx context.Context, exec *Execution) error

// EngineConfig holds configuration for the local engine.
type EngineConfig struct {
	// WorkerCount determines how many executions run concurrently.
	WorkerCount int

	// QueueSize is the buffer size of the in-memory queue.
	QueueSize int

	// StuckAge is how long an execution may stay running before the sweep
	// resets it to pending and requeues it.
	StuckAge time.Duration

	// StuckSweepSchedule is a cron spec ("@every 5m", "0 */5 * * * *").
	StuckSweepSchedule string
}

// DefaultEngineConfig returns an EngineConfig with reasonable defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		WorkerCount:        2,
		QueueSize:          100,
		StuckAge:           30 * time.Minute,
		StuckSweepSchedule: "@every 5m",
	}
}

// EngineConfigFrom copies the local engine settings out of the application config.
func EngineConfigFrom(cfg config.WorkflowConfig) EngineConfig {
	return EngineConfig{
		WorkerCount:        cfg.WorkerCount,
		QueueSize:          cfg.QueueSize,
		StuckAge:           cfg.StuckAge,
		StuckSweepSchedule: cfg.StuckSweepSchedule,
	}
}

// Engine is an in-process Starter. Every execution is persisted before it is
// queued, so executions interrupted by a restart are picked up by Recover.
type Engine struct {
	store   ExecutionStore
	handler Handler
	config  EngineConfig
	logger  *slog.Logger
	now     func() time.Time

	queue  chan *Execution
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	cron   *cron.Cron

	mu      sync.RWMutex
	stopped bool

	// queued holds the IDs currently in the queue so Recover does not add them twice.
	queuedMu sync.Mutex
	queued   map[uuid.UUID]struct{}
}

// NewEngine creates an Engine. Start must be called before executions run.
func NewEngine(store ExecutionStore, handler Handler, config EngineConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultEngineConfig().QueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		store:   store,
		handler: handler,
		config:  config,
		logger:  logger.With(slog.String("component", "workflow_engine")),
		now:     func() time.Time { return time.Now().UTC() },
		queue:   make(chan *Execution, config.QueueSize),
		queued:  make(map[uuid.UUID]struct{}),
		ctx:     ctx,
		cancel:  cancel,
		cron:    cron.New(cron.WithSeconds()),
	}
}

var _ Starter = (*Engine)(nil)

// StartExecution implements Starter. The execution is saved as pending and
// queued; if the queue is full the record is marked failed and ErrQueueFull
// is returned so the caller sees the dispatch as failed.
func (e *Engine) StartExecution(ctx context.Context, in Input) (string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.stopped {
		return "", ErrEngineStopped
	}

	exec := NewExecution(in, e.now())
	if err := e.store.Save(ctx, exec); err != nil {
		return "", fmt.Errorf("failed to save execution: %w", err)
	}

	if !e.enqueue(exec) {
		log := e.logger.With(slog.String("execution_id", exec.ID.String()))
		e.finish(exec.ID, ExecutionFailed, ErrQueueFull.Error(), log)
		return "", fmt.Errorf("%w: capacity %d reached", ErrQueueFull, cap(e.queue))
	}

	e.logger.DebugContext(ctx, "execution queued",
		slog.String("execution_id", exec.ID.String()),
		slog.String("task_id", in.TaskID))
	return exec.Handle(), nil
}

func (e *Engine) enqueue(exec *Execution) bool {
	e.queuedMu.Lock()
	defer e.queuedMu.Unlock()
	if _, ok := e.queued[exec.ID]; ok {
		return true
	}
	select {
	case e.queue <- exec:
		e.queued[exec.ID] = struct{}{}
		return true
	default:
		return false
	}
}

func (e *Engine) dequeued(id uuid.UUID) {
	e.queuedMu.Lock()
	delete(e.queued, id)
	e.queuedMu.Unlock()
}

// Start recovers unfinished executions, starts the workers and schedules the
// stuck-execution sweep.
func (e *Engine) Start() error {
	if err := e.Recover(e.ctx); err != nil {
		return fmt.Errorf("failed to recover executions: %w", err)
	}

	if _, err := e.cron.AddFunc(e.config.StuckSweepSchedule, func() { e.SweepStuck(e.ctx) }); err != nil {
		return fmt.Errorf("invalid stuck sweep schedule %q: %w", e.config.StuckSweepSchedule, err)
	}

	for i := 0; i < e.config.WorkerCount; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}
	e.cron.Start()

	e.logger.Info("workflow engine started",
		slog.Int("workers", e.config.WorkerCount),
		slog.String("stuck_sweep", e.config.StuckSweepSchedule))
	return nil
}

// Stop rejects new executions, waits for the sweep and the workers to finish
// their current execution, and returns. Queued executions stay pending in the
// store for the next Recover.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	e.mu.Unlock()

	<-e.cron.Stop().Done()
	e.cancel()
	e.wg.Wait()
	e.logger.Info("workflow engine stopped")
}

// Recover requeues pending executions and resets running ones, which were
// interrupted by a previous shutdown.
func (e *Engine) Recover(ctx context.Context) error {
	pending, err := e.store.Pending(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending executions: %w", err)
	}
	running, err := e.store.Running(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get running executions: %w", err)
	}

	e.logger.Info("recovering unfinished executions",
		slog.Int("pending_count", len(pending)),
		slog.Int("running_count", len(running)))

	for _, exec := range pending {
		e.requeue(ctx, exec, false)
	}
	for _, exec := range running {
		e.requeue(ctx, exec, true)
	}
	return nil
}

// SweepStuck resets executions that have been running longer than StuckAge.
func (e *Engine) SweepStuck(ctx context.Context) {
	stuck, err := e.store.Running(ctx, e.config.StuckAge)
	if err != nil {
		e.logger.Error("failed to check for stuck executions", slog.String("error", err.Error()))
		return
	}
	if len(stuck) == 0 {
		return
	}

	e.logger.Info("found stuck executions", slog.Int("count", len(stuck)))
	for _, exec := range stuck {
		e.requeue(ctx, exec, true)
	}
}

func (e *Engine) requeue(ctx context.Context, exec *Execution, reset bool) {
	log := e.logger.With(slog.String("execution_id", exec.ID.String()))

	if reset {
		if err := e.store.UpdateState(ctx, exec.ID, ExecutionPending, "reset after interruption"); err != nil {
			log.Error("failed to reset execution state", slog.String("error", err.Error()))
			return
		}
		exec.State = ExecutionPending
	}

	if !e.enqueue(exec) {
		log.Error("failed to requeue execution, queue is full")
		e.finish(exec.ID, ExecutionFailed, ErrQueueFull.Error(), log)
	}
}

func (e *Engine) worker(id int) {
	defer e.wg.Done()

	for {
		select {
		case <-e.ctx.Done():
			return
		case exec := <-e.queue:
			e.dequeued(exec.ID)
			e.process(exec, id)
		}
	}
}

func (e *Engine) process(exec *Execution, workerID int) {
	ctx := e.ctx
	log := e.logger.With(
		slog.String("execution_id", exec.ID.String()),
		slog.String("task_id", exec.Input.TaskID),
		slog.Int("worker_id", workerID),
	)

	if err := e.store.UpdateState(ctx, exec.ID, ExecutionRunning, ""); err != nil {
		log.Error("failed to mark execution running", slog.String("error", err.Error()))
		return
	}

	err := e.run(ctx, exec)
	if err != nil && ctx.Err() != nil {
		// Left running; the next Recover resets it.
		log.Warn("execution interrupted by shutdown", slog.String("error", err.Error()))
		return
	}
	if err != nil {
		log.Error("execution failed", slog.String("error", err.Error()))
		e.finish(exec.ID, ExecutionFailed, err.Error(), log)
		return
	}

	log.Info("execution succeeded", slog.String("status", string(exec.Input.Status)))
	e.finish(exec.ID, ExecutionSucceeded, "", log)
}

// run calls the handler, turning a panic into an execution failure.
func (e *Engine) run(ctx context.Context, exec *Execution) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()
	return e.handler(ctx, exec)
}

// finish records the outcome. It uses a fresh context so that a result
// computed during shutdown is still written.
func (e *Engine) finish(id uuid.UUID, state ExecutionState, msg string, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.store.UpdateState(ctx, id, state, msg); err != nil {
		log.Error("failed to record execution result",
			slog.String("state", string(state)),
			slog.String("error", err.Error()))
	}
}

// LogHandler is the default local workflow: it records the transition in the log.
func LogHandler(logger *slog.Logger) Handler {
	return func(ctx context.Context, exec *Execution) error {
		logger.InfoContext(ctx, "task status workflow",
			slog.String("task_id", exec.Input.TaskID),
			slog.String("user_id", exec.Input.UserID),
			slog.String("status", string(exec.Input.Status)))
		return nil
	}
}
