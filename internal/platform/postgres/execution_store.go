package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskr/internal/domain"
	"github.com/phrazzld/taskr/internal/store"
	"github.com/phrazzld/taskr/internal/workflow"
)

const executionColumns = `id, task_id, owner_id, task_status, state, error_message, created_at, updated_at`

// ExecutionStore implements workflow.ExecutionStore on the workflow_executions table.
type ExecutionStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionStore creates a new ExecutionStore.
func NewExecutionStore(db *sql.DB, logger *slog.Logger) *ExecutionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecutionStore{
		db:     db,
		logger: logger.With(slog.String("component", "execution_store")),
	}
}

var _ workflow.ExecutionStore = (*ExecutionStore)(nil)

// Save implements workflow.ExecutionStore.
func (s *ExecutionStore) Save(ctx context.Context, exec *workflow.Execution) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workflow_executions (`+executionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		exec.ID,
		exec.Input.TaskID,
		exec.Input.UserID,
		string(exec.Input.Status),
		string(exec.State),
		nullable(exec.Error),
		exec.CreatedAt,
		exec.UpdatedAt,
	)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to save execution",
			slog.String("execution_id", exec.ID.String()),
			slog.String("error", err.Error()))
		return MapError("save execution", err)
	}
	return nil
}

// UpdateState implements workflow.ExecutionStore.
func (s *ExecutionStore) UpdateState(
	ctx context.Context,
	id uuid.UUID,
	state workflow.ExecutionState,
	errMsg string,
) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE workflow_executions
		SET state = $1, error_message = $2, updated_at = $3
		WHERE id = $4`,
		string(state), nullable(errMsg), time.Now().UTC(), id)
	if err != nil {
		return MapError("update execution", err)
	}
	return CheckRowsAffected(result, "execution")
}

// Pending implements workflow.ExecutionStore.
func (s *ExecutionStore) Pending(ctx context.Context) ([]*workflow.Execution, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+executionColumns+` FROM workflow_executions
		WHERE state = $1
		ORDER BY created_at ASC`,
		string(workflow.ExecutionPending))
	if err != nil {
		return nil, MapError("list executions", err)
	}
	return scanExecutions(rows)
}

// Running implements workflow.ExecutionStore. With a non-zero olderThan the
// matching rows are claimed in a transaction: their updated_at is bumped so a
// second engine sweeping the same table does not pick them up again.
func (s *ExecutionStore) Running(ctx context.Context, olderThan time.Duration) ([]*workflow.Execution, error) {
	if olderThan <= 0 {
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+executionColumns+` FROM workflow_executions
			WHERE state = $1
			ORDER BY created_at ASC`,
			string(workflow.ExecutionRunning))
		if err != nil {
			return nil, MapError("list executions", err)
		}
		return scanExecutions(rows)
	}

	var claimed []*workflow.Execution
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		now := time.Now().UTC()
		rows, err := tx.QueryContext(ctx,
			`UPDATE workflow_executions
			SET updated_at = $1
			WHERE id IN (
				SELECT id FROM workflow_executions
				WHERE state = $2 AND updated_at < $3
				ORDER BY created_at ASC
				FOR UPDATE SKIP LOCKED
			)
			RETURNING `+executionColumns,
			now, string(workflow.ExecutionRunning), now.Add(-olderThan))
		if err != nil {
			return err
		}
		claimed, err = scanExecutions(rows)
		return err
	})
	if err != nil {
		return nil, MapError("claim stuck executions", err)
	}
	return claimed, nil
}

func scanExecutions(rows *sql.Rows) ([]*workflow.Execution, error) {
	defer func() { _ = rows.Close() }()

	var out []*workflow.Execution
	for rows.Next() {
		var (
			e          workflow.Execution
			taskStatus string
			state      string
			errMsg     sql.NullString
		)
		if err := rows.Scan(
			&e.ID,
			&e.Input.TaskID,
			&e.Input.UserID,
			&taskStatus,
			&state,
			&errMsg,
			&e.CreatedAt,
			&e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan execution row: %w", err)
		}
		e.Input.Status = domain.TaskStatus(taskStatus)
		e.State = workflow.ExecutionState(state)
		e.Error = errMsg.String
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating execution rows: %w", err)
	}
	return out, nil
}
