package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/phrazzld/taskr/internal/domain"
	"github.com/phrazzld/taskr/internal/store"
)

const taskColumns = `owner_id, task_id, title, description, status, attachment_key, created_at, updated_at`

// TaskStore implements store.TaskStore on the tasks table.
type TaskStore struct {
	db     store.DBTX
	logger *slog.Logger
	now    func() time.Time
}

// NewTaskStore creates a new TaskStore.
// If logger is nil, a default logger is used.
func NewTaskStore(db store.DBTX, logger *slog.Logger) *TaskStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store"), slog.String("backend", "postgres")),
		now:    domain.Now,
	}
}

var _ store.TaskStore = (*TaskStore)(nil)

// Create implements store.TaskStore.
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		task.OwnerID,
		task.TaskID,
		task.Title,
		nullString(task.Description),
		string(task.Status),
		nullable(task.AttachmentKey),
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			s.logger.WarnContext(ctx, "task id already present",
				slog.String("task_id", task.TaskID))
		} else {
			s.logger.ErrorContext(ctx, "failed to insert task",
				slog.String("task_id", task.TaskID),
				slog.String("error", err.Error()))
		}
		return MapError("create", err)
	}
	return nil
}

// Get implements store.TaskStore.
func (s *TaskStore) Get(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE owner_id = $1 AND task_id = $2`,
		ownerID, taskID)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, MapError("get", err)
	}
	return task, nil
}

// List implements store.TaskStore using keyset pagination on task_id.
func (s *TaskStore) List(ctx context.Context, ownerID string, opts store.ListOptions) (*store.Page, error) {
	limit := opts.EffectiveLimit()
	after := ""
	if opts.Cursor != nil {
		after = opts.Cursor.TaskID
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks
		WHERE owner_id = $1 AND task_id > $2
		ORDER BY task_id ASC
		LIMIT $3`,
		ownerID, after, limit+1)
	if err != nil {
		return nil, MapError("list", err)
	}
	defer func() { _ = rows.Close() }()

	page := &store.Page{Items: make([]*domain.Task, 0, limit)}
	more := false
	for rows.Next() {
		if len(page.Items) == limit {
			more = true
			break
		}
		task, err := scanTask(rows)
		if err != nil {
			return nil, MapError("list", err)
		}
		page.Items = append(page.Items, task)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError("list", err)
	}

	if more {
		last := page.Items[len(page.Items)-1]
		page.Next = &store.Key{UserID: ownerID, TaskID: last.TaskID}
	}
	return page, nil
}

// Update implements store.TaskStore. updated_at never moves backwards.
func (s *TaskStore) Update(
	ctx context.Context,
	ownerID, taskID string,
	upd store.TaskUpdate,
) (*domain.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE tasks
		SET title = $3, description = $4, updated_at = GREATEST(updated_at, $5)
		WHERE owner_id = $1 AND task_id = $2
		RETURNING `+taskColumns,
		ownerID, taskID, upd.Title, nullString(upd.Description), s.now())
	return s.scanMutation(ctx, "update", taskID, row)
}

// UpdateStatus implements store.TaskStore.
func (s *TaskStore) UpdateStatus(
	ctx context.Context,
	ownerID, taskID string,
	status domain.TaskStatus,
) (*domain.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE tasks
		SET status = $3, updated_at = GREATEST(updated_at, $4)
		WHERE owner_id = $1 AND task_id = $2
		RETURNING `+taskColumns,
		ownerID, taskID, string(status), s.now())
	return s.scanMutation(ctx, "update status", taskID, row)
}

func (s *TaskStore) scanMutation(ctx context.Context, op, taskID string, row *sql.Row) (*domain.Task, error) {
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to "+op+" task",
			slog.String("task_id", taskID),
			slog.String("error", err.Error()))
		return nil, MapError(op, err)
	}
	return task, nil
}

// Delete implements store.TaskStore.
func (s *TaskStore) Delete(ctx context.Context, ownerID, taskID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE owner_id = $1 AND task_id = $2`,
		ownerID, taskID)
	if err != nil {
		return MapError("delete", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		t             domain.Task
		description   sql.NullString
		status        string
		attachmentKey sql.NullString
	)
	if err := row.Scan(
		&t.OwnerID,
		&t.TaskID,
		&t.Title,
		&description,
		&status,
		&attachmentKey,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if description.Valid {
		t.Description = &description.String
	}
	t.Status = domain.TaskStatus(status)
	t.AttachmentKey = attachmentKey.String
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
