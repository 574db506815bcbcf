package postgres_test

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/taskr/internal/platform/postgres"
	"github.com/phrazzld/taskr/internal/store"
	"github.com/stretchr/testify/assert"
)

func newPgError(code string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		Message:        "error message",
		TableName:      "tasks",
		ColumnName:     "title",
		ConstraintName: "tasks_pkey",
	}
}

// MockResult implements sql.Result for testing
type MockResult struct {
	rowsAffected int64
	err          error
}

func (m MockResult) LastInsertId() (int64, error) { return 0, m.err }
func (m MockResult) RowsAffected() (int64, error) { return m.rowsAffected, m.err }

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		err          error
		wantNotFound bool
		wantFault    bool
		wantDup      bool
	}{
		{"no rows", sql.ErrNoRows, true, false, false},
		{"unique violation", newPgError("23505"), false, true, true},
		{"check violation", newPgError("23514"), false, true, false},
		{"not null violation", newPgError("23502"), false, true, false},
		{"other pg error", newPgError("42P01"), false, true, false},
		{"generic error", errors.New("connection reset"), false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := postgres.MapError("create", tt.err)
			assert.Equal(t, tt.wantNotFound, errors.Is(got, store.ErrNotFound))
			assert.Equal(t, tt.wantFault, errors.Is(got, store.ErrStoreFault))
			assert.Equal(t, tt.wantDup, errors.Is(got, store.ErrDuplicate))
		})
	}

	assert.NoError(t, postgres.MapError("get", nil))
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()
	assert.True(t, postgres.IsUniqueViolation(newPgError("23505")))
	assert.False(t, postgres.IsUniqueViolation(newPgError("23503")))
	assert.False(t, postgres.IsUniqueViolation(errors.New("plain")))
	assert.False(t, postgres.IsUniqueViolation(nil))
}

func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()

	assert.NoError(t, postgres.CheckRowsAffected(MockResult{rowsAffected: 1}, "execution"))

	err := postgres.CheckRowsAffected(MockResult{rowsAffected: 0}, "execution")
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.Contains(t, err.Error(), "execution not found")

	assert.Equal(t, store.ErrNotFound, postgres.CheckRowsAffected(MockResult{}, ""))

	err = postgres.CheckRowsAffected(MockResult{err: errors.New("boom")}, "execution")
	assert.Contains(t, err.Error(), "failed to get rows affected")

	assert.Error(t, postgres.CheckRowsAffected(nil, "execution"))
}
