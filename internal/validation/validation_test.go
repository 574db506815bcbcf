package validation

import (
	"errors"
	"testing"

	"github.com/phrazzld/taskr/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *Error
	require.True(t, errors.As(err, &verr), "expected *validation.Error, got %T", err)
	return verr.Fields
}

func TestParseCreateTask(t *testing.T) {
	t.Run("defaults status to pending", func(t *testing.T) {
		in, err := ParseCreateTask([]byte(`{"title":"A"}`))
		require.NoError(t, err)
		assert.Equal(t, "A", in.Title)
		assert.Nil(t, in.Description)
		assert.Equal(t, domain.TaskStatusPending, in.Status)
		assert.False(t, in.Attachment)
	})

	t.Run("accepts every field", func(t *testing.T) {
		in, err := ParseCreateTask(
			[]byte(`{"title":"A","description":"B","status":"in-progress","attachment":true}`),
		)
		require.NoError(t, err)
		require.NotNil(t, in.Description)
		assert.Equal(t, "B", *in.Description)
		assert.Equal(t, domain.TaskStatusInProgress, in.Status)
		assert.True(t, in.Attachment)
	})

	t.Run("empty description becomes nil", func(t *testing.T) {
		in, err := ParseCreateTask([]byte(`{"title":"A","description":""}`))
		require.NoError(t, err)
		assert.Nil(t, in.Description)
	})

	tests := []struct {
		name      string
		body      string
		wantField string
		wantMsg   string
	}{
		{"empty body", ``, "title", "Title is required"},
		{"null description", `{"title":"A","description":null}`, "description", "must be a string"},
		{"empty object", `{}`, "title", "Title is required"},
		{"empty title", `{"title":""}`, "title", "Title is required"},
		{"bad status", `{"title":"A","status":"done"}`, "status", "must be one of: pending, in-progress, completed"},
		{"title wrong type", `{"title":5}`, "title", "must be a string"},
		{"attachment wrong type", `{"title":"A","attachment":"yes"}`, "attachment", "must be a boolean"},
		{"malformed json", `{"title":`, "body", "must be a valid JSON object"},
		{"array body", `[]`, "body", "must be a valid JSON object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := ParseCreateTask([]byte(tt.body))
			assert.Nil(t, in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrValidation))
			fields := fieldsOf(t, err)
			assert.Equal(t, tt.wantMsg, fields[tt.wantField])
		})
	}
}

func TestParseUpdateTask(t *testing.T) {
	in, err := ParseUpdateTask([]byte(`{"title":"Z","status":"completed"}`))
	require.NoError(t, err)
	assert.Equal(t, "Z", in.Title)
	assert.Nil(t, in.Description, "absent description must come back nil so it erases")

	in, err = ParseUpdateTask([]byte(`{"title":"Z","description":""}`))
	require.NoError(t, err)
	assert.Nil(t, in.Description, "empty description erases like an omitted one")

	_, err = ParseUpdateTask([]byte(`{"title":"Z","description":null}`))
	assert.Equal(t, "must be a string", fieldsOf(t, err)["description"])

	_, err = ParseUpdateTask([]byte(`{"description":"only"}`))
	assert.Equal(t, "Title is required", fieldsOf(t, err)["title"])
}

func TestParseStatusUpdate(t *testing.T) {
	for _, s := range domain.TaskStatuses() {
		in, err := ParseStatusUpdate([]byte(`{"status":"` + string(s) + `"}`))
		require.NoError(t, err)
		assert.Equal(t, s, in.Status)
	}

	_, err := ParseStatusUpdate([]byte(`{}`))
	assert.Equal(t, "is required", fieldsOf(t, err)["status"])

	_, err = ParseStatusUpdate([]byte(`{"status":"archived"}`))
	assert.Contains(t, fieldsOf(t, err)["status"], "must be one of")
}

func TestValidateStatus(t *testing.T) {
	assert.NoError(t, ValidateStatus(domain.TaskStatusCompleted))
	assert.Contains(t, fieldsOf(t, ValidateStatus("done"))["status"], "must be one of")
	assert.Equal(t, "is required", fieldsOf(t, ValidateStatus(""))["status"])
}

func TestErrorMessageIsStable(t *testing.T) {
	err := &Error{Fields: map[string]string{"title": "Title is required", "status": "is required"}}
	assert.Equal(t, "validation failed: status: is required; title: Title is required", err.Error())
}
