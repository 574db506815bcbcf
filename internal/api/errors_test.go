package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/taskr/internal/domain"
	"github.com/phrazzld/taskr/internal/service"
	"github.com/phrazzld/taskr/internal/service/auth"
	"github.com/phrazzld/taskr/internal/store"
	"github.com/phrazzld/taskr/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized},
		{"no identity", domain.ErrUnauthorized, http.StatusUnauthorized},
		{"validation", &validation.Error{Fields: map[string]string{"title": "Title is required"}}, http.StatusBadRequest},
		{"bad cursor", fmt.Errorf("list: %w", store.ErrBadCursor), http.StatusBadRequest},
		{"not found", service.ErrTaskNotFound, http.StatusNotFound},
		{"store not found", store.ErrNotFound, http.StatusNotFound},
		{"no attachment", service.ErrNoAttachment, http.StatusNotFound},
		{"timeout", fmt.Errorf("%w: deadline", service.ErrTimeout), http.StatusServiceUnavailable},
		{
			"dispatch timeout",
			&service.DispatchError{
				Task: &domain.Task{TaskID: "t", Status: domain.TaskStatusCompleted},
				Err:  fmt.Errorf("%w: deadline", service.ErrTimeout),
			},
			http.StatusInternalServerError,
		},
		{"store fault", store.NewStoreError("get", "backend call failed", errors.New("boom")), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, MapErrorToStatusCode(tc.err))
		})
	}
}

func TestGetSafeErrorMessage_NoLeaks(t *testing.T) {
	err := store.NewStoreError("get", "backend call failed",
		errors.New("dial tcp 10.0.0.5:5432: password=hunter2 refused"))
	msg := GetSafeErrorMessage(err)
	assert.Equal(t, "An unexpected error occurred", msg)
	assert.NotContains(t, msg, "hunter2")
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
}

func TestHandleAPIError(t *testing.T) {
	t.Run("default message for unmapped errors", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleAPIError(w, httptest.NewRequest(http.MethodGet, "/tasks", nil), errors.New("boom"), "Failed to list tasks")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"Failed to list tasks"}`, w.Body.String())
	})

	t.Run("mapped message wins over default", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleAPIError(w, httptest.NewRequest(http.MethodGet, "/tasks/x", nil), service.ErrTaskNotFound, "Failed to fetch task")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error":"Task not found"}`, w.Body.String())
	})

	t.Run("validation fields", func(t *testing.T) {
		w := httptest.NewRecorder()
		verr := &validation.Error{Fields: map[string]string{"status": "is required"}}
		HandleAPIError(w, httptest.NewRequest(http.MethodPatch, "/tasks/x/status", nil), verr, "")

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Validation failed", body["error"])
		assert.Equal(t, map[string]interface{}{"status": "is required"}, body["fields"])
	})
}
