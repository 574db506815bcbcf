package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/taskr/internal/api/middleware"
	"github.com/phrazzld/taskr/internal/config"
	"github.com/phrazzld/taskr/internal/domain"
	"github.com/phrazzld/taskr/internal/mocks"
	"github.com/phrazzld/taskr/internal/platform/memory"
	"github.com/phrazzld/taskr/internal/service"
	"github.com/phrazzld/taskr/internal/service/auth"
	"github.com/phrazzld/taskr/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerSecret = "handler-test-secret"

type testAPI struct {
	server  *httptest.Server
	tokens  *auth.TokenService
	starter *workflowRecorder
}

// workflowRecorder is a starter whose failure can be switched on.
type workflowRecorder struct {
	inputs []workflow.Input
	err    error
}

func (s *workflowRecorder) StartExecution(_ context.Context, in workflow.Input) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.inputs = append(s.inputs, in)
	return "arn:aws:states:us-east-1:000000000000:execution:taskStatusFlow:" + in.TaskID, nil
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	tokens, err := auth.NewTokenService(config.AuthConfig{JWTSecret: handlerSecret, TokenLifetime: time.Hour})
	require.NoError(t, err)

	taskStore := memory.NewTaskStore()
	starter := &workflowRecorder{}
	tasks, err := service.NewTaskService(taskStore, &mocks.MockIssuer{}, service.TaskServiceConfig{StoreTimeout: time.Second}, nil)
	require.NoError(t, err)
	status, err := service.NewStatusService(taskStore, starter, time.Second, time.Second, nil)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(auth.NewAuthorizer(tokens, nil)).Authenticate)
		NewTaskHandler(tasks, status, nil).RegisterRoutes(r)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testAPI{server: srv, tokens: tokens, starter: starter}
}

func (a *testAPI) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := a.tokens.GenerateToken(context.Background(), userID, time.Hour)
	require.NoError(t, err)
	return tok
}

func (a *testAPI) do(t *testing.T, token, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestTaskAPI_RequiresAuth(t *testing.T) {
	api := newTestAPI(t)
	status, body := api.do(t, "", http.MethodGet, "/tasks", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Unauthorized", body["error"])
}

func TestTaskAPI_CreateGetRoundTrip(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, "user-a")

	status, created := api.do(t, tok, http.MethodPost, "/tasks", map[string]interface{}{"title": "a"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "pending", created["status"])
	assert.Equal(t, "user-a", created["userId"])
	assert.Contains(t, created, "description")
	assert.Nil(t, created["description"], "description is an explicit null")
	assert.Equal(t, created["createdAt"], created["updatedAt"])

	id := created["taskId"].(string)
	status, got := api.do(t, tok, http.MethodGet, "/tasks/"+id, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, created, got)
}

func TestTaskAPI_CreateValidation(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, "user-a")

	status, body := api.do(t, tok, http.MethodPost, "/tasks", map[string]interface{}{"title": ""})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Validation failed", body["error"])
	assert.Equal(t, map[string]interface{}{"title": "Title is required"}, body["fields"])

	status, body = api.do(t, tok, http.MethodPost, "/tasks", "{not json")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["fields"], "body")

	status, _ = api.do(t, tok, http.MethodPost, "/tasks", map[string]interface{}{"title": "x", "status": "archived"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestTaskAPI_OwnershipIsolation(t *testing.T) {
	api := newTestAPI(t)
	alice := api.token(t, "alice")
	bob := api.token(t, "bob")

	_, created := api.do(t, alice, http.MethodPost, "/tasks", map[string]interface{}{"title": "private"})
	id := created["taskId"].(string)

	status, _ := api.do(t, bob, http.MethodGet, "/tasks/"+id, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = api.do(t, bob, http.MethodPut, "/tasks/"+id, map[string]interface{}{"title": "stolen"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = api.do(t, bob, http.MethodPatch, "/tasks/"+id+"/status", map[string]interface{}{"status": "completed"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Empty(t, api.starter.inputs, "no workflow for a missing task")

	status, _ = api.do(t, bob, http.MethodDelete, "/tasks/"+id, nil)
	assert.Equal(t, http.StatusOK, status, "delete is idempotent and reveals nothing")

	status, list := api.do(t, bob, http.MethodGet, "/tasks", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, list["items"])

	status, got := api.do(t, alice, http.MethodGet, "/tasks/"+id, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "private", got["title"])
}

func TestTaskAPI_UpdateIsDestructive(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, "user-a")

	_, created := api.do(t, tok, http.MethodPost, "/tasks", map[string]interface{}{
		"title": "a", "description": "d", "status": "in-progress",
	})
	id := created["taskId"].(string)

	status, updated := api.do(t, tok, http.MethodPut, "/tasks/"+id, map[string]interface{}{
		"title": "b", "status": "completed",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "b", updated["title"])
	assert.Nil(t, updated["description"])
	assert.Equal(t, "in-progress", updated["status"], "status is not changed by PUT")

	_, updated = api.do(t, tok, http.MethodPut, "/tasks/"+id, map[string]interface{}{"title": "c", "description": "x"})
	require.Equal(t, "x", updated["description"])
	status, updated = api.do(t, tok, http.MethodPut, "/tasks/"+id, map[string]interface{}{"title": "d", "description": ""})
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, updated["description"], "empty description erases")

	status, body := api.do(t, tok, http.MethodPut, "/tasks/"+id, map[string]interface{}{"title": "e", "description": nil})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, map[string]interface{}{"description": "must be a string"}, body["fields"])
}

func TestTaskAPI_StatusTransition(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, "user-a")

	_, created := api.do(t, tok, http.MethodPost, "/tasks", map[string]interface{}{"title": "a", "description": "d"})
	id := created["taskId"].(string)

	status, body := api.do(t, tok, http.MethodPatch, "/tasks/"+id+"/status", map[string]interface{}{"status": "completed"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, "a", body["title"])
	assert.Equal(t, "d", body["description"])
	assert.Contains(t, body["workflowExecutionArn"], id)
	require.Len(t, api.starter.inputs, 1)
	assert.Equal(t, workflow.Input{TaskID: id, UserID: "user-a", Status: domain.TaskStatusCompleted}, api.starter.inputs[0])

	status, body = api.do(t, tok, http.MethodPatch, "/tasks/"+id+"/status", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, map[string]interface{}{"status": "is required"}, body["fields"])
}

func TestTaskAPI_StatusDispatchFailure(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, "user-a")

	_, created := api.do(t, tok, http.MethodPost, "/tasks", map[string]interface{}{"title": "a"})
	id := created["taskId"].(string)

	api.starter.err = errors.New("StateMachineDoesNotExist")
	status, body := api.do(t, tok, http.MethodPatch, "/tasks/"+id+"/status", map[string]interface{}{"status": "in-progress"})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Status updated but workflow could not be started", body["error"])

	_, got := api.do(t, tok, http.MethodGet, "/tasks/"+id, nil)
	assert.Equal(t, "in-progress", got["status"], "status was committed before the dispatch")
}

func TestTaskAPI_ListPagination(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, "user-a")
	for _, title := range []string{"a", "b", "c"} {
		status, _ := api.do(t, tok, http.MethodPost, "/tasks", map[string]interface{}{"title": title})
		require.Equal(t, http.StatusCreated, status)
	}

	seen := map[string]bool{}
	path := "/tasks?limit=1"
	for page := 0; page < 3; page++ {
		status, body := api.do(t, tok, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, status)
		items := body["items"].([]interface{})
		require.Len(t, items, 1)
		seen[items[0].(map[string]interface{})["taskId"].(string)] = true

		if page < 2 {
			next, ok := body["nextToken"].(string)
			require.True(t, ok, "expected a nextToken on page %d", page)
			path = "/tasks?limit=1&lastKey=" + url.QueryEscape(next)
		} else {
			assert.Nil(t, body["nextToken"])
		}
	}
	assert.Len(t, seen, 3)

	status, body := api.do(t, tok, http.MethodGet, "/tasks?lastKey=%25zz", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid pagination token", body["error"])
}

func TestTaskAPI_DeleteAndAttachment(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, "user-a")

	status, created := api.do(t, tok, http.MethodPost, "/tasks", map[string]interface{}{"title": "a", "attachment": true})
	require.Equal(t, http.StatusCreated, status)
	id := created["taskId"].(string)
	assert.Equal(t, "user-a/"+id+"/attachment", created["attachmentKey"])
	assert.NotEmpty(t, created["attachmentUploadUrl"])

	status, body := api.do(t, tok, http.MethodGet, "/tasks/"+id+"/attachment", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body["downloadUrl"], id)

	status, body = api.do(t, tok, http.MethodDelete, "/tasks/"+id, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Task deleted", body["message"])

	status, _ = api.do(t, tok, http.MethodGet, "/tasks/"+id, nil)
	assert.Equal(t, http.StatusNotFound, status)
}
