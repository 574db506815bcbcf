package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/taskr/internal/api/shared"
	"github.com/phrazzld/taskr/internal/domain"
)

// ownerAndTaskID reads the authenticated owner and the {id} path
// parameter. It writes the error response itself and returns false when
// either is missing.
func ownerAndTaskID(w http.ResponseWriter, r *http.Request, log *slog.Logger) (string, string, bool) {
	ownerID, ok := requireOwner(w, r, log)
	if !ok {
		return "", "", false
	}

	taskID := chi.URLParam(r, "id")
	if taskID == "" {
		HandleAPIError(w, r, domain.ErrEmptyTaskID, "")
		return "", "", false
	}
	return ownerID, taskID, true
}

// requireOwner reads the owner placed in the context by the auth middleware.
func requireOwner(w http.ResponseWriter, r *http.Request, log *slog.Logger) (string, bool) {
	ownerID, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		log.Warn("user ID not found in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return "", false
	}
	return ownerID, true
}
