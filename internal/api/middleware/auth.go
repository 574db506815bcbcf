// Package middleware holds the HTTP middleware placed in front of the task
// handlers.
package middleware

import (
	"context"
	"net/http"

	"github.com/phrazzld/taskr/internal/api/shared"
	"github.com/phrazzld/taskr/internal/service/auth"
)

// Authorizer decides whether a raw Authorization header may invoke resource.
type Authorizer interface {
	Authorize(ctx context.Context, rawHeader, resource string) auth.Policy
}

// AuthMiddleware gates routes on a bearer token.
type AuthMiddleware struct {
	authorizer Authorizer
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(authorizer Authorizer) *AuthMiddleware {
	return &AuthMiddleware{authorizer: authorizer}
}

// Authenticate asks the authorizer about "<METHOD> <path>". A deny is a 401
// with a fixed body; an allow puts the owner ID in the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resource := r.Method + " " + r.URL.Path
		policy := m.authorizer.Authorize(r.Context(), r.Header.Get("Authorization"), resource)
		if !policy.Allowed() || policy.UserID() == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := shared.WithUserID(r.Context(), policy.UserID())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
