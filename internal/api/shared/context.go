// Package shared holds the request context keys and response helpers used
// by the handlers and middleware.
package shared

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Key type for context values
type ContextKey string

// Context keys for various values
const (
	// UserIDContextKey holds the task owner established by the auth middleware
	UserIDContextKey ContextKey = "userID"

	// TraceIDKey is the key for the trace ID in the request context
	TraceIDKey ContextKey = "traceID"
)

// WithUserID returns a copy of ctx carrying the authenticated owner.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDContextKey, userID)
}

// UserIDFromContext returns the authenticated owner, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDContextKey).(string)
	return id, ok && id != ""
}

// SetTraceID adds a fresh trace ID to the context.
// This is useful for correlating logs and error responses.
func SetTraceID(ctx context.Context) context.Context {
	return WithTraceID(ctx, "")
}

// WithTraceID stores id as the trace ID, generating one when id is empty.
func WithTraceID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = generateTraceID()
	}
	return context.WithValue(ctx, TraceIDKey, id)
}

// GetTraceID retrieves the trace ID from the context.
// If no trace ID exists, it returns an empty string.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// generateTraceID returns 32 hex characters.
func generateTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
