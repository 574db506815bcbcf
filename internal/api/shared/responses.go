package shared

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/taskr/internal/platform/logger"
	"github.com/phrazzld/taskr/internal/redact"
)

// ErrorResponse defines the standard error response structure.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
	Code    int               `json:"-"` // Not serialized to JSON, used for logging
	TraceID string            `json:"trace_id,omitempty"`
}

// ResponseOption defines a function to customize response behavior.
type ResponseOption func(*responseOptions)

type responseOptions struct {
	elevateLogLevel bool
	fields          map[string]string
}

// WithElevatedLogLevel raises 4xx errors to WARN level instead of the
// default DEBUG level.
func WithElevatedLogLevel() ResponseOption {
	return func(opts *responseOptions) {
		opts.elevateLogLevel = true
	}
}

// WithFields attaches field-level messages to the error body.
func WithFields(fields map[string]string) ResponseOption {
	return func(opts *responseOptions) {
		opts.fields = fields
	}
}

// RespondWithJSON writes a JSON response with the given status code and data.
func RespondWithJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContext(r.Context()).Error("failed to encode JSON response", "error", err)
	}
}

// RespondWithError writes a JSON error response with the given status code and message.
// It also sets the TraceID from the request context if available.
func RespondWithError(w http.ResponseWriter, r *http.Request, status int, message string, opts ...ResponseOption) {
	RespondWithErrorAndLog(w, r, status, message, nil, opts...)
}

// RespondWithErrorAndLog writes a JSON error response and logs the detailed
// error. The client only ever sees userMessage; err is logged redacted.
//
// 5xx responses log at ERROR, 429 at WARN, everything else at DEBUG unless
// WithElevatedLogLevel is given.
func RespondWithErrorAndLog(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	userMessage string,
	err error,
	opts ...ResponseOption,
) {
	responseOpts := responseOptions{}
	for _, opt := range opts {
		opt(&responseOpts)
	}

	traceID := GetTraceID(r.Context())
	errorResponse := ErrorResponse{
		Error:   userMessage,
		Fields:  responseOpts.fields,
		Code:    status,
		TraceID: traceID,
	}

	logAttrs := []slog.Attr{
		slog.String("trace_id", traceID),
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method),
		slog.Int("status_code", status),
		slog.String("user_message", userMessage),
	}
	if err != nil {
		logAttrs = append(logAttrs,
			slog.String("error", redact.Error(err)),
			slog.String("error_type", fmt.Sprintf("%T", err)))
	}

	logLevel := slog.LevelDebug
	switch {
	case status >= http.StatusInternalServerError:
		logLevel = slog.LevelError
	case status == http.StatusTooManyRequests:
		logLevel = slog.LevelWarn
	case responseOpts.elevateLogLevel && status >= http.StatusBadRequest:
		logLevel = slog.LevelWarn
	}

	logger.FromContext(r.Context()).LogAttrs(r.Context(), logLevel, "API error response", logAttrs...)
	RespondWithJSON(w, r, status, errorResponse)
}
