package ratelimit

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/phrazzld/taskr/internal/api/shared"
	"github.com/phrazzld/taskr/internal/platform/logger"
	"github.com/phrazzld/taskr/internal/redact"
)

// Allower is satisfied by *Limiter.
type Allower interface {
	Allow(ctx context.Context, key string) (*Result, error)
}

// Middleware enforces a limit per authenticated owner. It must run after
// the auth middleware; requests without an owner fall back to the remote
// address.
type Middleware struct {
	limiter Allower
	logger  *slog.Logger
}

// NewMiddleware creates a Middleware.
func NewMiddleware(limiter Allower, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{limiter: limiter, logger: logger.With("component", "ratelimit")}
}

// Handler wraps next. A Redis failure lets the request through.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "ip:" + r.RemoteAddr
		if owner, ok := shared.UserIDFromContext(r.Context()); ok {
			key = "owner:" + owner
		}

		result, err := m.limiter.Allow(r.Context(), key)
		if err != nil {
			logger.FromContextOrDefault(r.Context(), m.logger).Error("rate limit check failed",
				"key", key,
				"error", redact.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			retry := int(math.Ceil(time.Until(result.ResetAt).Seconds()))
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			shared.RespondWithError(w, r, http.StatusTooManyRequests, "Too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}
