// Package ratelimit limits requests per authenticated owner with a sliding
// window kept in Redis sorted sets.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindow trims the window, counts what is left and records the
// request if there is room. The INCR counter keeps members unique within
// one millisecond.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local current = redis.call('ZCARD', key)

	if current < limit then
		local counter = redis.call('INCR', key .. ':counter')
		redis.call('ZADD', key, now, now .. ':' .. counter)
		local expire_seconds = math.ceil(window_ms / 1000)
		redis.call('EXPIRE', key, expire_seconds)
		redis.call('EXPIRE', key .. ':counter', expire_seconds)
		return {1, limit - current - 1, 0}
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local reset_at = 0
	if oldest and #oldest >= 2 then
		reset_at = tonumber(oldest[2]) + window_ms
	end
	return {0, 0, reset_at}
`)

// Result is the outcome of one check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	Limit     int
}

// Limiter applies one limit and window to any number of keys.
type Limiter struct {
	client    *redis.Client
	keyPrefix string
	limit     int
	window    time.Duration
	now       func() time.Time
}

// NewLimiter creates a Limiter allowing limit requests per window for each key.
func NewLimiter(client *redis.Client, keyPrefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{
		client:    client,
		keyPrefix: keyPrefix,
		limit:     limit,
		window:    window,
		now:       time.Now,
	}
}

// Allow records a request for key if the window has room.
func (l *Limiter) Allow(ctx context.Context, key string) (*Result, error) {
	now := l.now()
	windowStart := now.Add(-l.window)

	result, err := slidingWindow.Run(ctx, l.client, []string{l.keyPrefix + key},
		now.UnixMilli(), windowStart.UnixMilli(), l.limit, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("redis script error: %w", err)
	}
	if len(result) != 3 {
		return nil, fmt.Errorf("unexpected Redis response length: %d", len(result))
	}

	resetAt := now.Add(l.window)
	if result[2] > 0 {
		resetAt = time.UnixMilli(result[2])
	}
	return &Result{
		Allowed:   result[0] == 1,
		Remaining: int(result[1]),
		ResetAt:   resetAt,
		Limit:     l.limit,
	}, nil
}
