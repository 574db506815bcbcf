package ratelimit

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// NewClient creates the Redis client used by the limiter.
func NewClient(addr string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})
}
