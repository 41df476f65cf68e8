// Package ratelimit provides a fixed-window limiter for login attempts,
// keyed by client address, with in-memory and Redis backends.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Limiter provides rate limit checks. Backends carry their own clock.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int) (Result, error)
}

// New selects a backend: Redis when an address is configured, otherwise the
// in-process limiter.
func New(redisAddr, redisPassword string) Limiter {
	if redisAddr == "" {
		return NewMemoryLimiter()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
	})
	return NewRedisLimiter(client, "login")
}
