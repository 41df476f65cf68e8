package ratelimit

import (
	"context"
	"sync"
	"time"
)

// idleEvictAfter is how long an address may stay quiet before its window
// state is dropped.
const idleEvictAfter = 60 * time.Second

// attemptWindow tracks the attempts of one address within one second.
type attemptWindow struct {
	startedAt int64
	attempts  int
	touchedAt int64
}

// MemoryLimiter implements a fixed-window in-process rate limiter. Suitable
// for a single-process deployment; use the Redis backend behind a balancer.
type MemoryLimiter struct {
	clock func() time.Time

	mu        sync.Mutex
	windows   map[string]*attemptWindow
	lastSweep int64
}

// NewMemoryLimiter constructs a MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		clock:   time.Now,
		windows: make(map[string]*attemptWindow),
	}
}

// Allow checks whether the attempt fits into the current one-second window.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int) (Result, error) {
	if limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	sec := l.clock().Unix()
	reset := time.Unix(sec+1, 0).UTC()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweepIdle(sec)

	window := l.windows[key]
	if window == nil || window.startedAt != sec {
		window = &attemptWindow{startedAt: sec}
		l.windows[key] = window
	}
	window.touchedAt = sec

	if window.attempts >= limit {
		return Result{Allowed: false, Reset: reset}, nil
	}
	window.attempts++
	return Result{Allowed: true, Remaining: limit - window.attempts, Reset: reset}, nil
}

// sweepIdle drops state for addresses quiet long enough to never influence
// another decision. Runs at most once per second.
func (l *MemoryLimiter) sweepIdle(sec int64) {
	if l.lastSweep == sec {
		return
	}
	l.lastSweep = sec
	cutoff := sec - int64(idleEvictAfter.Seconds())
	for key, window := range l.windows {
		if window.touchedAt < cutoff {
			delete(l.windows, key)
		}
	}
}
