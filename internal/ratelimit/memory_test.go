package ratelimit

import (
	"context"
	"testing"
	"time"
)

// frozenLimiter returns a limiter whose clock the test controls.
func frozenLimiter(at *time.Time) *MemoryLimiter {
	limiter := NewMemoryLimiter()
	limiter.clock = func() time.Time { return *at }
	return limiter
}

func TestMemoryLimiter_DeniesAboveLimit(t *testing.T) {
	at := time.Unix(1700000000, 0)
	limiter := frozenLimiter(&at)

	for i := 0; i < 3; i++ {
		result, err := limiter.Allow(context.Background(), "10.0.0.1", 3)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !result.Allowed {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}

	result, err := limiter.Allow(context.Background(), "10.0.0.1", 3)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if result.Allowed {
		t.Fatalf("fourth attempt in the window should be denied")
	}
}

func TestMemoryLimiter_ResetsNextWindow(t *testing.T) {
	at := time.Unix(1700000000, 0)
	limiter := frozenLimiter(&at)

	if result, _ := limiter.Allow(context.Background(), "10.0.0.1", 1); !result.Allowed {
		t.Fatalf("first attempt should be allowed")
	}
	if result, _ := limiter.Allow(context.Background(), "10.0.0.1", 1); result.Allowed {
		t.Fatalf("second attempt in same window should be denied")
	}

	at = at.Add(time.Second)
	if result, _ := limiter.Allow(context.Background(), "10.0.0.1", 1); !result.Allowed {
		t.Fatalf("attempt in next window should be allowed")
	}
}

func TestMemoryLimiter_ZeroLimitDisables(t *testing.T) {
	limiter := NewMemoryLimiter()
	for i := 0; i < 10; i++ {
		result, err := limiter.Allow(context.Background(), "10.0.0.1", 0)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !result.Allowed {
			t.Fatalf("zero limit must disable limiting")
		}
	}
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	at := time.Unix(1700000000, 0)
	limiter := frozenLimiter(&at)

	if result, _ := limiter.Allow(context.Background(), "10.0.0.1", 1); !result.Allowed {
		t.Fatalf("first key should be allowed")
	}
	if result, _ := limiter.Allow(context.Background(), "10.0.0.2", 1); !result.Allowed {
		t.Fatalf("second key should have its own window")
	}
}

func TestMemoryLimiter_SweepsIdleEntries(t *testing.T) {
	at := time.Unix(1700000000, 0)
	limiter := frozenLimiter(&at)

	if _, err := limiter.Allow(context.Background(), "10.0.0.1", 1); err != nil {
		t.Fatalf("allow: %v", err)
	}

	at = at.Add(idleEvictAfter + 2*time.Second)
	if _, err := limiter.Allow(context.Background(), "10.0.0.2", 1); err != nil {
		t.Fatalf("allow: %v", err)
	}

	limiter.mu.Lock()
	_, stillTracked := limiter.windows["10.0.0.1"]
	limiter.mu.Unlock()
	if stillTracked {
		t.Fatalf("idle address should have been swept")
	}
}
