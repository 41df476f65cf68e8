package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// windowGrace keeps counter keys alive slightly past their window so clock
// skew between instances cannot resurrect a spent window.
const windowGrace = time.Second

// loginWindowScript atomically counts an attempt and arms the key's expiry on
// first use.
var loginWindowScript = redis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return hits
`)

// RedisLimiter implements a fixed-window rate limiter backed by Redis, shared
// across service instances.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	clock  func() time.Time
}

// NewRedisLimiter constructs a RedisLimiter.
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: strings.TrimSpace(prefix),
		clock:  time.Now,
	}
}

// Allow checks whether the attempt fits into the current one-second window.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int) (Result, error) {
	if limit <= 0 || key == "" || l == nil || l.client == nil {
		return Result{Allowed: true}, nil
	}
	now := l.clock()
	sec := now.Unix()
	reset := time.Unix(sec+1, 0).UTC()
	ttl := reset.Sub(now) + windowGrace

	res, errEval := loginWindowScript.Run(ctx, l.client,
		[]string{l.windowKey(key, sec)}, ttl.Milliseconds()).Result()
	if errEval != nil {
		return Result{}, fmt.Errorf("ratelimit: count attempt: %w", errEval)
	}
	hits, ok := res.(int64)
	if !ok {
		return Result{}, fmt.Errorf("ratelimit: unexpected script result %T", res)
	}
	if hits > int64(limit) {
		return Result{Allowed: false, Reset: reset}, nil
	}
	return Result{Allowed: true, Remaining: limit - int(hits), Reset: reset}, nil
}

// windowKey names the counter for one address in one window.
func (l *RedisLimiter) windowKey(key string, sec int64) string {
	if l.prefix == "" {
		return key + ":" + strconv.FormatInt(sec, 10)
	}
	return l.prefix + ":" + key + ":" + strconv.FormatInt(sec, 10)
}
