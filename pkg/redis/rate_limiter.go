package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript increments the window counter, starting its expiry on
// the first hit, and returns the count and the remaining window in ms.
var fixedWindowScript = redis.NewScript(`
	local count = redis.call("INCR", KEYS[1])
	if count == 1 then
		redis.call("PEXPIRE", KEYS[1], ARGV[1])
	end
	local ttl = redis.call("PTTL", KEYS[1])
	if ttl < 0 then
		redis.call("PEXPIRE", KEYS[1], ARGV[1])
		ttl = tonumber(ARGV[1])
	end
	return {count, ttl}
`)

// RateLimitResult describes the state of a window after a hit
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAfter time.Duration
}

// FixedWindowLimiter allows Limit hits per key in each Window
type FixedWindowLimiter struct {
	client    *Client
	limit     int
	window    time.Duration
	namespace string
}

// NewFixedWindowLimiter creates a limiter allowing limit hits per window
func NewFixedWindowLimiter(client *Client, namespace string, limit int, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		client:    client,
		limit:     limit,
		window:    window,
		namespace: namespace,
	}
}

// Allow records a hit for key and reports whether it fits in the current window
func (f *FixedWindowLimiter) Allow(ctx context.Context, key string) (RateLimitResult, error) {
	if f.limit <= 0 || f.window <= 0 {
		return RateLimitResult{Allowed: true, Limit: f.limit}, nil
	}

	values, err := fixedWindowScript.Run(ctx, f.client.GetClient(), []string{f.windowKey(key)}, f.window.Milliseconds()).Int64Slice()
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("rate limiter %s: %w", f.namespace, err)
	}
	if len(values) != 2 {
		return RateLimitResult{}, fmt.Errorf("rate limiter %s: unexpected reply %v", f.namespace, values)
	}

	return evaluateWindow(f.limit, values[0], values[1]), nil
}

func (f *FixedWindowLimiter) windowKey(key string) string {
	return buildLockKey(f.namespace, "ratelimit::"+key)
}

func evaluateWindow(limit int, count, ttlMillis int64) RateLimitResult {
	remaining := int64(limit) - count
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitResult{
		Allowed:    count <= int64(limit),
		Limit:      limit,
		Remaining:  int(remaining),
		ResetAfter: time.Duration(ttlMillis) * time.Millisecond,
	}
}
