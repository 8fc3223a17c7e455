// Package ratelimit implements a Redis-backed fixed-window limiter.
//
// A nil client disables limiting: every call is allowed. The login route
// stays available when Redis is not configured.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrScript atomically bumps the window counter and sets its expiry on the
// first hit. Returns {count, ttl_ms}.
const incrScript = `
local c = redis.call("INCR", KEYS[1])
if c == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {c, ttl}
`

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // zero when allowed
}

// FixedWindowLimiter counts hits per key in windows of fixed length.
type FixedWindowLimiter struct {
	rdb    *redis.Client
	script *redis.Script
	limit  int
	window time.Duration
}

// NewFixedWindowLimiter returns a limiter allowing limit hits per window.
// rdb may be nil. A window under one second falls back to one minute.
func NewFixedWindowLimiter(rdb *redis.Client, limit int, window time.Duration) *FixedWindowLimiter {
	if window < time.Second {
		window = time.Minute
	}
	return &FixedWindowLimiter{
		rdb:    rdb,
		script: redis.NewScript(incrScript),
		limit:  limit,
		window: window,
	}
}

// Window is the configured window length.
func (l *FixedWindowLimiter) Window() time.Duration { return l.window }

// Allow records one hit for key and reports whether it fits the limit.
// The caller owns the key namespace; the current window bucket is appended.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	if l.limit <= 0 || l.rdb == nil {
		return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit}, nil
	}

	bucket := time.Now().Unix() / int64(l.window/time.Second)
	fullKey := fmt.Sprintf("%s:%d", key, bucket)

	res, err := l.script.Run(ctx, l.rdb, []string{fullKey}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: eval: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("ratelimit: unexpected script result %v", res)
	}

	count, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond
	d := Decision{
		Allowed:   count <= l.limit,
		Limit:     l.limit,
		Remaining: max(0, l.limit-count),
	}
	if !d.Allowed {
		d.RetryAfter = ttl
		if d.RetryAfter <= 0 {
			d.RetryAfter = l.window
		}
	}
	return d, nil
}
