// Package ratelimit implements sliding window rate limiting on a Redis
// sorted set. The HTTP layers wrap it with their own key naming and
// transport-specific responses.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter counts hits per key inside a sliding time window.
type Limiter struct {
	redis       redis.UniversalClient
	maxRequests int           // Maximum requests allowed
	window      time.Duration // Time window
}

// Result describes one admission decision.
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// New creates a limiter allowing maxRequests per window.
func New(rdb redis.UniversalClient, maxRequests int, window time.Duration) *Limiter {
	return &Limiter{
		redis:       rdb,
		maxRequests: maxRequests,
		window:      window,
	}
}

// Max returns the request budget per window.
func (l *Limiter) Max() int {
	return l.maxRequests
}

// Allow records a hit under the key and reports whether it fits the
// budget. Callers decide what to do when Redis is unreachable.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	now := time.Now()
	windowStart := now.Add(-l.window)

	pipe := l.redis.Pipeline()

	// Remove old entries outside the window
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart.UnixNano()))

	// Count requests in current window
	countCmd := pipe.ZCard(ctx, key)

	// Add current request
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: now.UnixNano(),
	})

	// Set expiration
	pipe.Expire(ctx, key, l.window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	count := countCmd.Val()

	remaining := l.maxRequests - int(count) - 1
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count < int64(l.maxRequests),
		Remaining: remaining,
		Reset:     now.Add(l.window),
	}, nil
}
