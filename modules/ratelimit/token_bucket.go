package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"cruddemo/modules/clock"

	"golang.org/x/time/rate"
)

var _ RateLimiter = (*TokenBucketRateLimiter)(nil)

// TokenBucketRateLimiter is the in-process backend: one x/time/rate bucket per
// key, refilled at limit/window and holding at most limit tokens. Counts are
// not shared between replicas.
type TokenBucketRateLimiter struct {
	clock   clock.Clock
	limit   int64
	window  time.Duration
	every   rate.Limit
	buckets sync.Map // Key -> *rate.Limiter
}

func TokenBucketFactory(c clock.Clock) LimiterFactory {
	return func(limit int64, window time.Duration) RateLimiter {
		return NewTokenBucketRateLimiter(c, limit, window)
	}
}

func NewTokenBucketRateLimiter(c clock.Clock, limit int64, window time.Duration) *TokenBucketRateLimiter {
	var every rate.Limit
	switch {
	case limit <= 0:
		every = 0
	case window <= 0:
		every = rate.Inf
	default:
		every = rate.Limit(float64(limit) / window.Seconds())
	}
	return &TokenBucketRateLimiter{
		clock:  c,
		limit:  max(limit, 0),
		window: window,
		every:  every,
	}
}

func (t *TokenBucketRateLimiter) bucket(key Key) *rate.Limiter {
	if b, ok := t.buckets.Load(key); ok {
		return b.(*rate.Limiter)
	}
	b, _ := t.buckets.LoadOrStore(key, rate.NewLimiter(t.every, int(min(t.limit, math.MaxInt32))))
	return b.(*rate.Limiter)
}

func (t *TokenBucketRateLimiter) Allow(_ context.Context, key Key) (Result, error) {
	now := t.clock.Now()
	b := t.bucket(key)
	allowed := b.AllowN(now, 1)
	tokens := b.TokensAt(now)

	res := Result{
		Allowed:   allowed,
		Remaining: max(int64(math.Floor(tokens)), 0),
		Limit:     t.limit,
		Window:    t.window,
	}
	if t.every != rate.Inf && t.every > 0 {
		missing := float64(t.limit) - tokens
		res.WindowResetIn = time.Duration(missing / float64(t.every) * float64(time.Second))
		if !allowed {
			res.RetryAfter = time.Duration((1 - tokens) / float64(t.every) * float64(time.Second))
		}
	}
	return res, nil
}
