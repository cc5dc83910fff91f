package ratelimit

import (
	"context"
	"time"
)

// CounterStore holds the per-window request counts of the sliding window limiter.
type CounterStore interface {
	// Incr increments key and returns the new value. The store keeps key for at least ttl.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Get returns the counter at key, or 0 when missing.
	Get(ctx context.Context, key string) (int64, error)
}
