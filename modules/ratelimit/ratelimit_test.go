package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"cruddemo/modules/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newMemCounter() *memCounter {
	return &memCounter{counts: map[string]int64{}}
}

func (m *memCounter) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key], nil
}

func (m *memCounter) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestSlidingWindow_LimitsWithinWindow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := clock.NewManual(epoch)
	limiter := SlidingWindowFactory(clk, newMemCounter(), "test")(3, time.Minute)

	for i := range 3 {
		res, err := limiter.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, int64(2-i), res.Remaining)
		assert.Equal(t, int64(3), res.Limit)
	}

	res, err := limiter.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Zero(t, res.Remaining)
	assert.Equal(t, time.Minute, res.RetryAfter)

	other, err := limiter.Allow(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "keys are limited independently")
}

func TestSlidingWindow_PreviousWindowFadesOut(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := clock.NewManual(epoch)
	limiter := SlidingWindowFactory(clk, newMemCounter(), "test")(2, time.Minute)

	for range 2 {
		_, err := limiter.Allow(ctx, "k")
		require.NoError(t, err)
	}

	// a quarter into the next window the previous one still weighs 3/4
	clk.Advance(time.Minute + 15*time.Second)
	res, err := limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 45*time.Second, res.RetryAfter)

	// two windows later nothing is left
	clk.Advance(2 * time.Minute)
	res, err = limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(1), res.Remaining)
}

func TestSlidingWindow_ZeroWindowDisablesLimit(t *testing.T) {
	t.Parallel()
	limiter := SlidingWindowFactory(clock.NewManual(epoch), newMemCounter(), "test")(1, 0)

	for range 5 {
		res, err := limiter.Allow(context.Background(), "k")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
}

func TestTokenBucket_RefillsOverTime(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := clock.NewManual(epoch)
	limiter := TokenBucketFactory(clk)(3, time.Minute)

	for i := range 3 {
		res, err := limiter.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, int64(2-i), res.Remaining)
	}

	res, err := limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.InDelta(t, float64(20*time.Second), float64(res.RetryAfter), float64(time.Millisecond))

	clk.Advance(21 * time.Second)
	res, err = limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestTokenBucket_Bounds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := clock.NewManual(epoch)

	deny := NewTokenBucketRateLimiter(clk, 0, time.Minute)
	res, err := deny.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	unlimited := NewTokenBucketRateLimiter(clk, 1, 0)
	for range 10 {
		res, err := unlimited.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
}
