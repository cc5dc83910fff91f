package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBlockingPool_DrainsAllJobs(t *testing.T) {
	t.Parallel()

	jobs := make(chan int, 100)
	for i := range 100 {
		jobs <- i
	}
	close(jobs)

	var sum atomic.Int64
	BlockingPool(context.Background(), 4, jobs, func(_ context.Context, n int) {
		sum.Add(int64(n))
	})

	assert.Equal(t, int64(4950), sum.Load())
}

func TestBlockingPool_SurvivesPanickingJob(t *testing.T) {
	t.Parallel()

	jobs := make(chan int, 3)
	jobs <- 1
	jobs <- 2
	jobs <- 3
	close(jobs)

	var done atomic.Int32
	BlockingPool(context.Background(), 1, jobs, func(_ context.Context, n int) {
		if n == 2 {
			panic("boom")
		}
		done.Add(1)
	})

	assert.Equal(t, int32(2), done.Load())
}

func TestBlockingPool_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	jobs := make(chan int) // never closed

	finished := make(chan struct{})
	go func() {
		BlockingPool(ctx, 2, jobs, func(context.Context, int) {})
		close(finished)
	}()

	cancel()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not stop after cancel")
	}
}

func TestBlockingPool_NonPositiveSizeRunsOneWorker(t *testing.T) {
	t.Parallel()

	jobs := make(chan int, 1)
	jobs <- 7
	close(jobs)

	var got atomic.Int64
	BlockingPool(context.Background(), 0, jobs, func(_ context.Context, n int) { got.Store(int64(n)) })
	assert.Equal(t, int64(7), got.Load())
}
