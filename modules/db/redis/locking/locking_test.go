package locking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/rueidis/rueidislock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memLocker hands out one in-process lock per name.
type memLocker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func newMemLocker() *memLocker {
	return &memLocker{held: map[string]chan struct{}{}}
}

func (m *memLocker) tryAcquire(ctx context.Context, name string) (context.Context, context.CancelFunc, chan struct{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if wait, ok := m.held[name]; ok {
		return nil, nil, wait, false
	}
	freed := make(chan struct{})
	m.held[name] = freed
	lockCtx, cancel := context.WithCancel(ctx)
	release := func() {
		cancel()
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.held[name] == freed {
			delete(m.held, name)
			close(freed)
		}
	}
	return lockCtx, release, nil, true
}

func (m *memLocker) TryWithContext(ctx context.Context, name string) (context.Context, context.CancelFunc, error) {
	lockCtx, release, _, ok := m.tryAcquire(ctx, name)
	if !ok {
		return nil, nil, rueidislock.ErrNotLocked
	}
	return lockCtx, release, nil
}

func (m *memLocker) WithContext(ctx context.Context, name string) (context.Context, context.CancelFunc, error) {
	for {
		lockCtx, release, wait, ok := m.tryAcquire(ctx, name)
		if ok {
			return lockCtx, release, nil
		}
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
}

func TestExecute_RunsTaskUnderLock(t *testing.T) {
	t.Parallel()
	locker := newMemLocker()
	exec := NewLockingTaskExecutor(locker, WithNamePrefix("dev:"))

	ran := false
	err := exec.Execute(context.Background(), LockConfiguration{Name: "seed"}, func(ctx context.Context) error {
		ran = true
		_, _, err := locker.TryWithContext(ctx, "dev:seed")
		assert.ErrorIs(t, err, rueidislock.ErrNotLocked, "lock must be held while the task runs")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	// released afterwards
	_, release, err := locker.TryWithContext(context.Background(), "dev:seed")
	require.NoError(t, err)
	release()
}

func TestExecute_SkipsWhenHeld(t *testing.T) {
	t.Parallel()
	locker := newMemLocker()
	_, release, err := locker.TryWithContext(context.Background(), "seed")
	require.NoError(t, err)
	defer release()

	err = NewLockingTaskExecutor(locker).Execute(context.Background(), LockConfiguration{Name: "seed"}, func(context.Context) error {
		t.Fatal("task must not run")
		return nil
	})
	assert.ErrorIs(t, err, ErrLockNotAcquired)
}

func TestExecute_WaitTimesOut(t *testing.T) {
	t.Parallel()
	locker := newMemLocker()
	_, release, err := locker.TryWithContext(context.Background(), "seed")
	require.NoError(t, err)
	defer release()

	exec := NewLockingTaskExecutor(locker, WithWaitForLock(true), WithAcquireTimeout(20*time.Millisecond))
	err = exec.Execute(context.Background(), LockConfiguration{Name: "seed"}, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrLockNotAcquired)
}

func TestExecute_WaitKeepsLockContextAlive(t *testing.T) {
	t.Parallel()
	exec := NewLockingTaskExecutor(newMemLocker(), WithWaitForLock(true), WithAcquireTimeout(10*time.Millisecond))

	err := exec.Execute(context.Background(), LockConfiguration{Name: "seed"}, func(ctx context.Context) error {
		time.Sleep(30 * time.Millisecond)
		return ctx.Err()
	})
	assert.NoError(t, err)
}

func TestExecute_TaskErrorAndTimeout(t *testing.T) {
	t.Parallel()
	exec := NewLockingTaskExecutor(newMemLocker())

	boom := errors.New("boom")
	err := exec.Execute(context.Background(), LockConfiguration{Name: "a"}, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	err = exec.Execute(context.Background(), LockConfiguration{Name: "b", LockAtMostFor: 10 * time.Millisecond},
		func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecute_InvalidConfiguration(t *testing.T) {
	t.Parallel()
	exec := NewLockingTaskExecutor(newMemLocker())
	noop := func(context.Context) error { return nil }

	for _, cfg := range []LockConfiguration{
		{},
		{Name: "x", LockAtMostFor: -time.Second},
		{Name: "x", LockAtMostFor: time.Second, LockAtLeastFor: time.Minute},
	} {
		assert.ErrorIs(t, exec.Execute(context.Background(), cfg, noop), ErrInvalidConfiguration)
	}
	assert.ErrorIs(t, exec.Execute(context.Background(), LockConfiguration{Name: "x"}, nil), ErrInvalidConfiguration)
}
