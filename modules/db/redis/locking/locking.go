// Copyright 2025 Nhat-Nguyen Nguyen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package locking runs one-off or scheduled tasks under a rueidislock lock so
// that at most one replica executes them at a time.
package locking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cruddemo/modules/clock"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/rueidislock"
)

type TaskFunc func(ctx context.Context) error

// LockConfiguration describes a task lock.
//
// LockAtMostFor bounds the task context. LockAtLeastFor keeps the lock held
// after an early return so that other replicas do not rerun the task right away.
type LockConfiguration struct {
	Name           string
	LockAtMostFor  time.Duration
	LockAtLeastFor time.Duration
}

var (
	ErrLockNotAcquired      = errors.New("locking: lock not acquired")
	ErrInvalidConfiguration = errors.New("locking: invalid lock configuration")
)

// Locker is the subset of rueidislock.Locker used by the executor.
type Locker interface {
	WithContext(ctx context.Context, name string) (context.Context, context.CancelFunc, error)
	TryWithContext(ctx context.Context, name string) (context.Context, context.CancelFunc, error)
}

// NewLocker builds a single-key-majority rueidislock.Locker from an already
// parsed rueidis client option.
func NewLocker(opt rueidis.ClientOption) (rueidislock.Locker, error) {
	return rueidislock.NewLocker(rueidislock.LockerOption{
		ClientOption: opt,
		KeyMajority:  1,
	})
}

type LockingTaskExecutor struct {
	locker Locker
	clock  clock.Clock

	waitForLock    bool
	acquireTimeout time.Duration
	namePrefix     string
}

type Option func(*LockingTaskExecutor)

// WithWaitForLock makes Execute block until the lock is free instead of
// returning ErrLockNotAcquired.
func WithWaitForLock(wait bool) Option {
	return func(e *LockingTaskExecutor) { e.waitForLock = wait }
}

func WithAcquireTimeout(d time.Duration) Option {
	return func(e *LockingTaskExecutor) { e.acquireTimeout = d }
}

func WithNamePrefix(prefix string) Option {
	return func(e *LockingTaskExecutor) { e.namePrefix = prefix }
}

func WithClock(c clock.Clock) Option {
	return func(e *LockingTaskExecutor) {
		if c != nil {
			e.clock = c
		}
	}
}

func NewLockingTaskExecutor(locker Locker, opts ...Option) *LockingTaskExecutor {
	e := &LockingTaskExecutor{
		locker: locker,
		clock:  clock.RealClockProvider(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Execute acquires the lock named by cfg and runs task while holding it.
// The lock is released when Execute returns, including when task fails.
func (e *LockingTaskExecutor) Execute(ctx context.Context, cfg LockConfiguration, task TaskFunc) error {
	if task == nil {
		return fmt.Errorf("%w: nil task", ErrInvalidConfiguration)
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	name := e.namePrefix + cfg.Name
	lockCtx, release, err := e.acquire(ctx, name)
	if err != nil {
		return err
	}
	defer release()

	slog.InfoContext(ctx, "lock acquired", slog.String("lock", name))

	var (
		taskCtx context.Context
		cancel  context.CancelFunc
	)
	if cfg.LockAtMostFor > 0 {
		taskCtx, cancel = context.WithTimeout(lockCtx, cfg.LockAtMostFor)
	} else {
		taskCtx, cancel = context.WithCancel(lockCtx)
	}
	defer cancel()

	start := e.clock.Now()
	err = task(taskCtx)
	slog.InfoContext(ctx, "locked task finished",
		slog.String("lock", name),
		slog.Duration("duration", e.clock.Now().Sub(start)),
		slog.Any("error", err),
	)

	if hold := start.Add(cfg.LockAtLeastFor).Sub(e.clock.Now()); cfg.LockAtLeastFor > 0 && hold > 0 {
		timer := time.NewTimer(hold)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		case <-lockCtx.Done():
		}
	}

	return err
}

func (e *LockingTaskExecutor) acquire(ctx context.Context, name string) (context.Context, context.CancelFunc, error) {
	if !e.waitForLock {
		lockCtx, release, err := e.locker.TryWithContext(ctx, name)
		switch {
		case errors.Is(err, rueidislock.ErrNotLocked):
			slog.InfoContext(ctx, "lock held by another replica", slog.String("lock", name))
			return nil, nil, ErrLockNotAcquired
		case err != nil:
			return nil, nil, fmt.Errorf("locking: try acquire %q: %w", name, err)
		}
		return lockCtx, release, nil
	}

	if e.acquireTimeout <= 0 {
		lockCtx, release, err := e.locker.WithContext(ctx, name)
		if err != nil {
			return nil, nil, fmt.Errorf("locking: acquire %q: %w", name, err)
		}
		return lockCtx, release, nil
	}

	// the lock context descends from acquireCtx, so the timeout must not
	// outlive a successful acquisition
	acquireCtx, cancel := context.WithCancel(ctx)
	timer := time.AfterFunc(e.acquireTimeout, cancel)
	lockCtx, release, err := e.locker.WithContext(acquireCtx, name)
	expired := !timer.Stop()
	switch {
	case err == nil && !expired:
		return lockCtx, func() { release(); cancel() }, nil
	case err == nil:
		release()
	}
	cancel()
	if expired {
		slog.InfoContext(ctx, "lock wait timed out", slog.String("lock", name))
		return nil, nil, ErrLockNotAcquired
	}
	return nil, nil, fmt.Errorf("locking: acquire %q: %w", name, err)
}

func validateConfig(cfg LockConfiguration) error {
	switch {
	case cfg.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidConfiguration)
	case cfg.LockAtMostFor < 0 || cfg.LockAtLeastFor < 0:
		return fmt.Errorf("%w: negative duration", ErrInvalidConfiguration)
	case cfg.LockAtMostFor > 0 && cfg.LockAtLeastFor > cfg.LockAtMostFor:
		return fmt.Errorf("%w: lockAtLeastFor %s exceeds lockAtMostFor %s",
			ErrInvalidConfiguration, cfg.LockAtLeastFor, cfg.LockAtMostFor)
	}
	return nil
}
