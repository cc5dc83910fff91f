package student

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"cruddemo/core/crud/domain"
	"cruddemo/modules/db/redis/locking"
	"cruddemo/modules/worker"
)

// DemoStudents are inserted by Seed.
var DemoStudents = []Student{
	{FirstName: "Paul", LastName: "Doe", Email: "paul@luv2code.com"},
	{FirstName: "Jack", LastName: "Nelson", Email: "jackN@luv2code.com"},
	{FirstName: "Kevin", LastName: "Zorr", Email: "KevinZ@luv2code.com"},
	{FirstName: "Zefer", LastName: "Locks", Email: "ZeferL@luv2code.com"},
	{FirstName: "Daffy", LastName: "Duck", Email: "daffy@luv2code.com"},
}

const seedWorkers = 4

// Seeder inserts the demo students once at startup.
type Seeder struct {
	app      *domain.Application[Student]
	executor *locking.LockingTaskExecutor
}

type SeederOption func(*Seeder)

// WithLock runs the seed under a distributed lock so only one replica seeds.
func WithLock(executor *locking.LockingTaskExecutor) SeederOption {
	return func(s *Seeder) { s.executor = executor }
}

func NewSeeder(app *domain.Application[Student], opts ...SeederOption) *Seeder {
	s := &Seeder{app: app}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run seeds the students unless some already exist. Seeding is best-effort:
// failed inserts are logged, and losing the lock to another replica is not an
// error. Only a failing lookup or a cancelled context is returned.
func (s *Seeder) Run(ctx context.Context) error {
	if s.executor == nil {
		return s.seed(ctx)
	}
	err := s.executor.Execute(ctx, locking.LockConfiguration{
		Name:           "seed-students",
		LockAtMostFor:  time.Minute,
		LockAtLeastFor: 5 * time.Second,
	}, s.seed)
	if errors.Is(err, locking.ErrLockNotAcquired) {
		slog.InfoContext(ctx, "students seeded elsewhere")
		return nil
	}
	return err
}

func (s *Seeder) seed(ctx context.Context) error {
	existing, err := s.app.List(ctx, domain.Filter{})
	if err != nil {
		return fmt.Errorf("student seed: %w", err)
	}
	if len(existing) > 0 {
		slog.InfoContext(ctx, "students already present, skipping seed", slog.Int("count", len(existing)))
		return nil
	}

	jobs := make(chan Student, len(DemoStudents))
	for _, st := range DemoStudents {
		jobs <- st
	}
	close(jobs)

	var failed atomic.Int32
	worker.BlockingPool(ctx, seedWorkers, jobs, func(ctx context.Context, st Student) {
		saved, err := s.app.Create(ctx, st)
		if err != nil {
			failed.Add(1)
			slog.ErrorContext(ctx, "seeding student failed", slog.String("lastName", st.LastName), slog.Any("error", err))
			return
		}
		slog.InfoContext(ctx, "saved student", slog.String("student", saved.String()))
	})

	if n := failed.Load(); n > 0 {
		slog.WarnContext(ctx, "student seed incomplete",
			slog.Int("failed", int(n)), slog.Int("total", len(DemoStudents)))
	}
	return ctx.Err()
}
