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

package worker

import (
	"context"
	"log/slog"
	"sync"
)

type Worker[Job any] func(context.Context, Job)

// BlockingPool runs size workers over jobs and returns once jobs is closed
// and drained, or ctx is cancelled. The caller must eventually do one of the two.
//
// Use it when the number of jobs is unbounded or large enough that one
// goroutine per job would saturate the database or the network; for a handful
// of latency-sensitive tasks plain goroutines are simpler.
func BlockingPool[Job any](ctx context.Context, size int, jobs <-chan Job, worker Worker[Job]) {
	if size <= 0 {
		size = 1
	}
	var wg sync.WaitGroup
	for range size {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-jobs:
					if !ok {
						return
					}
					run(ctx, worker, job)
				}
			}
		})
	}
	wg.Wait()
}

// run keeps a panicking job from taking its worker down with it.
func run[Job any](ctx context.Context, worker Worker[Job], job Job) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.ErrorContext(ctx, "worker job panicked", slog.Any("error", rec))
		}
	}()
	worker(ctx, job)
}
