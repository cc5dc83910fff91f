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

package ratelimit

import (
	"context"
	"fmt"
	"math/bits"
	"time"

	"cruddemo/modules/clock"
)

var _ RateLimiter = (*SlidingWindowRateLimiter)(nil)

// SlidingWindowRateLimiter approximates a sliding window with two adjacent
// fixed windows, weighting the previous window by how much of it still
// overlaps the sliding one. Counts live in a CounterStore so replicas share them.
type SlidingWindowRateLimiter struct {
	clock     clock.Clock
	counter   CounterStore
	keyPrefix string

	limit  uint64
	window time.Duration
}

func SlidingWindowFactory(c clock.Clock, counter CounterStore, keyPrefix string) LimiterFactory {
	return func(limit int64, window time.Duration) RateLimiter {
		return &SlidingWindowRateLimiter{
			clock:     c,
			counter:   counter,
			keyPrefix: keyPrefix,
			limit:     uint64(max(limit, 0)),
			window:    window,
		}
	}
}

// Allow counts the request against key. A non-positive window disables the limit.
func (s *SlidingWindowRateLimiter) Allow(ctx context.Context, key Key) (Result, error) {
	if s.window <= 0 {
		return Result{Allowed: true, Remaining: int64(s.limit), Limit: int64(s.limit)}, nil
	}
	nowNs := s.clock.Now().UnixNano()
	windowNs := s.window.Nanoseconds()
	idx := nowNs / windowNs

	cur, err := s.counter.Incr(ctx, s.windowKey(key, idx), s.window*2)
	if err != nil {
		return Result{}, err
	}
	prev, err := s.counter.Get(ctx, s.windowKey(key, idx-1))
	if err != nil {
		return Result{}, err
	}
	cur, prev = max(cur, 0), max(prev, 0)

	elapsed := min(max(nowNs-idx*windowNs, 0), windowNs)
	prevWeight := uint64(windowNs - elapsed)
	resetIn := max(s.window-time.Duration(elapsed), 0)
	w := uint64(windowNs)

	// usage = cur*window + prev*prevWeight, kept in 128 bits so that two
	// consecutive requests never round to the same remaining count
	curHi, curLo := bits.Mul64(uint64(cur), w)
	prevHi, prevLo := bits.Mul64(uint64(prev), prevWeight)
	usageLo, carry := bits.Add64(curLo, prevLo, 0)
	usageHi, _ := bits.Add64(curHi, prevHi, carry)

	limitHi, limitLo := bits.Mul64(s.limit, w)
	allowed := usageHi < limitHi || (usageHi == limitHi && usageLo <= limitLo)

	used := ^uint64(0)
	switch {
	case usageHi == 0:
		used = (usageLo + w - 1) / w
	case usageHi < w:
		q, r := bits.Div64(usageHi, usageLo, w)
		used = q
		if r != 0 && used != ^uint64(0) {
			used++
		}
	}

	var remaining uint64
	if used < s.limit {
		remaining = s.limit - used
	}

	res := Result{
		Allowed:       allowed,
		Remaining:     int64(remaining),
		Limit:         int64(s.limit),
		Window:        s.window,
		WindowResetIn: resetIn,
	}
	if !allowed {
		res.RetryAfter = resetIn
	}
	return res, nil
}

func (s *SlidingWindowRateLimiter) windowKey(key Key, idx int64) string {
	return fmt.Sprintf("%s:%s:%d", s.keyPrefix, key, idx)
}
