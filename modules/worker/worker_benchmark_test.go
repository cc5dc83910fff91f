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
	"crypto/sha256"
	"fmt"
	"testing"
)

func Benchmark_BlockingPool_SHA256(b *testing.B) {
	payload := make([]byte, 1024)
	hash := func(_ context.Context, p []byte) { _ = sha256.Sum256(p) }

	for _, size := range []int{1, 4, 16, 64} {
		b.Run(fmt.Sprintf("pool_size=%d", size), func(b *testing.B) {
			b.SetBytes(int64(len(payload)))
			b.ReportAllocs()

			jobs := make(chan []byte, 1024)
			go func(n int) {
				for range n {
					jobs <- payload
				}
				close(jobs)
			}(b.N)

			BlockingPool(context.Background(), size, jobs, hash)
		})
	}
}
