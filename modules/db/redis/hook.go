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

package redis

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/rueidishook"
)

var _ rueidishook.Hook = slogHook{}

// slogHook logs command names and latency at debug level. Arguments are never
// logged since cached entities may carry personal data.
type slogHook struct{}

func commandName(cmd rueidis.Completed) string {
	parts := cmd.Commands()
	if len(parts) == 0 {
		return ""
	}
	return strings.ToUpper(parts[0])
}

func (slogHook) Do(client rueidis.Client, ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	start := time.Now()
	resp := client.Do(ctx, cmd)
	slog.DebugContext(ctx, "redis command",
		slog.String("command", commandName(cmd)),
		slog.Duration("latency", time.Since(start)),
		slog.Any("error", resp.Error()),
	)
	return resp
}

func (slogHook) DoMulti(client rueidis.Client, ctx context.Context, multi ...rueidis.Completed) []rueidis.RedisResult {
	start := time.Now()
	resps := client.DoMulti(ctx, multi...)
	slog.DebugContext(ctx, "redis pipeline",
		slog.Int("commands", len(multi)),
		slog.Duration("latency", time.Since(start)),
	)
	return resps
}

func (slogHook) DoCache(client rueidis.Client, ctx context.Context, cmd rueidis.Cacheable, ttl time.Duration) rueidis.RedisResult {
	resp := client.DoCache(ctx, cmd, ttl)
	slog.DebugContext(ctx, "redis cached command",
		slog.Bool("cache_hit", resp.IsCacheHit()),
		slog.Any("error", resp.Error()),
	)
	return resp
}

func (slogHook) DoMultiCache(client rueidis.Client, ctx context.Context, multi ...rueidis.CacheableTTL) []rueidis.RedisResult {
	return client.DoMultiCache(ctx, multi...)
}

func (slogHook) Receive(client rueidis.Client, ctx context.Context, subscribe rueidis.Completed, fn func(msg rueidis.PubSubMessage)) error {
	return client.Receive(ctx, subscribe, fn)
}

func (slogHook) DoStream(client rueidis.Client, ctx context.Context, cmd rueidis.Completed) rueidis.RedisResultStream {
	return client.DoStream(ctx, cmd)
}

func (slogHook) DoMultiStream(client rueidis.Client, ctx context.Context, multi ...rueidis.Completed) rueidis.MultiRedisResultStream {
	return client.DoMultiStream(ctx, multi...)
}
