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
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cruddemo/modules/db"

	"github.com/redis/rueidis"
)

var (
	_ db.KV = (*RedisKV)(nil)

	//go:embed atomic_set.lua
	atomicSetLua string

	// KEYS[1] key, ARGV[1] value, ARGV[2] ttl seconds (empty means no expiry).
	// Returns the previous value or nil.
	luaAtomicSet = rueidis.NewLuaScript(atomicSetLua)
)

// RedisKV implements db.KV on top of a shared rueidis.Client. Keys are scoped
// under an optional prefix so the employee and student caches never collide.
type RedisKV struct {
	client     rueidis.Client
	prefix     string
	defaultTTL time.Duration

	// reads go through DoCache when set; requires client tracking on the prefix
	clientCache bool
}

type RedisKVOption func(*RedisKV)

// WithKeyPrefix scopes keys, e.g. "cruddemo:employee" stores "42" as "cruddemo:employee:42".
func WithKeyPrefix(prefix string) RedisKVOption {
	return func(k *RedisKV) {
		prefix = strings.TrimSpace(prefix)
		if prefix != "" && !strings.HasSuffix(prefix, ":") {
			prefix += ":"
		}
		k.prefix = prefix
	}
}

// WithDefaultTTL sets the expiry applied on every AtomicSet. Zero disables expiry.
func WithDefaultTTL(ttl time.Duration) RedisKVOption {
	return func(k *RedisKV) { k.defaultTTL = ttl }
}

func WithClientSideCache() RedisKVOption {
	return func(k *RedisKV) { k.clientCache = true }
}

func NewRedisKV(client rueidis.Client, opts ...RedisKVOption) *RedisKV {
	kv := &RedisKV{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(kv)
		}
	}
	return kv
}

func (k *RedisKV) key(raw string) string {
	return k.prefix + raw
}

// AtomicGet returns the stored bytes, or (nil, nil) when the key is absent.
func (k *RedisKV) AtomicGet(ctx context.Context, key string) (any, error) {
	full := k.key(key)

	var res rueidis.RedisResult
	if k.clientCache && k.defaultTTL > 0 {
		res = k.client.DoCache(ctx, k.client.B().Get().Key(full).Cache(), k.defaultTTL)
	} else {
		res = k.client.Do(ctx, k.client.B().Get().Key(full).Build())
	}

	bs, err := res.AsBytes()
	if rueidis.IsRedisNil(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis kv: get %q: %w", key, err)
	}
	return bs, nil
}

// AtomicSet stores value and returns the previous bytes in a single script call.
func (k *RedisKV) AtomicSet(ctx context.Context, key string, value any) (any, error) {
	serialized, err := encodeValue(value)
	if err != nil {
		return nil, fmt.Errorf("redis kv: encode %q: %w", key, err)
	}

	ttlArg := ""
	if k.defaultTTL > 0 {
		ttlArg = strconv.FormatInt(max(int64(k.defaultTTL/time.Second), 1), 10)
	}

	res := luaAtomicSet.Exec(ctx, k.client, []string{k.key(key)}, []string{serialized, ttlArg})
	bs, err := res.AsBytes()
	if rueidis.IsRedisNil(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis kv: set %q: %w", key, err)
	}
	return bs, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (k *RedisKV) Delete(ctx context.Context, key string) error {
	err := k.client.Do(ctx, k.client.B().Del().Key(k.key(key)).Build()).Error()
	if err != nil {
		return fmt.Errorf("redis kv: delete %q: %w", key, err)
	}
	return nil
}

func (k *RedisKV) HealthCheck(ctx context.Context) error {
	return k.client.Do(ctx, k.client.B().Ping().Build()).Error()
}

func encodeValue(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", errors.New("nil value")
	case string:
		return x, nil
	case []byte:
		return rueidis.BinaryString(x), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return rueidis.BinaryString(b), nil
	}
}
