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

package db

import (
	"context"
	"encoding/json"
	"fmt"
)

// JSONKV is a typed view over a KV that stores values as JSON documents.
//
//	kv := redis.NewRedisKV(client, redis.WithKeyPrefix("cruddemo:employee"))
//	employees := db.NewJSONKV[employee.Employee](kv)
//	cur, _ := employees.Get(ctx, "42")
type JSONKV[T any] struct {
	KV
}

func NewJSONKV[T any](kv KV) JSONKV[T] {
	return JSONKV[T]{KV: kv}
}

// Get returns nil without error when key is absent.
func (j JSONKV[T]) Get(ctx context.Context, key string) (*T, error) {
	raw, err := j.AtomicGet(ctx, key)
	if err != nil {
		return nil, err
	}
	return decode[T](key, raw)
}

// Set stores value and returns the previous one, if any.
func (j JSONKV[T]) Set(ctx context.Context, key string, value T) (*T, error) {
	prev, err := j.AtomicSet(ctx, key, value)
	if err != nil {
		return nil, err
	}
	return decode[T](key, prev)
}

func decode[T any](key string, raw any) (*T, error) {
	if raw == nil {
		return nil, nil
	}
	bs, ok := raw.([]byte)
	if !ok {
		return nil, fmt.Errorf("jsonkv: %q holds %T, want []byte", key, raw)
	}
	var v T
	if err := json.Unmarshal(bs, &v); err != nil {
		return nil, fmt.Errorf("jsonkv: decode %q: %w", key, err)
	}
	return &v, nil
}
