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
	"time"

	"github.com/stephenafamo/bob"
)

type (
	TxFn func(ctx context.Context, q Querier) error

	// Querier is satisfied by bob.DB and bob.Tx alike.
	Querier interface {
		bob.Executor
	}

	// ConnectionPool is an OLTP SQL connection pool with optional read replicas.
	ConnectionPool interface {
		HealthManager
		ConnectionManager
		MigrationManager
		TxManager

		Shutdown(context.Context) error
	}

	HealthManager interface {
		HealthCheck() error
	}

	ConnectionManager interface {
		// Writer returns the primary.
		Writer() Querier

		ReaderConnectionManager
	}

	ReaderConnectionManager interface {
		// Reader returns a replica, falling back to the primary when none is configured.
		Reader() Querier
	}

	MigrationManager interface {
		GenerateMigration(name string) error
		MigrateUp() error
		MigrateDown() error
	}

	TxManager interface {
		WithTx(ctx context.Context, fn TxFn) error
		WithTimeoutTx(ctx context.Context, timeout time.Duration, fn TxFn) error
	}

	// KV is a byte-oriented key/value store. A missing key reads as (nil, nil).
	KV interface {
		AtomicGet(context.Context, string) (any, error)
		AtomicSet(context.Context, string, any) (any, error)
		Delete(context.Context, string) error
	}
)
