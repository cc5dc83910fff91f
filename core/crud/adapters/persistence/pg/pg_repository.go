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

package pg

import (
	"context"
	"fmt"
	"time"

	"cruddemo/core/crud/domain"
	"cruddemo/modules/db"

	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/stephenafamo/scan"
)

const writeTimeout = time.Second

// Repository stores entities of type T in a postgres table.
//
// Reads are built per call and sent to pool.Reader() so they spread over the
// replicas. Writes use statements prepared once on the primary and run inside
// a short transaction.
type Repository[T domain.Entity[T]] struct {
	table  Table
	reader db.ReaderConnectionManager
	txm    db.TxManager

	insertStmt bob.QueryStmt[T, T, []T]
	updateStmt bob.QueryStmt[T, T, []T]
	deleteStmt bob.QueryStmt[idArg, int, []int]
}

var (
	_ domain.Repository[fakeEntity]      = (*Repository[fakeEntity])(nil)
	_ domain.AttributeFinder[fakeEntity] = (*Repository[fakeEntity])(nil)
)

type fakeEntity struct{ ID int }

func (f fakeEntity) PrimaryKey() int                 { return f.ID }
func (f fakeEntity) WithPrimaryKey(id int) fakeEntity { f.ID = id; return f }

func NewRepository[T domain.Entity[T]](ctx context.Context, pool db.ConnectionPool, table Table) (*Repository[T], error) {
	primary, ok := pool.Writer().(bob.DB)
	if !ok {
		return nil, fmt.Errorf("pg repository %s: writer is %T, want bob.DB", table.Name, pool.Writer())
	}

	r := &Repository[T]{table: table, reader: pool, txm: pool}
	returning := im.Returning(table.selectColumns()...)

	values := make([]bob.Expression, len(table.Columns))
	for i, c := range table.Columns {
		values[i] = bob.Named(c)
	}
	insertQuery := psql.Insert(
		im.Into(table.Name, table.Columns...),
		im.Values(values...),
		returning,
	)
	var err error
	if r.insertStmt, err = bob.PrepareQuery[T](ctx, primary, insertQuery, scan.StructMapper[T]()); err != nil {
		return nil, fmt.Errorf("prepare insert %s: %w", table.Name, err)
	}

	updateQuery := psql.Update(
		um.Table(table.Name),
		um.Where(psql.Quote("id").EQ(bob.Named("id"))),
		um.Returning(table.selectColumns()...),
	)
	for _, c := range table.Columns {
		updateQuery.Apply(um.SetCol(c).To(bob.Named(c)))
	}
	if r.updateStmt, err = bob.PrepareQuery[T](ctx, primary, updateQuery, scan.StructMapper[T]()); err != nil {
		return nil, fmt.Errorf("prepare update %s: %w", table.Name, err)
	}

	deleteQuery := psql.Delete(
		dm.From(table.Name),
		dm.Where(psql.Quote("id").EQ(bob.Named("id"))),
		dm.Returning("id"),
	)
	if r.deleteStmt, err = bob.PrepareQuery[idArg](ctx, primary, deleteQuery, scan.SingleColumnMapper[int]); err != nil {
		return nil, fmt.Errorf("prepare delete %s: %w", table.Name, err)
	}

	return r, nil
}

func (r *Repository[T]) FindAll(ctx context.Context) ([]T, error) {
	query := psql.Select(
		sm.Columns(r.table.selectColumns()...),
		sm.From(r.table.Name),
		sm.OrderBy("id"),
	)
	rows, err := bob.All(ctx, r.reader.Reader(), query, scan.StructMapper[T]())
	return rows, wrapError(err)
}

func (r *Repository[T]) FindByID(ctx context.Context, id int) (T, error) {
	query := psql.Select(
		sm.Columns(r.table.selectColumns()...),
		sm.From(r.table.Name),
		sm.Where(psql.Quote("id").EQ(psql.Arg(id))),
	)
	row, err := bob.One(ctx, r.reader.Reader(), query, scan.StructMapper[T]())
	return row, wrapError(err)
}

func (r *Repository[T]) FindAllBy(ctx context.Context, attribute string, value string) ([]T, error) {
	col, ok := r.table.Attributes[attribute]
	if !ok {
		return nil, fmt.Errorf("%s has no filterable attribute %q: %w", r.table.Name, attribute, domain.ErrUnsupported)
	}
	query := psql.Select(
		sm.Columns(r.table.selectColumns()...),
		sm.From(r.table.Name),
		sm.Where(psql.Quote(col).EQ(psql.Arg(value))),
		sm.OrderBy("id"),
	)
	rows, err := bob.All(ctx, r.reader.Reader(), query, scan.StructMapper[T]())
	return rows, wrapError(err)
}

// Save inserts when entity has no key and updates otherwise.
func (r *Repository[T]) Save(ctx context.Context, entity T) (T, error) {
	var saved T
	err := r.txm.WithTimeoutTx(ctx, writeTimeout, func(ctx context.Context, q db.Querier) error {
		tx, ok := q.(bob.Tx)
		if !ok {
			return fmt.Errorf("querier is not a transaction")
		}
		stmt := r.updateStmt
		if entity.PrimaryKey() == 0 {
			stmt = r.insertStmt
		}
		var err error
		saved, err = inTxQueryStmt(ctx, stmt, tx).One(ctx, entity)
		return err
	})
	return saved, wrapError(err)
}

func (r *Repository[T]) DeleteByID(ctx context.Context, id int) error {
	return r.txm.WithTimeoutTx(ctx, writeTimeout, func(ctx context.Context, q db.Querier) error {
		tx, ok := q.(bob.Tx)
		if !ok {
			return fmt.Errorf("querier is not a transaction")
		}
		_, err := inTxQueryStmt(ctx, r.deleteStmt, tx).One(ctx, idArg{ID: id})
		return wrapError(err)
	})
}
