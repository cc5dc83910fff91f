// Package memdb is an in-process Repository backed by hashicorp/go-memdb.
package memdb

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync/atomic"

	"cruddemo/core/crud/domain"

	"github.com/hashicorp/go-memdb"
)

const idIndex = "id"

// Schema names the struct fields the repository indexes.
type Schema struct {
	Table string
	// IDField is the name of the int struct field holding the primary key.
	IDField string
	// Attributes maps filterable JSON attribute names to string struct fields.
	Attributes map[string]string
}

type Repository[T domain.Entity[T]] struct {
	db     *memdb.MemDB
	table  string
	attrs  map[string]string
	lastID atomic.Int64
}

func NewRepository[T domain.Entity[T]](s Schema) (*Repository[T], error) {
	indexes := map[string]*memdb.IndexSchema{
		idIndex: {
			Name:    idIndex,
			Unique:  true,
			Indexer: &memdb.IntFieldIndex{Field: s.IDField},
		},
	}
	for attr, field := range s.Attributes {
		indexes[attr] = &memdb.IndexSchema{
			Name:         attr,
			AllowMissing: true,
			Indexer:      &memdb.StringFieldIndex{Field: field},
		}
	}

	db, err := memdb.NewMemDB(&memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			s.Table: {Name: s.Table, Indexes: indexes},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("memdb %s: %w", s.Table, err)
	}
	return &Repository[T]{db: db, table: s.Table, attrs: s.Attributes}, nil
}

func (r *Repository[T]) FindAll(_ context.Context) ([]T, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(r.table, idIndex)
	if err != nil {
		return nil, err
	}
	return collect[T](it), nil
}

func (r *Repository[T]) FindByID(_ context.Context, id int) (T, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()
	return r.first(txn, id)
}

func (r *Repository[T]) FindAllBy(_ context.Context, attribute string, value string) ([]T, error) {
	if _, ok := r.attrs[attribute]; !ok {
		return nil, fmt.Errorf("%s has no filterable attribute %q: %w", r.table, attribute, domain.ErrUnsupported)
	}
	txn := r.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(r.table, attribute, value)
	if err != nil {
		return nil, err
	}
	return collect[T](it), nil
}

func (r *Repository[T]) Save(_ context.Context, entity T) (T, error) {
	var zero T
	txn := r.db.Txn(true)
	defer txn.Abort()

	if entity.PrimaryKey() == 0 {
		entity = entity.WithPrimaryKey(int(r.lastID.Add(1)))
	} else if _, err := r.first(txn, entity.PrimaryKey()); err != nil {
		return zero, err
	}

	if err := txn.Insert(r.table, entity); err != nil {
		return zero, fmt.Errorf("memdb %s: insert: %w", r.table, err)
	}
	txn.Commit()
	return entity, nil
}

func (r *Repository[T]) DeleteByID(_ context.Context, id int) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	existing, err := r.first(txn, id)
	if err != nil {
		return err
	}
	if err := txn.Delete(r.table, existing); err != nil {
		return fmt.Errorf("memdb %s: delete: %w", r.table, err)
	}
	txn.Commit()
	return nil
}

func (r *Repository[T]) first(txn *memdb.Txn, id int) (T, error) {
	var zero T
	raw, err := txn.First(r.table, idIndex, id)
	if err != nil {
		return zero, fmt.Errorf("memdb %s: lookup %d: %w", r.table, id, err)
	}
	if raw == nil {
		return zero, domain.ErrNotFound
	}
	return raw.(T), nil
}

// collect drains it sorted by key; the id index is not ordered numerically.
func collect[T domain.Entity[T]](it memdb.ResultIterator) []T {
	out := []T{}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, raw.(T))
	}
	slices.SortFunc(out, func(a, b T) int {
		return cmp.Compare(a.PrimaryKey(), b.PrimaryKey())
	})
	return out
}
