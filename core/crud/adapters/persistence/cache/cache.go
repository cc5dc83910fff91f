// Package cache decorates a Repository with a read-through, write-through
// cache of single entities.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"cruddemo/core/crud/domain"
	"cruddemo/modules/db"
)

// Repository serves FindByID from kv when it can. Cache failures are logged
// and never fail the call; the wrapped repository stays the source of truth.
type Repository[T domain.Entity[T]] struct {
	next domain.Repository[T]
	kv   db.JSONKV[T]
}

func New[T domain.Entity[T]](next domain.Repository[T], kv db.KV) *Repository[T] {
	return &Repository[T]{next: next, kv: db.NewJSONKV[T](kv)}
}

func key(id int) string {
	return strconv.Itoa(id)
}

func (r *Repository[T]) FindAll(ctx context.Context) ([]T, error) {
	return r.next.FindAll(ctx)
}

func (r *Repository[T]) FindAllBy(ctx context.Context, attribute string, value string) ([]T, error) {
	finder, ok := r.next.(domain.AttributeFinder[T])
	if !ok {
		return nil, fmt.Errorf("filter on %q: %w", attribute, domain.ErrUnsupported)
	}
	return finder.FindAllBy(ctx, attribute, value)
}

func (r *Repository[T]) FindByID(ctx context.Context, id int) (T, error) {
	cached, err := r.kv.Get(ctx, key(id))
	if err != nil {
		slog.WarnContext(ctx, "cache read failed", slog.Int("id", id), slog.Any("error", err))
	}
	if cached != nil {
		return *cached, nil
	}

	e, err := r.next.FindByID(ctx, id)
	if err != nil {
		return e, err
	}
	r.store(ctx, e)
	return e, nil
}

func (r *Repository[T]) Save(ctx context.Context, entity T) (T, error) {
	saved, err := r.next.Save(ctx, entity)
	if err != nil {
		// the row may have vanished underneath a stale entry
		r.evict(ctx, entity.PrimaryKey())
		return saved, err
	}
	r.store(ctx, saved)
	return saved, nil
}

func (r *Repository[T]) DeleteByID(ctx context.Context, id int) error {
	if err := r.next.DeleteByID(ctx, id); err != nil {
		return err
	}
	r.evict(ctx, id)
	return nil
}

func (r *Repository[T]) store(ctx context.Context, e T) {
	if _, err := r.kv.Set(ctx, key(e.PrimaryKey()), e); err != nil {
		slog.WarnContext(ctx, "cache write failed", slog.Int("id", e.PrimaryKey()), slog.Any("error", err))
	}
}

func (r *Repository[T]) evict(ctx context.Context, id int) {
	if id <= 0 {
		return
	}
	if err := r.kv.Delete(ctx, key(id)); err != nil {
		slog.WarnContext(ctx, "cache evict failed", slog.Int("id", id), slog.Any("error", err))
	}
}
