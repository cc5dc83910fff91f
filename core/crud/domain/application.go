package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Filter narrows List to entities whose Attribute equals Value. The zero
// Filter matches everything.
type Filter struct {
	Attribute string
	Value     string
}

func (f Filter) IsZero() bool {
	return f.Attribute == ""
}

// Application is the CRUD service of one entity type. It adds the id rules
// and the patch flow on top of a Repository and normalizes every error into
// one of the sentinels in this package.
type Application[T Entity[T]] struct {
	repo Repository[T]
	name string
}

// NewApp builds the service; name is used in logs and messages, e.g. "Employee".
func NewApp[T Entity[T]](repo Repository[T], name string) *Application[T] {
	return &Application[T]{repo: repo, name: name}
}

func (app *Application[T]) Name() string {
	return app.name
}

func (app *Application[T]) List(ctx context.Context, filter Filter) ([]T, error) {
	if filter.IsZero() {
		all, err := app.repo.FindAll(ctx)
		return all, app.normalize(ctx, "list", err)
	}

	finder, ok := app.repo.(AttributeFinder[T])
	if !ok || !HasField[T](filter.Attribute) || filter.Attribute == PrimaryKeyField {
		return nil, fmt.Errorf("filter on %q: %w", filter.Attribute, ErrUnsupported)
	}
	found, err := finder.FindAllBy(ctx, filter.Attribute, filter.Value)
	return found, app.normalize(ctx, "list", err)
}

func (app *Application[T]) Get(ctx context.Context, id int) (T, error) {
	var zero T
	if id <= 0 {
		return zero, ErrNotFound
	}
	e, err := app.repo.FindByID(ctx, id)
	if err != nil {
		return zero, app.normalize(ctx, "get", err)
	}
	return e, nil
}

// Create always inserts: any key supplied by the caller is discarded.
func (app *Application[T]) Create(ctx context.Context, entity T) (T, error) {
	var zero T
	entity = entity.WithPrimaryKey(0)
	if err := validate(entity); err != nil {
		return zero, err
	}
	saved, err := app.repo.Save(ctx, entity)
	if err != nil {
		return zero, app.normalize(ctx, "create", err)
	}
	slog.DebugContext(ctx, "entity created", slog.String("entity", app.name), slog.Int("id", saved.PrimaryKey()))
	return saved, nil
}

// Replace overwrites an existing entity with entity as a whole.
func (app *Application[T]) Replace(ctx context.Context, entity T) (T, error) {
	var zero T
	if entity.PrimaryKey() <= 0 {
		return zero, invalidField(PrimaryKeyField, "required")
	}
	if err := validate(entity); err != nil {
		return zero, err
	}
	saved, err := app.repo.Save(ctx, entity)
	if err != nil {
		return zero, app.normalize(ctx, "replace", err)
	}
	return saved, nil
}

// Patch loads the entity, merges patch into it and saves the result.
// Concurrent writers are last-write-wins.
func (app *Application[T]) Patch(ctx context.Context, id int, patch Payload) (T, error) {
	var zero T
	existing, err := app.Get(ctx, id)
	if err != nil {
		return zero, err
	}
	merged, err := ApplyPatch(existing, patch)
	if err != nil {
		return zero, err
	}
	saved, err := app.repo.Save(ctx, merged)
	if err != nil {
		return zero, app.normalize(ctx, "patch", err)
	}
	return saved, nil
}

func (app *Application[T]) Delete(ctx context.Context, id int) error {
	if id <= 0 {
		return ErrNotFound
	}
	return app.normalize(ctx, "delete", app.repo.DeleteByID(ctx, id))
}

func validate(entity any) error {
	if v, ok := entity.(Validator); ok {
		return v.Validate()
	}
	return nil
}

// normalize passes domain errors through and hides everything else behind ErrUnhandled.
func (app *Application[T]) normalize(ctx context.Context, op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidData),
		errors.Is(err, ErrForbiddenField),
		errors.Is(err, ErrUnsupported):
		return err
	}
	slog.ErrorContext(ctx, "unexpected error",
		slog.String("entity", app.name),
		slog.String("op", op),
		slog.Any("error", err),
	)
	return ErrUnhandled
}
