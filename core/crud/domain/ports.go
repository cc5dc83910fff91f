package domain

import "context"

type (
	// Entity is a record with an integer primary key. A zero key means the
	// record has not been persisted yet.
	Entity[T any] interface {
		PrimaryKey() int
		WithPrimaryKey(id int) T
	}

	// Validator is implemented by entities with field-level constraints.
	Validator interface {
		Validate() error
	}

	// Repository is the persistence port of one entity type.
	//
	// Save inserts when the key is zero and returns the entity with its new
	// key; otherwise it overwrites the stored record, returning ErrNotFound
	// when there is none. FindByID and DeleteByID return ErrNotFound for
	// unknown keys. FindAll orders by key.
	Repository[T Entity[T]] interface {
		FindAll(ctx context.Context) ([]T, error)
		FindByID(ctx context.Context, id int) (T, error)
		Save(ctx context.Context, entity T) (T, error)
		DeleteByID(ctx context.Context, id int) error
	}

	// AttributeFinder is implemented by repositories that can filter on an
	// attribute, named by its JSON field. Unknown attributes yield ErrUnsupported.
	AttributeFinder[T any] interface {
		FindAllBy(ctx context.Context, attribute string, value string) ([]T, error)
	}
)
