package docstore

import "context"

// Collection is a typed view of one collection.
//
//	products := docstore.NewCollection[models.Product](store, "products")
//	p, err := products.Get(ctx, id)
type Collection[T any] struct {
	store Store
	name  string
}

func NewCollection[T any](store Store, name string) Collection[T] {
	return Collection[T]{store: store, name: name}
}

func (c Collection[T]) Name() string { return c.name }

func (c Collection[T]) Insert(ctx context.Context, doc *T) (string, error) {
	return c.store.Insert(ctx, c.name, doc)
}

func (c Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var out T
	err := c.store.FindByID(ctx, c.name, id, &out)
	return out, err
}

func (c Collection[T]) Find(ctx context.Context, filter Filter) ([]T, error) {
	var out []T
	if err := c.store.Find(ctx, c.name, filter, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// First returns the first document matching filter, or ErrNotFound.
func (c Collection[T]) First(ctx context.Context, filter Filter) (T, error) {
	var zero T
	all, err := c.Find(ctx, filter)
	if err != nil {
		return zero, err
	}
	if len(all) == 0 {
		return zero, ErrNotFound
	}
	return all[0], nil
}

func (c Collection[T]) Update(ctx context.Context, id string, fields Fields) error {
	return c.store.Update(ctx, c.name, id, fields)
}

func (c Collection[T]) Delete(ctx context.Context, id string) error {
	return c.store.Delete(ctx, c.name, id)
}
