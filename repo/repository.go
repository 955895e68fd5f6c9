package repo

import (
	"context"
	"reflect"

	"github.com/syssam/relmap/materialize"
	"github.com/syssam/relmap/schema"
)

// Repository is the typed facade of a Client for entities of type T.
type Repository[T any] struct {
	client *Client
	typ    reflect.Type
}

// For returns the repository of T backed by client.
//
//	orders := repo.For[Order](client)
//	o, err := orders.FindByID(ctx, 7)
func For[T any](client *Client) *Repository[T] {
	return &Repository[T]{client: client, typ: reflect.TypeFor[T]()}
}

// Client returns the underlying client.
func (r *Repository[T]) Client() *Client {
	return r.client
}

// TableName returns the table of T.
func (r *Repository[T]) TableName() (string, error) {
	return schema.TableName(r.typ)
}

// Save inserts or updates e and returns the stored row.
func (r *Repository[T]) Save(ctx context.Context, e *T) (*T, error) {
	return one[T](r.client.Save(ctx, e))
}

// Update writes e over the stored row with the same id.
func (r *Repository[T]) Update(ctx context.Context, e *T) (*T, error) {
	return one[T](r.client.Update(ctx, e))
}

// Remove deletes the stored row with the id of e and returns it.
func (r *Repository[T]) Remove(ctx context.Context, e *T) (*T, error) {
	return one[T](r.client.Remove(ctx, e))
}

// Find returns the entities matching the non-NULL columns of example.
func (r *Repository[T]) Find(ctx context.Context, example *T) ([]*T, error) {
	return many[T](r.client.Find(ctx, example))
}

// FindAll returns every entity.
func (r *Repository[T]) FindAll(ctx context.Context) ([]*T, error) {
	return many[T](r.client.FindAll(ctx, r.typ))
}

// FindByColumn returns the entities whose column equals value.
func (r *Repository[T]) FindByColumn(ctx context.Context, column string, value any) ([]*T, error) {
	return many[T](r.client.FindByColumn(ctx, column, value, r.typ))
}

// FindByID returns the entity with the given id.
func (r *Repository[T]) FindByID(ctx context.Context, id any) (*T, error) {
	return one[T](r.client.FindByID(ctx, id, r.typ))
}

// GetObject materializes the current row of rows.
func (r *Repository[T]) GetObject(rows materialize.Cursor) (*T, error) {
	return one[T](r.client.GetObject(rows, r.typ))
}

// GetObjects materializes the remaining rows of rows.
func (r *Repository[T]) GetObjects(rows materialize.Cursor) ([]*T, error) {
	return many[T](r.client.GetObjects(rows, r.typ))
}

// Populate loads every relation field of e.
func (r *Repository[T]) Populate(ctx context.Context, e *T) error {
	return r.client.Populate(ctx, e)
}

func one[T any](v any, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}

func many[T any](vs []any, err error) ([]*T, error) {
	if err != nil {
		return nil, err
	}
	out := make([]*T, len(vs))
	for i, v := range vs {
		out[i] = v.(*T)
	}
	return out, nil
}
