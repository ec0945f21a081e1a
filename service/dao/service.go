package dao

import (
	"context"
)

// Service is a keyed entity store.
type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error

	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}

// Ledger is an append-only store: records can be added and read, never
// replaced or removed.
type Ledger[T any] interface {
	Append(ctx context.Context, t *T) error

	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}
