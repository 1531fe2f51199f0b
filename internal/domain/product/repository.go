package product

import (
	"context"
	"errors"
)

// Repository persists products. AdjustStock is the single write path for the
// stock counter: it atomically adds delta to the counter and fails with
// ErrInsufficientStock when the result would go negative. Implementations
// must make it a single conditional update, not a read followed by a write.
type Repository interface {
	Insert(ctx context.Context, p *Product) error
	Get(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context) ([]*Product, error)
	Search(ctx context.Context, name string) ([]*Product, error)
	ListBySeller(ctx context.Context, sellerID string) ([]*Product, error)
	Delete(ctx context.Context, id string) error
	AdjustStock(ctx context.Context, id string, delta int) error
}

// ErrInsufficientStock is returned by AdjustStock when a negative delta would
// take the counter below zero.
var ErrInsufficientStock = errors.New("product: insufficient stock")
