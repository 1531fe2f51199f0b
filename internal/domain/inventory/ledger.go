package inventory

import (
	"context"
	"errors"
)

var (
	ErrProductNotFound   = errors.New("inventory: product not found")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be greater than zero")
)

// Ledger owns per-product stock counters. Decrement is a compare-and-subtract:
// it either applies the full quantity atomically or fails with no side effect.
// Increment exists only for compensating paths and always succeeds for a known
// product.
type Ledger interface {
	CheckAvailability(ctx context.Context, productID string, quantity int) (bool, error)
	Decrement(ctx context.Context, productID string, quantity int) error
	Increment(ctx context.Context, productID string, quantity int) error
}
