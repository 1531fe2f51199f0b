package cart

import (
	"context"
	"errors"
)

var (
	ErrEntryNotFound   = errors.New("cart: item not in cart")
	ErrInvalidQuantity = errors.New("cart: quantity must be greater than zero")
)

// Entry is one pending selection in a customer's cart. Quantities are a soft
// intent, not a stock hold.
type Entry struct {
	CustomerID string
	ProductID  string
	Quantity   int
}

// Store owns per-customer carts. Clear is invoked after a successful order
// commit and must be safe to call on an already-empty cart.
type Store interface {
	Snapshot(ctx context.Context, customerID string) ([]Entry, error)
	AddItem(ctx context.Context, customerID, productID string, quantity int) error
	RemoveItem(ctx context.Context, customerID, productID string) error
	Clear(ctx context.Context, customerID string) error
}
