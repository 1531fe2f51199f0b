package order

import "context"

// Repository persists orders. Insert is create-if-absent keyed on the order
// ID and returns ErrConflict when the identity already exists; the caller is
// expected to read back the existing record.
type Repository interface {
	Insert(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, order *Order) error
	FindByCustomer(ctx context.Context, customerID string) ([]*Order, error)
	FindByProducts(ctx context.Context, productIDs []string) ([]*Order, error)
}
