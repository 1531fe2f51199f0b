package inventory

import (
	"context"
	"errors"
	"fmt"

	dominv "github.com/mannadev/shopping-backend/internal/domain/inventory"
	domprod "github.com/mannadev/shopping-backend/internal/domain/product"
	"github.com/mannadev/shopping-backend/internal/pkg/logging"
	"go.uber.org/zap"
)

// Ledger implements the inventory contract over the product repository's
// conditional stock operation. Atomicity lives in the repository; this layer
// translates errors and keeps the compensation paths auditable.
type Ledger struct {
	products domprod.Repository
}

func NewLedger(products domprod.Repository) *Ledger {
	return &Ledger{products: products}
}

func (l *Ledger) CheckAvailability(ctx context.Context, productID string, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, dominv.ErrInvalidQuantity
	}
	p, err := l.products.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, domprod.ErrNotFound) {
			return false, dominv.ErrProductNotFound
		}
		return false, fmt.Errorf("inventory: get product: %w", err)
	}
	return p.Quantity >= quantity, nil
}

func (l *Ledger) Decrement(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return dominv.ErrInvalidQuantity
	}
	if err := l.products.AdjustStock(ctx, productID, -quantity); err != nil {
		switch {
		case errors.Is(err, domprod.ErrNotFound):
			return dominv.ErrProductNotFound
		case errors.Is(err, domprod.ErrInsufficientStock):
			return dominv.ErrInsufficientStock
		default:
			return fmt.Errorf("inventory: decrement: %w", err)
		}
	}
	return nil
}

func (l *Ledger) Increment(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return dominv.ErrInvalidQuantity
	}
	if err := l.products.AdjustStock(ctx, productID, quantity); err != nil {
		if errors.Is(err, domprod.ErrNotFound) {
			return dominv.ErrProductNotFound
		}
		return fmt.Errorf("inventory: increment: %w", err)
	}
	logging.FromContext(ctx).Info("stock_released",
		zap.String("product_id", productID),
		zap.Int("quantity", quantity),
	)
	return nil
}
