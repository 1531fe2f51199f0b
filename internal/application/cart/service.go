package cart

import (
	"context"
	"errors"
	"fmt"

	domcart "github.com/mannadev/shopping-backend/internal/domain/cart"
	domprod "github.com/mannadev/shopping-backend/internal/domain/product"
	"github.com/mannadev/shopping-backend/internal/pkg/logging"
	"go.uber.org/zap"
)

var (
	ErrProductNotFound = domprod.ErrNotFound
	ErrOutOfStock      = errors.New("cart: product is out of stock")
	ErrNotInCart       = domcart.ErrEntryNotFound
)

// Service owns cart mutations. The stock check on add is a soft cap against
// the counter at mutation time, not a hold; the commit protocol re-validates.
type Service struct {
	carts    domcart.Store
	products domprod.Repository
}

func NewService(carts domcart.Store, products domprod.Repository) *Service {
	return &Service{carts: carts, products: products}
}

// AddItem puts one more unit of the product into the customer's cart, capped
// by the currently available stock.
func (s *Service) AddItem(ctx context.Context, customerID, productID string) error {
	logger := logging.FromContext(ctx).With(zap.String("component", "cart_service"))

	if customerID == "" || productID == "" {
		return errors.New("cart: customer id and product id are required")
	}

	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return err
	}

	entries, err := s.carts.Snapshot(ctx, customerID)
	if err != nil {
		return fmt.Errorf("cart: snapshot: %w", err)
	}
	inCart := 0
	for _, e := range entries {
		if e.ProductID == productID {
			inCart = e.Quantity
			break
		}
	}
	if p.Quantity <= inCart {
		logger.Info("cart_add_rejected",
			zap.String("product_id", productID),
			zap.Int("in_cart", inCart),
			zap.Int("available", p.Quantity),
		)
		return ErrOutOfStock
	}

	if err := s.carts.AddItem(ctx, customerID, productID, 1); err != nil {
		return fmt.Errorf("cart: add item: %w", err)
	}
	logger.Info("cart_item_added",
		zap.String("customer_id", customerID),
		zap.String("product_id", productID),
	)
	return nil
}

func (s *Service) RemoveItem(ctx context.Context, customerID, productID string) error {
	if err := s.carts.RemoveItem(ctx, customerID, productID); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("cart_item_removed",
		zap.String("customer_id", customerID),
		zap.String("product_id", productID),
	)
	return nil
}

// Entry is a cart line joined with its product for display.
type Entry struct {
	Product  *domprod.Product
	Quantity int
}

// View returns the customer's cart with product details resolved. Entries
// whose product has since been removed are skipped.
func (s *Service) View(ctx context.Context, customerID string) ([]Entry, error) {
	entries, err := s.carts.Snapshot(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("cart: snapshot: %w", err)
	}

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		p, err := s.products.Get(ctx, e.ProductID)
		if errors.Is(err, domprod.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{Product: p, Quantity: e.Quantity})
	}
	return out, nil
}

// Total prices the current cart against live product prices.
func (s *Service) Total(ctx context.Context, customerID string) (int64, error) {
	entries, err := s.View(ctx, customerID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, e := range entries {
		total += e.Product.Price * int64(e.Quantity)
	}
	return total, nil
}
