package catalog

import (
	"context"
	"errors"
	"fmt"

	domorder "github.com/mannadev/shopping-backend/internal/domain/order"
	domprod "github.com/mannadev/shopping-backend/internal/domain/product"
	"github.com/mannadev/shopping-backend/internal/pkg/logging"
	"go.uber.org/zap"
)

type IDGenerator interface {
	NewID() string
}

// Service covers the seller-facing product CRUD and the order views. Plain
// existence and ownership checks, no coordination.
type Service struct {
	products    domprod.Repository
	orders      domorder.Repository
	idGenerator IDGenerator
}

func NewService(products domprod.Repository, orders domorder.Repository, idGen IDGenerator) *Service {
	return &Service{
		products:    products,
		orders:      orders,
		idGenerator: idGen,
	}
}

type AddProductInput struct {
	Name        string
	Description string
	Price       int64
	Quantity    int
	SellerID    string
	SellerName  string
	Link        string
}

func (s *Service) AddProduct(ctx context.Context, in AddProductInput) (*domprod.Product, error) {
	if in.SellerID == "" {
		return nil, errors.New("catalog: seller id is required")
	}

	p, err := domprod.New(s.idGenerator.NewID(), in.Name, in.Description, in.Price, in.Quantity,
		in.SellerID, in.SellerName, in.Link)
	if err != nil {
		return nil, err
	}
	if err := s.products.Insert(ctx, p); err != nil {
		return nil, fmt.Errorf("catalog: insert product: %w", err)
	}

	logging.FromContext(ctx).Info("product_added",
		zap.String("product_id", p.ID),
		zap.String("seller_id", p.SellerID),
	)
	return p, nil
}

// RemoveProduct deletes a product after confirming the seller owns it.
func (s *Service) RemoveProduct(ctx context.Context, sellerID, productID string) error {
	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return err
	}
	if p.SellerID != sellerID {
		return domprod.ErrNotOwner
	}
	if err := s.products.Delete(ctx, productID); err != nil {
		return fmt.Errorf("catalog: delete product: %w", err)
	}

	logging.FromContext(ctx).Info("product_removed",
		zap.String("product_id", productID),
		zap.String("seller_id", sellerID),
	)
	return nil
}

func (s *Service) Get(ctx context.Context, productID string) (*domprod.Product, error) {
	return s.products.Get(ctx, productID)
}

func (s *Service) List(ctx context.Context) ([]*domprod.Product, error) {
	return s.products.List(ctx)
}

func (s *Service) Search(ctx context.Context, name string) ([]*domprod.Product, error) {
	return s.products.Search(ctx, name)
}

func (s *Service) OrdersByCustomer(ctx context.Context, customerID string) ([]*domorder.Order, error) {
	if customerID == "" {
		return nil, errors.New("catalog: customer id is required")
	}
	return s.orders.FindByCustomer(ctx, customerID)
}

// OrdersBySeller lists orders containing at least one of the seller's
// products.
func (s *Service) OrdersBySeller(ctx context.Context, sellerID string) ([]*domorder.Order, error) {
	if sellerID == "" {
		return nil, errors.New("catalog: seller id is required")
	}
	products, err := s.products.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	return s.orders.FindByProducts(ctx, ids)
}
