package product

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("product: not found")
	ErrConflict      = errors.New("product: already exists")
	ErrNotOwner      = errors.New("product: seller does not own this product")
	ErrInvalidPrice  = errors.New("product: price must be greater than zero")
	ErrEmptyName     = errors.New("product: name is required")
	ErrNegativeStock = errors.New("product: quantity must be zero or greater")
)

// Product is a catalog entry plus its live stock counter. The counter is
// mutated only through the inventory ledger's conditional operations.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       int64
	Quantity    int
	SellerID    string
	SellerName  string
	Link        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func New(id, name, description string, price int64, quantity int, sellerID, sellerName, link string) (*Product, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if price <= 0 {
		return nil, ErrInvalidPrice
	}
	if quantity < 0 {
		return nil, ErrNegativeStock
	}

	now := time.Now().UTC()
	return &Product{
		ID:          id,
		Name:        name,
		Description: description,
		Price:       price,
		Quantity:    quantity,
		SellerID:    sellerID,
		SellerName:  sellerName,
		Link:        link,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
