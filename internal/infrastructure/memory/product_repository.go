package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	domain "github.com/mannadev/shopping-backend/internal/domain/product"
)

type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{
		products: make(map[string]*domain.Product),
	}
}

func (r *ProductRepository) Insert(ctx context.Context, p *domain.Product) error {
	_ = ctx
	if p == nil || p.ID == "" {
		return domain.ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[p.ID]; exists {
		return domain.ErrConflict
	}
	r.products[p.ID] = p.Clone()
	return nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *ProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p.Clone())
	}
	sortByID(out)
	return out, nil
}

func (r *ProductRepository) Search(ctx context.Context, name string) ([]*domain.Product, error) {
	_ = ctx
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Product
	for _, p := range r.products {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			out = append(out, p.Clone())
		}
	}
	sortByID(out)
	return out, nil
}

func (r *ProductRepository) ListBySeller(ctx context.Context, sellerID string) ([]*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Product
	for _, p := range r.products {
		if p.SellerID == sellerID {
			out = append(out, p.Clone())
		}
	}
	sortByID(out)
	return out, nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

// AdjustStock applies delta to the product's counter in one critical section,
// refusing any change that would drive the counter negative.
func (r *ProductRepository) AdjustStock(ctx context.Context, id string, delta int) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Quantity+delta < 0 {
		return domain.ErrInsufficientStock
	}
	p.Quantity += delta
	return nil
}

func sortByID(ps []*domain.Product) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].ID < ps[j].ID })
}
