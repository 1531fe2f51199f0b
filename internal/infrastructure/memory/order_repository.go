package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "github.com/mannadev/shopping-backend/internal/domain/order"
)

type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[string]*domain.Order),
	}
}

// Insert is the atomic create-if-absent on the order identity: when two
// commits race on the same gateway reference, exactly one insert wins and the
// other observes ErrConflict.
func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return domain.ErrConflict
	}
	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; !exists {
		return domain.ErrNotFound
	}
	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *OrderRepository) FindByCustomer(ctx context.Context, customerID string) ([]*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Order
	for _, o := range r.orders {
		if o.CustomerID == customerID {
			out = append(out, o.Clone())
		}
	}
	sortByDate(out)
	return out, nil
}

func (r *OrderRepository) FindByProducts(ctx context.Context, productIDs []string) ([]*domain.Order, error) {
	_ = ctx
	wanted := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Order
	for _, o := range r.orders {
		for _, it := range o.Items {
			if _, ok := wanted[it.ProductID]; ok {
				out = append(out, o.Clone())
				break
			}
		}
	}
	sortByDate(out)
	return out, nil
}

func sortByDate(orders []*domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].OrderDate.Equal(orders[j].OrderDate) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].OrderDate.Before(orders[j].OrderDate)
	})
}
