package memory

import (
	"context"
	"sort"
	"sync"

	domain "github.com/mannadev/shopping-backend/internal/domain/cart"
)

type CartStore struct {
	mu    sync.RWMutex
	carts map[string]map[string]int // customerID -> productID -> quantity
}

func NewCartStore() *CartStore {
	return &CartStore{
		carts: make(map[string]map[string]int),
	}
}

func (s *CartStore) Snapshot(ctx context.Context, customerID string) ([]domain.Entry, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.carts[customerID]
	out := make([]domain.Entry, 0, len(entries))
	for productID, qty := range entries {
		out = append(out, domain.Entry{
			CustomerID: customerID,
			ProductID:  productID,
			Quantity:   qty,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (s *CartStore) AddItem(ctx context.Context, customerID, productID string, quantity int) error {
	_ = ctx
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.carts[customerID]
	if entries == nil {
		entries = make(map[string]int)
		s.carts[customerID] = entries
	}
	entries[productID] += quantity
	return nil
}

func (s *CartStore) RemoveItem(ctx context.Context, customerID, productID string) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.carts[customerID]
	if _, ok := entries[productID]; !ok {
		return domain.ErrEntryNotFound
	}
	delete(entries, productID)
	return nil
}

func (s *CartStore) Clear(ctx context.Context, customerID string) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, customerID)
	return nil
}
