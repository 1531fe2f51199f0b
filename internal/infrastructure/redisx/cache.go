package redisx

import (
	"context"
	"encoding/json"
	"time"

	domain "github.com/mannadev/shopping-backend/internal/domain/order"
	"github.com/redis/go-redis/v9"
)

const (
	// order_terminal:{gateway_ref} -> JSON snapshot of the terminal order
	keyOrderTerminal = "order_terminal:"

	ttlTerminal = 5 * time.Minute
)

func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 2 * time.Second,
		ReadTimeout: 2 * time.Second,
	})
}

// OrderCache is a best-effort read-through cache of terminal commit results.
// Only terminal orders are ever stored; the order store stays the source of
// truth and every method degrades to a miss on Redis errors. A later
// Failed-to-Refunded refinement is not visible until the entry expires, which
// does not change the commit outcome the snapshot maps to.
type OrderCache struct {
	rdb *redis.Client
}

func NewOrderCache(rdb *redis.Client) *OrderCache {
	return &OrderCache{rdb: rdb}
}

func (c *OrderCache) RecordTerminal(ctx context.Context, o *domain.Order) {
	if c == nil || c.rdb == nil || o == nil || !o.Terminal() {
		return
	}
	raw, err := json.Marshal(o)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, keyOrderTerminal+o.ID, raw, ttlTerminal).Err()
}

// Terminal returns the cached terminal order for the reference, if any.
func (c *OrderCache) Terminal(ctx context.Context, gatewayRef string) (*domain.Order, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, keyOrderTerminal+gatewayRef).Bytes()
	if err != nil {
		return nil, false
	}
	var o domain.Order
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, false
	}
	if !o.Terminal() {
		return nil, false
	}
	return &o, true
}
