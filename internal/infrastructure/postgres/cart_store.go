package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	domain "github.com/mannadev/shopping-backend/internal/domain/cart"
)

type CartStore struct {
	db *pgxpool.Pool
}

func NewCartStore(db *pgxpool.Pool) *CartStore {
	return &CartStore{db: db}
}

func (s *CartStore) Snapshot(ctx context.Context, customerID string) ([]domain.Entry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT product_id, quantity FROM cart_entries WHERE customer_id = $1 ORDER BY product_id`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Entry
	for rows.Next() {
		e := domain.Entry{CustomerID: customerID}
		if err := rows.Scan(&e.ProductID, &e.Quantity); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *CartStore) AddItem(ctx context.Context, customerID, productID string, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO cart_entries (customer_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (customer_id, product_id)
		DO UPDATE SET quantity = cart_entries.quantity + EXCLUDED.quantity`,
		customerID, productID, quantity,
	)
	return err
}

func (s *CartStore) RemoveItem(ctx context.Context, customerID, productID string) error {
	ct, err := s.db.Exec(ctx,
		`DELETE FROM cart_entries WHERE customer_id = $1 AND product_id = $2`, customerID, productID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func (s *CartStore) Clear(ctx context.Context, customerID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM cart_entries WHERE customer_id = $1`, customerID)
	return err
}
