package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	domain "github.com/mannadev/shopping-backend/internal/domain/order"
)

type OrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db}
}

// Insert creates the order and its item snapshot. The primary key on the
// gateway reference makes this the atomic create-if-absent the commit
// protocol's idempotency guard relies on.
func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
		INSERT INTO orders (id, customer_id, total_amount, payment_status, failure_reason, order_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		order.ID, order.CustomerID, order.TotalAmount, string(order.PaymentStatus),
		order.FailureReason, order.OrderDate, order.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrConflict
	}

	for _, it := range order.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity)
			VALUES ($1, $2, $3)`,
			order.ID, it.ProductID, it.Quantity,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, customer_id, total_amount, payment_status, failure_reason, order_date, updated_at
		FROM orders WHERE id = $1`, id)

	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	ct, err := r.db.Exec(ctx, `
		UPDATE orders
		SET payment_status = $2, failure_reason = $3, updated_at = $4
		WHERE id = $1`,
		order.ID, string(order.PaymentStatus), order.FailureReason, order.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) FindByCustomer(ctx context.Context, customerID string) ([]*domain.Order, error) {
	return r.queryOrders(ctx, `
		SELECT id, customer_id, total_amount, payment_status, failure_reason, order_date, updated_at
		FROM orders WHERE customer_id = $1 ORDER BY order_date, id`, customerID)
}

func (r *OrderRepository) FindByProducts(ctx context.Context, productIDs []string) ([]*domain.Order, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	return r.queryOrders(ctx, `
		SELECT DISTINCT o.id, o.customer_id, o.total_amount, o.payment_status, o.failure_reason, o.order_date, o.updated_at
		FROM orders o
		JOIN order_items i ON i.order_id = o.id
		WHERE i.product_id = ANY($1)
		ORDER BY o.order_date, o.id`, productIDs)
}

func (r *OrderRepository) queryOrders(ctx context.Context, sql string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, o := range out {
		if err := r.loadItems(ctx, o); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, o *domain.Order) error {
	rows, err := r.db.Query(ctx,
		`SELECT product_id, quantity FROM order_items WHERE order_id = $1 ORDER BY product_id`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var it domain.Item
		if err := rows.Scan(&it.ProductID, &it.Quantity); err != nil {
			return err
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var status string
	err := row.Scan(&o.ID, &o.CustomerID, &o.TotalAmount, &status, &o.FailureReason, &o.OrderDate, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o.PaymentStatus = domain.PaymentStatus(status)
	return &o, nil
}
