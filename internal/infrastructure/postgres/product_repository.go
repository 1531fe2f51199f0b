package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	domain "github.com/mannadev/shopping-backend/internal/domain/product"
)

type ProductRepository struct {
	db *pgxpool.Pool
}

func NewProductRepository(db *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, name, description, price, quantity, seller_id, seller_name, link, created_at, updated_at`

func (r *ProductRepository) Insert(ctx context.Context, p *domain.Product) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO products (id, name, description, price, quantity, seller_id, seller_name, link, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.Name, p.Description, p.Price, p.Quantity, p.SellerID, p.SellerName, p.Link, p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	return err
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

func (r *ProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	return r.query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
}

func (r *ProductRepository) Search(ctx context.Context, name string) ([]*domain.Product, error) {
	return r.query(ctx,
		`SELECT `+productColumns+` FROM products WHERE name ILIKE '%' || $1 || '%' ORDER BY id`, name)
}

func (r *ProductRepository) ListBySeller(ctx context.Context, sellerID string) ([]*domain.Product, error) {
	return r.query(ctx,
		`SELECT `+productColumns+` FROM products WHERE seller_id = $1 ORDER BY id`, sellerID)
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AdjustStock is a single conditional UPDATE; the WHERE clause is the
// compare-and-subtract that keeps the counter non-negative under concurrency.
func (r *ProductRepository) AdjustStock(ctx context.Context, id string, delta int) error {
	ct, err := r.db.Exec(ctx, `
		UPDATE products
		SET quantity = quantity + $2, updated_at = now()
		WHERE id = $1 AND quantity + $2 >= 0`,
		id, delta,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrInsufficientStock
}

func (r *ProductRepository) query(ctx context.Context, sql string, args ...any) ([]*domain.Product, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Quantity,
		&p.SellerID, &p.SellerName, &p.Link, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
