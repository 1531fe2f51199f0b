package cart

import (
	"context"
	"testing"

	domprod "github.com/mannadev/shopping-backend/internal/domain/product"
	"github.com/mannadev/shopping-backend/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, *memory.ProductRepository) {
	t.Helper()
	products := memory.NewProductRepository()
	return NewService(memory.NewCartStore(), products), products
}

func seedProduct(t *testing.T, repo *memory.ProductRepository, id string, price int64, quantity int) {
	t.Helper()
	p, err := domprod.New(id, "product "+id, "", price, quantity, "seller-1", "Seller One", "")
	require.NoError(t, err)
	require.NoError(t, repo.Insert(context.Background(), p))
}

func TestAddItem_SoftCapAgainstStock(t *testing.T) {
	ctx := context.Background()
	svc, products := newService(t)
	seedProduct(t, products, "p1", 500, 2)

	require.NoError(t, svc.AddItem(ctx, "cust-1", "p1"))
	require.NoError(t, svc.AddItem(ctx, "cust-1", "p1"))

	err := svc.AddItem(ctx, "cust-1", "p1")
	assert.ErrorIs(t, err, ErrOutOfStock, "cart may not claim more units than are in stock")

	entries, err := svc.View(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].Quantity)
}

func TestAddItem_UnknownProduct(t *testing.T) {
	svc, _ := newService(t)
	err := svc.AddItem(context.Background(), "cust-1", "ghost")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestRemoveItem(t *testing.T) {
	ctx := context.Background()
	svc, products := newService(t)
	seedProduct(t, products, "p1", 500, 5)

	assert.ErrorIs(t, svc.RemoveItem(ctx, "cust-1", "p1"), ErrNotInCart)

	require.NoError(t, svc.AddItem(ctx, "cust-1", "p1"))
	require.NoError(t, svc.RemoveItem(ctx, "cust-1", "p1"))

	entries, err := svc.View(ctx, "cust-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestView_SkipsVanishedProducts(t *testing.T) {
	ctx := context.Background()
	svc, products := newService(t)
	seedProduct(t, products, "p1", 500, 5)
	seedProduct(t, products, "p2", 300, 5)

	require.NoError(t, svc.AddItem(ctx, "cust-1", "p1"))
	require.NoError(t, svc.AddItem(ctx, "cust-1", "p2"))
	require.NoError(t, products.Delete(ctx, "p2"))

	entries, err := svc.View(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "p1", entries[0].Product.ID)
}

func TestTotal_PricesAgainstLiveCatalog(t *testing.T) {
	ctx := context.Background()
	svc, products := newService(t)
	seedProduct(t, products, "p1", 500, 5)
	seedProduct(t, products, "p2", 300, 5)

	require.NoError(t, svc.AddItem(ctx, "cust-1", "p1"))
	require.NoError(t, svc.AddItem(ctx, "cust-1", "p1"))
	require.NoError(t, svc.AddItem(ctx, "cust-1", "p2"))

	total, err := svc.Total(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1300), total)
}
