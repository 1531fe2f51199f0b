package inventory

import (
	"context"
	"testing"

	dominv "github.com/mannadev/shopping-backend/internal/domain/inventory"
	domprod "github.com/mannadev/shopping-backend/internal/domain/product"
	"github.com/mannadev/shopping-backend/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T, stock int) (*Ledger, *memory.ProductRepository) {
	t.Helper()
	repo := memory.NewProductRepository()
	p, err := domprod.New("p1", "Kettle", "", 1000, stock, "seller-1", "Seller One", "")
	require.NoError(t, err)
	require.NoError(t, repo.Insert(context.Background(), p))
	return NewLedger(repo), repo
}

func TestCheckAvailability(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newLedger(t, 3)

	ok, err := ledger.CheckAvailability(ctx, "p1", 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ledger.CheckAvailability(ctx, "p1", 4)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = ledger.CheckAvailability(ctx, "ghost", 1)
	assert.ErrorIs(t, err, dominv.ErrProductNotFound)

	_, err = ledger.CheckAvailability(ctx, "p1", 0)
	assert.ErrorIs(t, err, dominv.ErrInvalidQuantity)
}

func TestDecrementIncrement(t *testing.T) {
	ctx := context.Background()
	ledger, repo := newLedger(t, 3)

	require.NoError(t, ledger.Decrement(ctx, "p1", 2))
	assert.ErrorIs(t, ledger.Decrement(ctx, "p1", 2), dominv.ErrInsufficientStock,
		"the decrement applies fully or not at all")

	p, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Quantity)

	require.NoError(t, ledger.Increment(ctx, "p1", 2))
	p, err = repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Quantity)

	assert.ErrorIs(t, ledger.Decrement(ctx, "ghost", 1), dominv.ErrProductNotFound)
	assert.ErrorIs(t, ledger.Increment(ctx, "ghost", 1), dominv.ErrProductNotFound)
	assert.ErrorIs(t, ledger.Decrement(ctx, "p1", -1), dominv.ErrInvalidQuantity)
}
