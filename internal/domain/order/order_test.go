package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	items := []Item{{ProductID: "p1", Quantity: 2}}

	o, err := New("ref-1", "cust-1", items, 500)
	require.NoError(t, err)
	assert.Equal(t, "ref-1", o.ID)
	assert.Equal(t, PaymentStatusPending, o.PaymentStatus)
	assert.False(t, o.Terminal())

	tests := []struct {
		name   string
		items  []Item
		amount int64
		want   error
	}{
		{"no items", nil, 500, ErrNoItems},
		{"zero quantity", []Item{{ProductID: "p1", Quantity: 0}}, 500, ErrInvalidQuantity},
		{"zero amount", items, 0, ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("ref-1", "cust-1", tt.items, tt.amount)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestStateTransitions(t *testing.T) {
	o, err := New("ref-1", "cust-1", []Item{{ProductID: "p1", Quantity: 1}}, 100)
	require.NoError(t, err)

	assert.Error(t, o.MarkRefunded(), "pending orders cannot be refunded")

	o.MarkPaid()
	assert.Equal(t, PaymentStatusPaid, o.PaymentStatus)
	assert.True(t, o.Terminal())
	assert.Error(t, o.MarkRefunded(), "paid orders cannot be refunded")

	o.MarkFailed("stock_shortfall: product p1")
	assert.Equal(t, PaymentStatusFailed, o.PaymentStatus)
	assert.Equal(t, "stock_shortfall: product p1", o.FailureReason)

	require.NoError(t, o.MarkRefunded())
	assert.Equal(t, PaymentStatusRefunded, o.PaymentStatus)
	assert.True(t, o.Terminal())
}

func TestClone(t *testing.T) {
	o, err := New("ref-1", "cust-1", []Item{{ProductID: "p1", Quantity: 1}}, 100)
	require.NoError(t, err)

	clone := o.Clone()
	clone.Items[0].Quantity = 99
	clone.MarkPaid()

	assert.Equal(t, 1, o.Items[0].Quantity)
	assert.Equal(t, PaymentStatusPending, o.PaymentStatus)
}
