package order

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("order: not found")
	ErrConflict        = errors.New("order: already exists")
	ErrNoItems         = errors.New("order: at least one item is required")
	ErrInvalidQuantity = errors.New("order: quantity must be greater than zero")
	ErrInvalidAmount   = errors.New("order: amount must be greater than zero")
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Item is one line of an order, snapshotted at commit time and immutable
// afterwards.
type Item struct {
	ProductID string
	Quantity  int
}

// Order is keyed by the payment gateway's reference; the identity doubles as
// the idempotency key for the commit protocol.
type Order struct {
	ID            string
	CustomerID    string
	Items         []Item
	TotalAmount   int64
	PaymentStatus PaymentStatus
	FailureReason string
	OrderDate     time.Time
	UpdatedAt     time.Time
}

func New(gatewayRef, customerID string, items []Item, totalAmount int64) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}
	if totalAmount <= 0 {
		return nil, ErrInvalidAmount
	}

	now := time.Now().UTC()
	return &Order{
		ID:            gatewayRef,
		CustomerID:    customerID,
		Items:         append([]Item(nil), items...),
		TotalAmount:   totalAmount,
		PaymentStatus: PaymentStatusPending,
		OrderDate:     now,
		UpdatedAt:     now,
	}, nil
}

func (o *Order) MarkPaid() {
	o.PaymentStatus = PaymentStatusPaid
	o.FailureReason = ""
	o.touch()
}

func (o *Order) MarkFailed(reason string) {
	o.PaymentStatus = PaymentStatusFailed
	o.FailureReason = reason
	o.touch()
}

// MarkRefunded is reached only from Failed, via an explicit compensating action.
func (o *Order) MarkRefunded() error {
	if o.PaymentStatus != PaymentStatusFailed {
		return errors.New("order: only failed orders can be refunded")
	}
	o.PaymentStatus = PaymentStatusRefunded
	o.touch()
	return nil
}

func (o *Order) Terminal() bool {
	switch o.PaymentStatus {
	case PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]Item(nil), o.Items...)
	return &clone
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
