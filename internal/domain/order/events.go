package order

import "time"

// OrderCommittedEvent is emitted after an order reaches Paid and stock has
// been decremented.
type OrderCommittedEvent struct {
	OrderID     string
	CustomerID  string
	TotalAmount int64
	OccurredAt  time.Time
}

func (OrderCommittedEvent) EventName() string { return "order.committed" }

func NewOrderCommittedEvent(o *Order) OrderCommittedEvent {
	return OrderCommittedEvent{
		OrderID:     o.ID,
		CustomerID:  o.CustomerID,
		TotalAmount: o.TotalAmount,
		OccurredAt:  time.Now().UTC(),
	}
}

// OrderStockShortfallEvent marks a captured payment that inventory could no
// longer satisfy. Consumers owe the customer a refund.
type OrderStockShortfallEvent struct {
	OrderID    string
	CustomerID string
	PaidAmount int64
	Reason     string
	OccurredAt time.Time
}

func (OrderStockShortfallEvent) EventName() string { return "order.stock_shortfall" }

func NewOrderStockShortfallEvent(o *Order, paidAmount int64, reason string) OrderStockShortfallEvent {
	return OrderStockShortfallEvent{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		PaidAmount: paidAmount,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
}
