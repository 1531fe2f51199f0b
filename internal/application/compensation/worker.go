package compensation

import (
	"context"
	"fmt"

	domorder "github.com/mannadev/shopping-backend/internal/domain/order"
	domoutbox "github.com/mannadev/shopping-backend/internal/domain/outbox"
	dompay "github.com/mannadev/shopping-backend/internal/domain/payment"
	"go.uber.org/zap"
)

// Worker drives refunds for captured payments that delivered no goods. It
// subscribes to stock-shortfall events and, on a successful gateway refund,
// moves the order from Failed to Refunded.
type Worker struct {
	orders     domorder.Repository
	refunder   dompay.Refunder
	subscriber domoutbox.Subscriber
	log        *zap.Logger
}

func New(orders domorder.Repository, refunder dompay.Refunder, subscriber domoutbox.Subscriber, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		orders:     orders,
		refunder:   refunder,
		subscriber: subscriber,
		log:        logger.With(zap.String("component", "compensation_worker")),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil || w.orders == nil || w.refunder == nil {
		return
	}
	w.subscriber.Subscribe(domorder.OrderStockShortfallEvent{}.EventName(), w.handleStockShortfall)
}

func (w *Worker) handleStockShortfall(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.OrderStockShortfallEvent)
	if !ok {
		return nil
	}

	log := w.log.With(zap.String("order_id", evt.OrderID))

	if err := w.refunder.Refund(ctx, evt.OrderID, evt.PaidAmount, evt.Reason); err != nil {
		// The payment stays stranded until a retry or manual action; keep it
		// loud.
		log.Error("refund_failed",
			zap.Int64("paid_amount", evt.PaidAmount),
			zap.Error(err),
		)
		return fmt.Errorf("compensation: refund: %w", err)
	}

	order, err := w.orders.Get(ctx, evt.OrderID)
	if err != nil {
		log.Error("order_load_failed", zap.Error(err))
		return fmt.Errorf("compensation: load order: %w", err)
	}
	if order.PaymentStatus == domorder.PaymentStatusRefunded {
		return nil
	}
	if err := order.MarkRefunded(); err != nil {
		log.Error("refund_state_transition_failed", zap.Error(err))
		return fmt.Errorf("compensation: mark refunded: %w", err)
	}
	if err := w.orders.Update(ctx, order); err != nil {
		log.Error("order_update_failed", zap.Error(err))
		return fmt.Errorf("compensation: update order: %w", err)
	}

	log.Info("order_refunded", zap.Int64("amount", evt.PaidAmount))
	return nil
}
