package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	domcart "github.com/mannadev/shopping-backend/internal/domain/cart"
	dominv "github.com/mannadev/shopping-backend/internal/domain/inventory"
	domorder "github.com/mannadev/shopping-backend/internal/domain/order"
	domoutbox "github.com/mannadev/shopping-backend/internal/domain/outbox"
	dompay "github.com/mannadev/shopping-backend/internal/domain/payment"
	"github.com/mannadev/shopping-backend/internal/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Terminal outcomes of the commit protocol. Callers can tell "you were not
// charged" (ErrPaymentNotVerified, ErrInvalidRequest) from "you were charged
// and we owe you a refund" (ErrStockShortfall, ErrProductNotFound after
// capture, ErrCommitFailed).
var (
	ErrInvalidRequest     = errors.New("checkout: invalid order request")
	ErrPaymentNotVerified = errors.New("checkout: payment could not be confirmed")
	ErrGatewayUnreachable = dompay.ErrGatewayUnreachable
	ErrStockShortfall     = errors.New("checkout: stock no longer available for captured payment")
	ErrProductNotFound    = errors.New("checkout: order references an unknown product")
	ErrCommitFailed       = errors.New("checkout: order commit failed")
)

const (
	commitAttempts = 2

	replayPollAttempts = 5
	replayPollDelay    = 100 * time.Millisecond

	reasonShortfallPrefix = "stock_shortfall"
	reasonMissingPrefix   = "product_missing"
	reasonCommitPrefix    = "commit_failed"
)

// OrderRequest is the ephemeral input to one commit invocation. Items and
// amount are the client's claim; the gateway reference is the authoritative
// identity.
type OrderRequest struct {
	CustomerID    string
	GatewayRef    string
	Items         []domorder.Item
	ClaimedAmount int64
}

// TerminalCache is an optional read-through cache of terminal commit
// results. A hit serves the replay without touching the order store or the
// gateway; a miss proves nothing and the store stays the source of truth.
type TerminalCache interface {
	Terminal(ctx context.Context, gatewayRef string) (*domorder.Order, bool)
	RecordTerminal(ctx context.Context, o *domorder.Order)
}

// Metrics carries the RED instruments, supplied via DI and never constructed
// inside methods.
type Metrics struct {
	Commits             *prometheus.CounterVec // commit_requests_total{outcome}
	Duration            prometheus.Histogram   // commit_duration_seconds
	CompensationPending prometheus.Counter     // compensation_pending_total
}

// Coordinator drives the order-commit protocol: verify the captured payment,
// validate stock, decrement it with rollback on partial failure, persist the
// order keyed on the gateway reference, and clear the cart best-effort.
type Coordinator struct {
	orders    domorder.Repository
	ledger    dominv.Ledger
	carts     domcart.Store
	verifier  dompay.Verifier
	publisher domoutbox.Publisher
	cache     TerminalCache
	metrics   Metrics
}

func NewCoordinator(
	orders domorder.Repository,
	ledger dominv.Ledger,
	carts domcart.Store,
	verifier dompay.Verifier,
	publisher domoutbox.Publisher,
	cache TerminalCache,
	metrics Metrics,
) *Coordinator {
	return &Coordinator{
		orders:    orders,
		ledger:    ledger,
		carts:     carts,
		verifier:  verifier,
		publisher: publisher,
		cache:     cache,
		metrics:   metrics,
	}
}

// CommitOrder runs the protocol to a terminal state. It is safe to invoke
// more than once for the same gateway reference: repeats return the already
// recorded outcome without re-verifying or touching stock again.
func (c *Coordinator) CommitOrder(ctx context.Context, req OrderRequest) (_ *domorder.Order, err error) {
	logger := logging.FromContext(ctx).With(
		zap.String("component", "checkout_coordinator"),
		zap.String("gateway_ref", req.GatewayRef),
		zap.String("customer_id", req.CustomerID),
	)
	ctx = logging.ContextWithLogger(ctx, logger)

	tracer := otel.Tracer("shopping.checkout")
	ctx, span := tracer.Start(ctx, "CommitOrder",
		trace.WithAttributes(
			attribute.String("order.gateway_ref", req.GatewayRef),
			attribute.String("order.customer_id", req.CustomerID),
			attribute.Int("order.item_count", len(req.Items)),
		))
	start := time.Now()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcomeLabel(err))
		} else {
			span.SetStatus(codes.Ok, "completed")
		}
		span.End()

		if c.metrics.Commits != nil {
			c.metrics.Commits.WithLabelValues(outcomeLabel(err)).Inc()
		}
		if c.metrics.Duration != nil {
			c.metrics.Duration.Observe(time.Since(start).Seconds())
		}
	}()

	logger.Info("commit_order_start",
		zap.Int("items", len(req.Items)),
		zap.Int64("claimed_amount", req.ClaimedAmount),
	)

	items, verr := normalizeItems(req.Items)
	if verr != nil || req.GatewayRef == "" || req.CustomerID == "" || req.ClaimedAmount <= 0 {
		return nil, ErrInvalidRequest
	}

	// Idempotency guard: the commit may already be settled. A cached terminal
	// result answers the replay without a store read.
	if c.cache != nil {
		if cached, ok := c.cache.Terminal(ctx, req.GatewayRef); ok {
			logger.Info("commit_replay_cache_hit",
				zap.String("payment_status", string(cached.PaymentStatus)))
			return c.terminalOutcome(cached)
		}
	}
	existing, gerr := c.orders.Get(ctx, req.GatewayRef)
	switch {
	case gerr == nil:
		return c.replay(ctx, existing)
	case errors.Is(gerr, domorder.ErrNotFound):
		// first commit for this reference
	default:
		return nil, fmt.Errorf("%w: load order: %w", ErrCommitFailed, gerr)
	}

	// Verifying: the gateway's answer is authoritative; the claimed amount
	// must match it exactly.
	span.AddEvent("verifying")
	verified, verifyErr := c.verifier.Verify(ctx, req.GatewayRef)
	if verifyErr != nil {
		if errors.Is(verifyErr, dompay.ErrGatewayUnreachable) {
			logger.Warn("gateway_unavailable", zap.Error(verifyErr))
			return nil, verifyErr
		}
		logger.Info("payment_rejected", zap.Error(verifyErr))
		return nil, fmt.Errorf("%w: %w", ErrPaymentNotVerified, verifyErr)
	}
	if verified.Status != dompay.StatusPaid || verified.PaidAmount != req.ClaimedAmount {
		logger.Info("payment_not_verified",
			zap.String("gateway_status", string(verified.Status)),
			zap.Int64("paid_amount", verified.PaidAmount),
			zap.Int64("claimed_amount", req.ClaimedAmount),
		)
		return nil, ErrPaymentNotVerified
	}

	// Claim the order identity before touching stock so a racing duplicate
	// of the same reference can never decrement twice.
	pending, derr := domorder.New(req.GatewayRef, req.CustomerID, items, verified.PaidAmount)
	if derr != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, derr)
	}
	if ierr := c.orders.Insert(ctx, pending); ierr != nil {
		if errors.Is(ierr, domorder.ErrConflict) {
			winner, werr := c.orders.Get(ctx, req.GatewayRef)
			if werr != nil {
				return nil, fmt.Errorf("%w: read back winner: %w", ErrCommitFailed, werr)
			}
			return c.replay(ctx, winner)
		}
		return nil, fmt.Errorf("%w: claim order: %w", ErrCommitFailed, ierr)
	}

	order, terminalErr := c.settle(ctx, pending, verified.PaidAmount, items)
	if order != nil {
		if uerr := c.orders.Update(ctx, order); uerr != nil {
			logger.Error("order_update_failed", zap.Error(uerr))
			if terminalErr == nil {
				// The Paid state could not be recorded; undo the decrements
				// rather than strand stock against a Pending order.
				c.rollback(ctx, items)
				order.MarkFailed(reasonCommitPrefix + ": persist paid state")
				_ = c.orders.Update(ctx, order)
				c.flagCompensation(ctx, order, verified.PaidAmount, order.FailureReason)
				terminalErr = fmt.Errorf("%w: persist paid state: %w", ErrCommitFailed, uerr)
			}
		}
		if c.cache != nil {
			c.cache.RecordTerminal(ctx, order)
		}
	}
	if terminalErr != nil {
		return order, terminalErr
	}

	// Cart hygiene is best-effort and outside the atomicity boundary.
	if cerr := c.carts.Clear(ctx, req.CustomerID); cerr != nil {
		logger.Warn("cart_clear_failed", zap.Error(cerr))
	}

	if c.publisher != nil {
		if perr := c.publisher.Publish(ctx, domorder.NewOrderCommittedEvent(order)); perr != nil {
			logger.Warn("order_committed_event_publish_failed", zap.Error(perr))
		}
	}

	span.AddEvent("completed")
	logger.Info("commit_order_success",
		zap.Int64("total_amount", order.TotalAmount),
	)
	return order, nil
}

// settle runs stock checking and committing for a freshly claimed order and
// leaves it in a terminal state. The returned error is the caller-facing
// terminal outcome; the returned order reflects the recorded state.
func (c *Coordinator) settle(ctx context.Context, o *domorder.Order, paidAmount int64, items []domorder.Item) (*domorder.Order, error) {
	logger := logging.FromContext(ctx)
	span := trace.SpanFromContext(ctx)

	var lastErr error
	for attempt := 0; attempt < commitAttempts; attempt++ {
		span.AddEvent("stock_checking")
		shortID, checkErr := c.checkAll(ctx, items)
		if checkErr != nil && !errors.Is(checkErr, dominv.ErrProductNotFound) {
			lastErr = checkErr
			continue
		}
		if checkErr != nil || shortID != "" {
			// Payment is captured but goods cannot be reserved; record the
			// failure with a compensation note instead of dropping it.
			reason := reasonShortfallPrefix + ": product " + shortID
			outcome := ErrStockShortfall
			if checkErr != nil {
				reason = reasonMissingPrefix + ": " + checkErr.Error()
				outcome = ErrProductNotFound
			}
			o.MarkFailed(reason)
			c.flagCompensation(ctx, o, paidAmount, reason)
			logger.Warn("stock_shortfall_after_capture",
				zap.String("reason", reason),
			)
			return o, outcome
		}

		span.AddEvent("committing")
		decErr := c.decrementAll(ctx, items)
		if decErr == nil {
			o.MarkPaid()
			return o, nil
		}
		lastErr = decErr
		logger.Warn("commit_attempt_failed",
			zap.Int("attempt", attempt+1),
			zap.Error(decErr),
		)
	}

	reason := reasonCommitPrefix
	if lastErr != nil {
		reason += ": " + lastErr.Error()
	}
	o.MarkFailed(reason)
	c.flagCompensation(ctx, o, paidAmount, reason)
	return o, fmt.Errorf("%w: %w", ErrCommitFailed, lastErr)
}

// checkAll reports the first product that cannot cover its claimed quantity.
func (c *Coordinator) checkAll(ctx context.Context, items []domorder.Item) (string, error) {
	for _, it := range items {
		ok, err := c.ledger.CheckAvailability(ctx, it.ProductID, it.Quantity)
		if err != nil {
			if errors.Is(err, dominv.ErrProductNotFound) {
				return it.ProductID, fmt.Errorf("%w: %s", dominv.ErrProductNotFound, it.ProductID)
			}
			return "", err
		}
		if !ok {
			return it.ProductID, nil
		}
	}
	return "", nil
}

// decrementAll applies all decrements in item order and rolls back every
// applied decrement when any later one fails. No partial stock loss survives.
func (c *Coordinator) decrementAll(ctx context.Context, items []domorder.Item) error {
	applied := make([]domorder.Item, 0, len(items))
	for _, it := range items {
		if err := c.ledger.Decrement(ctx, it.ProductID, it.Quantity); err != nil {
			c.rollback(ctx, applied)
			return err
		}
		applied = append(applied, it)
	}
	return nil
}

func (c *Coordinator) rollback(ctx context.Context, applied []domorder.Item) {
	logger := logging.FromContext(ctx)
	for i := len(applied) - 1; i >= 0; i-- {
		it := applied[i]
		if err := c.ledger.Increment(ctx, it.ProductID, it.Quantity); err != nil {
			// Stock is now under-counted; this needs operator attention.
			logger.Error("stock_rollback_failed",
				zap.String("product_id", it.ProductID),
				zap.Int("quantity", it.Quantity),
				zap.Error(err),
			)
			continue
		}
		logger.Info("stock_rollback",
			zap.String("product_id", it.ProductID),
			zap.Int("quantity", it.Quantity),
		)
	}
}

// flagCompensation marks a captured payment that delivered no goods. The
// shortfall event feeds the refund worker; the counter feeds the on-call
// dashboard.
func (c *Coordinator) flagCompensation(ctx context.Context, o *domorder.Order, paidAmount int64, reason string) {
	if c.metrics.CompensationPending != nil {
		c.metrics.CompensationPending.Inc()
	}
	logging.FromContext(ctx).Error("compensation_required",
		zap.String("order_id", o.ID),
		zap.Int64("paid_amount", paidAmount),
		zap.String("reason", reason),
	)
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, domorder.NewOrderStockShortfallEvent(o, paidAmount, reason)); err != nil {
		logging.FromContext(ctx).Error("stock_shortfall_event_publish_failed",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}
}

// replay maps an already recorded order onto the outcome its original commit
// returned. A Pending record means another invocation holds the claim; wait
// briefly for its terminal state instead of erroring outright.
func (c *Coordinator) replay(ctx context.Context, existing *domorder.Order) (*domorder.Order, error) {
	logger := logging.FromContext(ctx)

	for attempt := 0; !existing.Terminal() && attempt < replayPollAttempts; attempt++ {
		select {
		case <-time.After(replayPollDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrCommitFailed, ctx.Err())
		}
		refreshed, err := c.orders.Get(ctx, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: reload order: %w", ErrCommitFailed, err)
		}
		existing = refreshed
	}

	logger.Info("commit_replay",
		zap.String("payment_status", string(existing.PaymentStatus)),
	)

	if c.cache != nil && existing.Terminal() {
		c.cache.RecordTerminal(ctx, existing)
	}
	return c.terminalOutcome(existing)
}

// terminalOutcome maps a recorded order onto the error its original commit
// returned to the caller.
func (c *Coordinator) terminalOutcome(existing *domorder.Order) (*domorder.Order, error) {
	switch existing.PaymentStatus {
	case domorder.PaymentStatusPaid:
		return existing, nil
	case domorder.PaymentStatusFailed, domorder.PaymentStatusRefunded:
		switch {
		case strings.HasPrefix(existing.FailureReason, reasonShortfallPrefix):
			return existing, ErrStockShortfall
		case strings.HasPrefix(existing.FailureReason, reasonMissingPrefix):
			return existing, ErrProductNotFound
		default:
			return existing, ErrCommitFailed
		}
	default:
		return existing, fmt.Errorf("%w: commit still in progress", ErrCommitFailed)
	}
}

// normalizeItems merges duplicate product lines and fixes the decrement order
// to ascending product id, so overlapping orders never deadlock on lock order.
func normalizeItems(items []domorder.Item) ([]domorder.Item, error) {
	if len(items) == 0 {
		return nil, domorder.ErrNoItems
	}
	merged := make(map[string]int, len(items))
	for _, it := range items {
		if it.ProductID == "" || it.Quantity <= 0 {
			return nil, domorder.ErrInvalidQuantity
		}
		merged[it.ProductID] += it.Quantity
	}
	out := make([]domorder.Item, 0, len(merged))
	for id, qty := range merged {
		out = append(out, domorder.Item{ProductID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrPaymentNotVerified):
		return "payment_not_verified"
	case errors.Is(err, dompay.ErrGatewayUnreachable):
		return "gateway_unreachable"
	case errors.Is(err, ErrStockShortfall):
		return "stock_shortfall"
	case errors.Is(err, ErrProductNotFound):
		return "product_not_found"
	default:
		return "commit_failed"
	}
}
