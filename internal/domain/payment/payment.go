package payment

import (
	"context"
	"errors"
)

var (
	// ErrGatewayUnreachable marks transient transport failures; the verifier
	// adapter retries these with backoff before surfacing.
	ErrGatewayUnreachable = errors.New("payment: gateway unreachable")
	// ErrGatewayRejected marks a definitive gateway-side refusal.
	ErrGatewayRejected = errors.New("payment: gateway rejected request")
)

type Status string

const (
	StatusPaid    Status = "PAID"
	StatusActive  Status = "ACTIVE"
	StatusExpired Status = "EXPIRED"
	StatusFailed  Status = "FAILED"
)

// VerifiedPayment is the gateway's authoritative view of one payment session.
type VerifiedPayment struct {
	Reference  string
	Status     Status
	PaidAmount int64
	Currency   string
}

// Verifier reads payment state from the external authority. Verify is a pure
// read and safe to retry.
type Verifier interface {
	Verify(ctx context.Context, gatewayRef string) (VerifiedPayment, error)
}

// Session is a freshly created gateway payment session. ExpectedAmount is the
// server-side quote recorded at creation time.
type Session struct {
	GatewayRef     string
	SessionID      string
	ExpectedAmount int64
	Currency       string
}

// SessionCreator opens a payment session with the external authority.
type SessionCreator interface {
	CreateSession(ctx context.Context, customerID, customerEmail, customerPhone string, amount int64) (Session, error)
}

// Refunder issues a compensating refund for a captured payment.
type Refunder interface {
	Refund(ctx context.Context, gatewayRef string, amount int64, note string) error
}
