package payment

import (
	"context"
	"errors"
	"fmt"

	dompay "github.com/mannadev/shopping-backend/internal/domain/payment"
	"github.com/mannadev/shopping-backend/internal/pkg/logging"
	"go.uber.org/zap"
)

var ErrInvalidAmount = errors.New("payment: amount must be greater than zero")

// Service is the thin payment-session initiation step ahead of the commit
// protocol. The session it returns carries the server-side quoted amount so
// the handler can anchor the later commit to it.
type Service struct {
	sessions dompay.SessionCreator
}

func NewService(sessions dompay.SessionCreator) *Service {
	return &Service{sessions: sessions}
}

func (s *Service) CreateSession(ctx context.Context, customerID, customerEmail, customerPhone string, amount int64) (dompay.Session, error) {
	logger := logging.FromContext(ctx).With(zap.String("component", "payment_service"))

	if customerID == "" {
		return dompay.Session{}, errors.New("payment: customer id is required")
	}
	if amount <= 0 {
		return dompay.Session{}, ErrInvalidAmount
	}

	session, err := s.sessions.CreateSession(ctx, customerID, customerEmail, customerPhone, amount)
	if err != nil {
		return dompay.Session{}, fmt.Errorf("payment: create session: %w", err)
	}

	logger.Info("payment_session_created",
		zap.String("gateway_ref", session.GatewayRef),
		zap.Int64("amount", amount),
	)
	return session, nil
}
