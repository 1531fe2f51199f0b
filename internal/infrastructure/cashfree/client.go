package cashfree

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	dompay "github.com/mannadev/shopping-backend/internal/domain/payment"
	"github.com/mannadev/shopping-backend/internal/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	apiVersion     = "2022-09-01"
	defaultRetries = 3
	backoffBase    = 200 * time.Millisecond
)

// Client talks to the Cashfree payment-gateway REST API. It implements the
// payment Verifier, SessionCreator and Refunder contracts. Verify retries
// transient failures with exponential backoff before surfacing
// ErrGatewayUnreachable; a 4xx answer is never retried.
type Client struct {
	baseURL   string
	appID     string
	secretKey string
	returnURL string
	retries   int
	http      *http.Client
	requests  *prometheus.CounterVec // gateway_requests_total{endpoint,outcome}, optional
}

type Options struct {
	BaseURL   string
	AppID     string
	SecretKey string
	ReturnURL string
	Timeout   time.Duration
	Retries   int
	Requests  *prometheus.CounterVec
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	retries := opts.Retries
	if retries <= 0 {
		retries = defaultRetries
	}
	return &Client{
		baseURL:   opts.BaseURL,
		appID:     opts.AppID,
		secretKey: opts.SecretKey,
		returnURL: opts.ReturnURL,
		retries:   retries,
		http:      &http.Client{Timeout: timeout},
		requests:  opts.Requests,
	}
}

type gatewayOrder struct {
	OrderID       string  `json:"order_id"`
	OrderStatus   string  `json:"order_status"`
	OrderAmount   float64 `json:"order_amount"`
	OrderCurrency string  `json:"order_currency"`
}

// Verify fetches the authoritative payment state for one gateway reference.
func (c *Client) Verify(ctx context.Context, gatewayRef string) (dompay.VerifiedPayment, error) {
	var out gatewayOrder
	err := c.withRetry(ctx, "get_order", func() error {
		return c.do(ctx, http.MethodGet, "/pg/orders/"+gatewayRef, nil, &out)
	})
	if err != nil {
		return dompay.VerifiedPayment{}, err
	}

	return dompay.VerifiedPayment{
		Reference:  out.OrderID,
		Status:     dompay.Status(out.OrderStatus),
		PaidAmount: toPaise(out.OrderAmount),
		Currency:   out.OrderCurrency,
	}, nil
}

type createOrderRequest struct {
	OrderID         string          `json:"order_id"`
	OrderAmount     float64         `json:"order_amount"`
	OrderCurrency   string          `json:"order_currency"`
	CustomerDetails customerDetails `json:"customer_details"`
	OrderMeta       orderMeta       `json:"order_meta"`
}

type customerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone"`
}

type orderMeta struct {
	ReturnURL string `json:"return_url,omitempty"`
}

type createOrderResponse struct {
	OrderID          string `json:"order_id"`
	PaymentSessionID string `json:"payment_session_id"`
}

// CreateSession opens a gateway payment session for the given amount. The
// gateway reference is generated here and becomes the order identity later.
func (c *Client) CreateSession(ctx context.Context, customerID, customerEmail, customerPhone string, amount int64) (dompay.Session, error) {
	if customerPhone == "" {
		customerPhone = "9999999999"
	}
	req := createOrderRequest{
		OrderID:       "order_" + uuid.NewString(),
		OrderAmount:   toRupees(amount),
		OrderCurrency: "INR",
		CustomerDetails: customerDetails{
			CustomerID:    customerID,
			CustomerEmail: customerEmail,
			CustomerPhone: customerPhone,
		},
		OrderMeta: orderMeta{ReturnURL: c.returnURL},
	}

	var out createOrderResponse
	err := c.do(ctx, http.MethodPost, "/pg/orders", req, &out)
	c.count("create_session", err)
	if err != nil {
		c.logFailure(ctx, "create_session", err)
		return dompay.Session{}, err
	}

	ref := out.OrderID
	if ref == "" {
		ref = req.OrderID
	}
	return dompay.Session{
		GatewayRef:     ref,
		SessionID:      out.PaymentSessionID,
		ExpectedAmount: amount,
		Currency:       req.OrderCurrency,
	}, nil
}

type refundRequest struct {
	RefundID     string  `json:"refund_id"`
	RefundAmount float64 `json:"refund_amount"`
	RefundNote   string  `json:"refund_note,omitempty"`
}

// Refund issues a compensating refund for a captured payment.
func (c *Client) Refund(ctx context.Context, gatewayRef string, amount int64, note string) error {
	req := refundRequest{
		RefundID:     "refund_" + uuid.NewString(),
		RefundAmount: toRupees(amount),
		RefundNote:   note,
	}
	err := c.do(ctx, http.MethodPost, "/pg/orders/"+gatewayRef+"/refunds", req, nil)
	c.count("refund", err)
	if err != nil {
		c.logFailure(ctx, "refund", err)
		return err
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("cashfree: encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("cashfree: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-version", apiVersion)
	req.Header.Set("x-client-id", c.appID)
	req.Header.Set("x-client-secret", c.secretKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", dompay.ErrGatewayUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", dompay.ErrGatewayUnreachable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: status %d", dompay.ErrGatewayRejected, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("cashfree: decode response: %w", err)
	}
	return nil
}

// withRetry re-runs fn on transient failures only, backing off exponentially.
func (c *Client) withRetry(ctx context.Context, endpoint string, fn func() error) error {
	var err error
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoffBase << (attempt - 1)):
			case <-ctx.Done():
				return fmt.Errorf("%w: %w", dompay.ErrGatewayUnreachable, ctx.Err())
			}
		}

		err = fn()
		c.count(endpoint, err)
		if err == nil || !errors.Is(err, dompay.ErrGatewayUnreachable) {
			return err
		}
		logging.FromContext(ctx).Warn("gateway_retry",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return err
}

func (c *Client) count(endpoint string, err error) {
	if c.requests == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.requests.WithLabelValues(endpoint, outcome).Inc()
}

func (c *Client) logFailure(ctx context.Context, endpoint string, err error) {
	logging.FromContext(ctx).Error("gateway_request_failed",
		zap.String("endpoint", endpoint),
		zap.Error(err),
	)
}

func toPaise(rupees float64) int64 {
	return int64(math.Round(rupees * 100))
}

func toRupees(paise int64) float64 {
	return float64(paise) / 100
}
