package cashfree

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	dompay "github.com/mannadev/shopping-backend/internal/domain/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Options{
		BaseURL:   srv.URL,
		AppID:     "app-id",
		SecretKey: "secret",
		ReturnURL: "https://shop.example/return",
		Retries:   2,
	})
}

func TestVerify_MapsGatewayOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/pg/orders/ref-1", r.URL.Path)
		assert.Equal(t, "2022-09-01", r.Header.Get("x-api-version"))
		assert.Equal(t, "app-id", r.Header.Get("x-client-id"))
		assert.Equal(t, "secret", r.Header.Get("x-client-secret"))

		json.NewEncoder(w).Encode(gatewayOrder{
			OrderID:       "ref-1",
			OrderStatus:   "PAID",
			OrderAmount:   123.45,
			OrderCurrency: "INR",
		})
	})

	vp, err := client.Verify(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.Equal(t, "ref-1", vp.Reference)
	assert.Equal(t, dompay.StatusPaid, vp.Status)
	assert.Equal(t, int64(12345), vp.PaidAmount, "rupees convert to paise exactly")
	assert.Equal(t, "INR", vp.Currency)
}

func TestVerify_RetriesTransientThenUnreachable(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Verify(context.Background(), "ref-1")
	require.ErrorIs(t, err, dompay.ErrGatewayUnreachable)
	assert.Equal(t, int32(2), calls.Load(), "transient failures retry up to the configured limit")
}

func TestVerify_RejectedIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.Verify(context.Background(), "ref-1")
	require.ErrorIs(t, err, dompay.ErrGatewayRejected)
	assert.Equal(t, int32(1), calls.Load(), "a definitive gateway answer must not be retried")
}

func TestVerify_RecoversAfterTransientFailure(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(gatewayOrder{OrderID: "ref-1", OrderStatus: "PAID", OrderAmount: 5})
	})

	vp, err := client.Verify(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.Equal(t, int64(500), vp.PaidAmount)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCreateSession(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/pg/orders", r.URL.Path)

		var req createOrderRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.OrderID)
		assert.Equal(t, 199.99, req.OrderAmount)
		assert.Equal(t, "INR", req.OrderCurrency)
		assert.Equal(t, "cust-1", req.CustomerDetails.CustomerID)
		assert.Equal(t, "9999999999", req.CustomerDetails.CustomerPhone, "missing phone falls back to a placeholder")
		assert.Equal(t, "https://shop.example/return", req.OrderMeta.ReturnURL)

		json.NewEncoder(w).Encode(createOrderResponse{
			OrderID:          req.OrderID,
			PaymentSessionID: "session-abc",
		})
	})

	session, err := client.CreateSession(context.Background(), "cust-1", "c@example.com", "", 19999)
	require.NoError(t, err)
	assert.NotEmpty(t, session.GatewayRef)
	assert.Equal(t, "session-abc", session.SessionID)
	assert.Equal(t, int64(19999), session.ExpectedAmount)
	assert.Equal(t, "INR", session.Currency)
}

func TestRefund(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pg/orders/ref-1/refunds", r.URL.Path)

		var req refundRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.RefundID)
		assert.Equal(t, 100.0, req.RefundAmount)
		assert.Equal(t, "stock shortfall", req.RefundNote)

		w.WriteHeader(http.StatusOK)
	})

	err := client.Refund(context.Background(), "ref-1", 10000, "stock shortfall")
	require.NoError(t, err)
}

func TestAmountConversion(t *testing.T) {
	tests := []struct {
		rupees float64
		paise  int64
	}{
		{0, 0},
		{1, 100},
		{0.01, 1},
		{123.45, 12345},
		{99.999, 10000}, // gateway amounts round to the nearest paisa
	}
	for _, tt := range tests {
		assert.Equal(t, tt.paise, toPaise(tt.rupees))
	}
	assert.Equal(t, 199.99, toRupees(19999))
}
