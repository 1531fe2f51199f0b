package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	appcart "github.com/mannadev/shopping-backend/internal/application/cart"
	"github.com/mannadev/shopping-backend/internal/application/catalog"
	"github.com/mannadev/shopping-backend/internal/application/checkout"
	apppayment "github.com/mannadev/shopping-backend/internal/application/payment"
	dompay "github.com/mannadev/shopping-backend/internal/domain/payment"
	domprod "github.com/mannadev/shopping-backend/internal/domain/product"
	"github.com/mannadev/shopping-backend/internal/infrastructure/id"
	"github.com/mannadev/shopping-backend/internal/infrastructure/inventory"
	"github.com/mannadev/shopping-backend/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedVerifier struct {
	payment dompay.VerifiedPayment
	err     error
}

func (v fixedVerifier) Verify(context.Context, string) (dompay.VerifiedPayment, error) {
	return v.payment, v.err
}

type fixedSessionCreator struct {
	session dompay.Session
	err     error
}

func (s fixedSessionCreator) CreateSession(context.Context, string, string, string, int64) (dompay.Session, error) {
	return s.session, s.err
}

type fixture struct {
	router   http.Handler
	products *memory.ProductRepository
}

func newFixture(t *testing.T, verifier dompay.Verifier, sessions dompay.SessionCreator) *fixture {
	t.Helper()
	products := memory.NewProductRepository()
	orders := memory.NewOrderRepository()
	carts := memory.NewCartStore()

	coordinator := checkout.NewCoordinator(orders, inventory.NewLedger(products), carts,
		verifier, nil, nil, checkout.Metrics{})
	handler := NewHandler(
		coordinator,
		catalog.NewService(products, orders, id.NewUUIDGenerator()),
		appcart.NewService(carts, products),
		apppayment.NewService(sessions),
		nil,
		HTTPMetrics{},
	)
	return &fixture{router: handler.Router(), products: products}
}

func (f *fixture) seedProduct(t *testing.T, pid string, price int64, quantity int) {
	t.Helper()
	p, err := domprod.New(pid, "product "+pid, "", price, quantity, "seller-1", "Seller One", "")
	require.NoError(t, err)
	require.NoError(t, f.products.Insert(context.Background(), p))
}

func (f *fixture) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func paidVerifier(amount int64) fixedVerifier {
	return fixedVerifier{payment: dompay.VerifiedPayment{
		Status: dompay.StatusPaid, PaidAmount: amount, Currency: "INR",
	}}
}

func TestCommitOrderEndpoint_Success(t *testing.T) {
	f := newFixture(t, paidVerifier(500), nil)
	f.seedProduct(t, "p1", 250, 4)

	rec := f.post(t, "/orders", map[string]any{
		"customerId":      "cust-1",
		"cashfreeOrderId": "ref-1",
		"totalAmount":     500,
		"items":           []map[string]any{{"productId": "p1", "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out struct {
		ID            string `json:"id"`
		PaymentStatus string `json:"paymentStatus"`
		TotalAmount   int64  `json:"totalAmount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "ref-1", out.ID)
	assert.Equal(t, "paid", out.PaymentStatus)
	assert.Equal(t, int64(500), out.TotalAmount)
}

func TestCommitOrderEndpoint_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		verifier dompay.Verifier
		stock    int
		want     int
	}{
		{
			name:     "payment not verified",
			verifier: fixedVerifier{payment: dompay.VerifiedPayment{Status: dompay.StatusActive}},
			stock:    4,
			want:     http.StatusPaymentRequired,
		},
		{
			name:     "gateway unreachable",
			verifier: fixedVerifier{err: dompay.ErrGatewayUnreachable},
			stock:    4,
			want:     http.StatusServiceUnavailable,
		},
		{
			name:     "stock shortfall",
			verifier: paidVerifier(500),
			stock:    1,
			want:     http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.verifier, nil)
			f.seedProduct(t, "p1", 250, tt.stock)

			rec := f.post(t, "/orders", map[string]any{
				"customerId":      "cust-1",
				"cashfreeOrderId": "ref-1",
				"totalAmount":     500,
				"items":           []map[string]any{{"productId": "p1", "quantity": 2}},
			})
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestCommitOrderEndpoint_BadRequest(t *testing.T) {
	f := newFixture(t, paidVerifier(500), nil)

	rec := f.post(t, "/orders", map[string]any{
		"customerId": "cust-1",
		// no gateway reference
		"totalAmount": 500,
		"items":       []map[string]any{{"productId": "p1", "quantity": 2}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePaymentSessionEndpoint(t *testing.T) {
	f := newFixture(t, nil, fixedSessionCreator{session: dompay.Session{
		GatewayRef:     "order_abc",
		SessionID:      "session-1",
		ExpectedAmount: 500,
		Currency:       "INR",
	}})

	rec := f.post(t, "/customer/create-payment-session", map[string]any{
		"customerId":  "cust-1",
		"totalAmount": 500,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		OrderID          string `json:"order_id"`
		PaymentSessionID string `json:"payment_session_id"`
		ExpectedAmount   int64  `json:"expected_amount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "order_abc", out.OrderID)
	assert.Equal(t, "session-1", out.PaymentSessionID)
	assert.Equal(t, int64(500), out.ExpectedAmount)
}

func TestCartEndpoints(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.seedProduct(t, "p1", 250, 2)

	rec := f.post(t, "/customer/addtocart", map[string]any{"customerId": "cust-1", "productId": "p1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.post(t, "/customer/addtocart", map[string]any{"customerId": "cust-1", "productId": "ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.post(t, "/customer/viewcart", map[string]any{"customerId": "cust-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []struct {
		Quantity int `json:"quantity"`
		Product  struct {
			ID string `json:"id"`
		} `json:"product"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "p1", entries[0].Product.ID)
	assert.Equal(t, 1, entries[0].Quantity)

	rec = f.post(t, "/customer/removefromcart", map[string]any{"customerId": "cust-1", "productId": "p1"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.post(t, "/customer/removefromcart", map[string]any{"customerId": "cust-1", "productId": "p1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSellerEndpoints(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.post(t, "/seller/addproduct", map[string]any{
		"name":       "Kettle",
		"price":      150000,
		"quantity":   3,
		"sellerId":   "seller-1",
		"sellerName": "Seller One",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ProductID string `json:"productId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ProductID)

	rec = f.post(t, "/seller/removeproduct", map[string]any{
		"sellerId":  "seller-2",
		"productId": created.ProductID,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code, "foreign seller must not delete the product")

	rec = f.post(t, "/seller/removeproduct", map[string]any{
		"sellerId":  "seller-1",
		"productId": created.ProductID,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCatalogEndpoints(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.seedProduct(t, "p1", 250, 2)
	f.seedProduct(t, "p2", 300, 2)

	rec := f.post(t, "/allproducts", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)
	var all []productDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 2)

	rec = f.post(t, "/searchproducts", map[string]any{"name": "product p1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var found []productDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	require.Len(t, found, 1)
	assert.Equal(t, "p1", found[0].ID)
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
