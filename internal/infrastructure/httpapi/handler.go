package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	appcart "github.com/mannadev/shopping-backend/internal/application/cart"
	"github.com/mannadev/shopping-backend/internal/application/catalog"
	"github.com/mannadev/shopping-backend/internal/application/checkout"
	apppayment "github.com/mannadev/shopping-backend/internal/application/payment"
	domcart "github.com/mannadev/shopping-backend/internal/domain/cart"
	domorder "github.com/mannadev/shopping-backend/internal/domain/order"
	domprod "github.com/mannadev/shopping-backend/internal/domain/product"
	"go.uber.org/zap"
)

const requestTimeout = 15 * time.Second

// Handler exposes the marketplace HTTP API. Route shapes follow the original
// storefront contract; the commit endpoint is the inbound trigger for the
// order-commit protocol.
type Handler struct {
	coordinator *checkout.Coordinator
	catalog     *catalog.Service
	carts       *appcart.Service
	payments    *apppayment.Service
	log         *zap.Logger
	metrics     HTTPMetrics
}

func NewHandler(
	coordinator *checkout.Coordinator,
	catalogSvc *catalog.Service,
	cartSvc *appcart.Service,
	paymentSvc *apppayment.Service,
	logger *zap.Logger,
	metrics HTTPMetrics,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		coordinator: coordinator,
		catalog:     catalogSvc,
		carts:       cartSvc,
		payments:    paymentSvc,
		log:         logger.With(zap.String("component", "http_server")),
		metrics:     metrics,
	}
}

func (h *Handler) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID, chimiddleware.RealIP)
	r.Use(chimiddleware.Timeout(requestTimeout))
	r.Use(withTrace(h.log))
	r.Use(withObservation(h.metrics))

	r.Get("/healthz", h.handleHealth)

	r.Post("/orders", h.handleCommitOrder)
	r.Post("/customer/create-payment-session", h.handleCreatePaymentSession)
	r.Post("/customer/addtocart", h.handleAddToCart)
	r.Post("/customer/removefromcart", h.handleRemoveFromCart)
	r.Post("/customer/viewcart", h.handleViewCart)
	r.Post("/customer/vieworders", h.handleCustomerOrders)

	r.Post("/seller/addproduct", h.handleAddProduct)
	r.Post("/seller/removeproduct", h.handleRemoveProduct)
	r.Post("/seller/vieworders", h.handleSellerOrders)

	r.Post("/allproducts", h.handleAllProducts)
	r.Post("/searchproducts", h.handleSearchProducts)

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type orderItemDTO struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type commitOrderRequest struct {
	CustomerID      string         `json:"customerId"`
	Items           []orderItemDTO `json:"items"`
	CashfreeOrderID string         `json:"cashfreeOrderId"`
	TotalAmount     int64          `json:"totalAmount"`
}

type orderDTO struct {
	ID            string         `json:"id"`
	CustomerID    string         `json:"customerId"`
	Items         []orderItemDTO `json:"items"`
	TotalAmount   int64          `json:"totalAmount"`
	PaymentStatus string         `json:"paymentStatus"`
	OrderDate     time.Time      `json:"orderDate"`
}

func toOrderDTO(o *domorder.Order) orderDTO {
	items := make([]orderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemDTO{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return orderDTO{
		ID:            o.ID,
		CustomerID:    o.CustomerID,
		Items:         items,
		TotalAmount:   o.TotalAmount,
		PaymentStatus: string(o.PaymentStatus),
		OrderDate:     o.OrderDate,
	}
}

// handleCommitOrder parses and minimally validates the client input, then
// hands the claim to the Coordinator and maps its terminal outcome onto a
// status code.
func (h *Handler) handleCommitOrder(w http.ResponseWriter, r *http.Request) {
	var req commitOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CustomerID == "" || req.CashfreeOrderID == "" || len(req.Items) == 0 || req.TotalAmount <= 0 {
		writeError(w, http.StatusBadRequest, "customerId, cashfreeOrderId, items and a positive totalAmount are required")
		return
	}

	items := make([]domorder.Item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domorder.Item{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	order, err := h.coordinator.CommitOrder(r.Context(), checkout.OrderRequest{
		CustomerID:    req.CustomerID,
		GatewayRef:    req.CashfreeOrderID,
		Items:         items,
		ClaimedAmount: req.TotalAmount,
	})
	if err != nil {
		h.writeCommitError(w, order, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderDTO(order))
}

func (h *Handler) writeCommitError(w http.ResponseWriter, order *domorder.Order, err error) {
	switch {
	case errors.Is(err, checkout.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid order request")
	case errors.Is(err, checkout.ErrPaymentNotVerified):
		writeError(w, http.StatusPaymentRequired, "payment could not be confirmed; you were not charged by this order")
	case errors.Is(err, checkout.ErrGatewayUnreachable):
		writeError(w, http.StatusServiceUnavailable, "payment gateway is unavailable; please retry")
	case errors.Is(err, checkout.ErrStockShortfall), errors.Is(err, checkout.ErrProductNotFound):
		body := map[string]any{
			"message": "payment received but stock is no longer available; a refund has been initiated",
		}
		if order != nil {
			body["order"] = toOrderDTO(order)
		}
		writeJSON(w, http.StatusConflict, body)
	default:
		writeError(w, http.StatusInternalServerError, "failed to commit order")
	}
}

type createSessionRequest struct {
	CustomerID    string `json:"customerId"`
	CustomerEmail string `json:"customerEmail"`
	CustomerPhone string `json:"customerPhone"`
	TotalAmount   int64  `json:"totalAmount"`
}

type createSessionResponse struct {
	OrderID          string `json:"order_id"`
	PaymentSessionID string `json:"payment_session_id"`
	ExpectedAmount   int64  `json:"expected_amount"`
}

func (h *Handler) handleCreatePaymentSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CustomerID == "" || req.TotalAmount <= 0 {
		writeError(w, http.StatusBadRequest, "customerId and a positive totalAmount are required")
		return
	}

	session, err := h.payments.CreateSession(r.Context(), req.CustomerID, req.CustomerEmail, req.CustomerPhone, req.TotalAmount)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to create payment session")
		return
	}

	writeJSON(w, http.StatusOK, createSessionResponse{
		OrderID:          session.GatewayRef,
		PaymentSessionID: session.SessionID,
		ExpectedAmount:   session.ExpectedAmount,
	})
}

type cartMutationRequest struct {
	CustomerID string `json:"customerId"`
	ProductID  string `json:"productId"`
}

func (h *Handler) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req cartMutationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.carts.AddItem(r.Context(), req.CustomerID, req.ProductID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	case errors.Is(err, domprod.ErrNotFound):
		writeError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, appcart.ErrOutOfStock):
		writeError(w, http.StatusBadRequest, "not enough stock for this product")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	var req cartMutationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.carts.RemoveItem(r.Context(), req.CustomerID, req.ProductID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	case errors.Is(err, domcart.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, "item not in cart")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

type customerRequest struct {
	CustomerID string `json:"customerId"`
}

type cartEntryDTO struct {
	Product  productDTO `json:"product"`
	Quantity int        `json:"quantity"`
}

func (h *Handler) handleViewCart(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := decodeJSON(r, &req); err != nil || req.CustomerID == "" {
		writeError(w, http.StatusBadRequest, "customerId is required")
		return
	}

	entries, err := h.carts.View(r.Context(), req.CustomerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]cartEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, cartEntryDTO{Product: toProductDTO(e.Product), Quantity: e.Quantity})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCustomerOrders(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := decodeJSON(r, &req); err != nil || req.CustomerID == "" {
		writeError(w, http.StatusBadRequest, "customerId is required")
		return
	}

	orders, err := h.catalog.OrdersByCustomer(r.Context(), req.CustomerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTOs(orders))
}

type productDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Quantity    int    `json:"quantity"`
	SellerID    string `json:"sellerId"`
	SellerName  string `json:"sellerName"`
	Link        string `json:"link,omitempty"`
}

func toProductDTO(p *domprod.Product) productDTO {
	return productDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Quantity:    p.Quantity,
		SellerID:    p.SellerID,
		SellerName:  p.SellerName,
		Link:        p.Link,
	}
}

type addProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Quantity    int    `json:"quantity"`
	SellerID    string `json:"sellerId"`
	SellerName  string `json:"sellerName"`
	Link        string `json:"link"`
}

func (h *Handler) handleAddProduct(w http.ResponseWriter, r *http.Request) {
	var req addProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.catalog.AddProduct(r.Context(), catalog.AddProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
		SellerID:    req.SellerID,
		SellerName:  req.SellerName,
		Link:        req.Link,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "success", "productId": p.ID})
}

type removeProductRequest struct {
	SellerID  string `json:"sellerId"`
	ProductID string `json:"productId"`
}

func (h *Handler) handleRemoveProduct(w http.ResponseWriter, r *http.Request) {
	var req removeProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.catalog.RemoveProduct(r.Context(), req.SellerID, req.ProductID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	case errors.Is(err, domprod.ErrNotFound), errors.Is(err, domprod.ErrNotOwner):
		writeError(w, http.StatusNotFound, "product not found or you do not have permission to delete this product")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

type sellerRequest struct {
	SellerID string `json:"sellerId"`
}

func (h *Handler) handleSellerOrders(w http.ResponseWriter, r *http.Request) {
	var req sellerRequest
	if err := decodeJSON(r, &req); err != nil || req.SellerID == "" {
		writeError(w, http.StatusBadRequest, "sellerId is required")
		return
	}

	orders, err := h.catalog.OrdersBySeller(r.Context(), req.SellerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTOs(orders))
}

func (h *Handler) handleAllProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toProductDTOs(products))
}

type searchRequest struct {
	Name string `json:"name"`
}

func (h *Handler) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	products, err := h.catalog.Search(r.Context(), req.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toProductDTOs(products))
}

func toProductDTOs(products []*domprod.Product) []productDTO {
	out := make([]productDTO, 0, len(products))
	for _, p := range products {
		out = append(out, toProductDTO(p))
	}
	return out
}

func toOrderDTOs(orders []*domorder.Order) []orderDTO {
	out := make([]orderDTO, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderDTO(o))
	}
	return out
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"message": message})
}
