package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcart "github.com/mannadev/shopping-backend/internal/application/cart"
	"github.com/mannadev/shopping-backend/internal/application/catalog"
	"github.com/mannadev/shopping-backend/internal/application/checkout"
	"github.com/mannadev/shopping-backend/internal/application/compensation"
	apppayment "github.com/mannadev/shopping-backend/internal/application/payment"
	"github.com/mannadev/shopping-backend/internal/config"
	domcart "github.com/mannadev/shopping-backend/internal/domain/cart"
	domorder "github.com/mannadev/shopping-backend/internal/domain/order"
	domoutbox "github.com/mannadev/shopping-backend/internal/domain/outbox"
	domprod "github.com/mannadev/shopping-backend/internal/domain/product"
	"github.com/mannadev/shopping-backend/internal/infrastructure/cashfree"
	"github.com/mannadev/shopping-backend/internal/infrastructure/httpapi"
	"github.com/mannadev/shopping-backend/internal/infrastructure/id"
	"github.com/mannadev/shopping-backend/internal/infrastructure/inventory"
	kafkax "github.com/mannadev/shopping-backend/internal/infrastructure/kafka"
	"github.com/mannadev/shopping-backend/internal/infrastructure/memory"
	"github.com/mannadev/shopping-backend/internal/infrastructure/outbox"
	"github.com/mannadev/shopping-backend/internal/infrastructure/postgres"
	"github.com/mannadev/shopping-backend/internal/infrastructure/redisx"
	"github.com/mannadev/shopping-backend/internal/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger := logging.MustNewLogger(cfg.ServiceName, cfg.Env)
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	commitRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commit_requests_total",
			Help: "Terminal outcomes of order commit invocations.",
		},
		[]string{"outcome"},
	)
	commitDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "commit_duration_seconds",
			Help:    "Duration of order commit invocations in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
	compensationPending := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "compensation_pending_total",
			Help: "Captured payments flagged for refund.",
		},
	)
	gatewayRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Requests issued to the payment gateway.",
		},
		[]string{"endpoint", "outcome"},
	)
	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served.",
		},
		[]string{"method", "route", "status"},
	)
	httpDurations := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	prometheus.MustRegister(commitRequests, commitDuration, compensationPending,
		gatewayRequests, httpRequests, httpDurations)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		orderRepo   domorder.Repository
		productRepo domprod.Repository
		cartStore   domcart.Store
	)
	if cfg.PostgresDSN != "" {
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Fatal("postgres_connect_failed", zap.Error(err))
		}
		defer pool.Close()
		orderRepo = postgres.NewOrderRepository(pool)
		productRepo = postgres.NewProductRepository(pool)
		cartStore = postgres.NewCartStore(pool)
		logger.Info("storage_selected", zap.String("backend", "postgres"))
	} else {
		orderRepo = memory.NewOrderRepository()
		productRepo = memory.NewProductRepository()
		cartStore = memory.NewCartStore()
		logger.Info("storage_selected", zap.String("backend", "memory"))
	}

	gateway := cashfree.New(cashfree.Options{
		BaseURL:   cfg.CashfreeBaseURL,
		AppID:     cfg.CashfreeAppID,
		SecretKey: cfg.CashfreeSecretKey,
		ReturnURL: cfg.PaymentReturnURL,
		Timeout:   cfg.GatewayTimeout,
		Retries:   cfg.GatewayRetries,
		Requests:  gatewayRequests,
	})

	bus := outbox.NewBus(logger)
	bus.Start(ctx)
	defer bus.Stop(context.Background())

	// The bus stays the publisher so in-process subscribers (the refund
	// worker) always see events; Kafka gets a bridged copy when configured.
	var publisher domoutbox.Publisher = bus
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafkax.NewPublisher(cfg.KafkaBrokers, "order.events", cfg.ServiceName, logger)
		defer func() { _ = kp.Close() }()
		forward := func(ctx context.Context, e domoutbox.Event) error {
			return kp.Publish(ctx, e)
		}
		bus.Subscribe(domorder.OrderCommittedEvent{}.EventName(), forward)
		bus.Subscribe(domorder.OrderStockShortfallEvent{}.EventName(), forward)
		logger.Info("event_bridge_enabled", zap.String("backend", "kafka"))
	}

	var cache checkout.TerminalCache
	if cfg.RedisAddr != "" {
		rdb := redisx.NewClient(cfg.RedisAddr)
		defer func() { _ = rdb.Close() }()
		cache = redisx.NewOrderCache(rdb)
		logger.Info("status_cache_enabled", zap.String("addr", cfg.RedisAddr))
	}

	ledger := inventory.NewLedger(productRepo)
	coordinator := checkout.NewCoordinator(orderRepo, ledger, cartStore, gateway, publisher, cache, checkout.Metrics{
		Commits:             commitRequests,
		Duration:            commitDuration,
		CompensationPending: compensationPending,
	})

	catalogSvc := catalog.NewService(productRepo, orderRepo, id.NewUUIDGenerator())
	cartSvc := appcart.NewService(cartStore, productRepo)
	paymentSvc := apppayment.NewService(gateway)

	refundWorker := compensation.New(orderRepo, gateway, bus, logger)
	refundWorker.Start()

	handler := httpapi.NewHandler(coordinator, catalogSvc, cartSvc, paymentSvc, logger, httpapi.HTTPMetrics{
		Requests:  httpRequests,
		Durations: httpDurations,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("http_server_start", zap.String("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		logger.Info("http_server_stopped")
	}
}
