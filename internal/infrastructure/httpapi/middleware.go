package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mannadev/shopping-backend/internal/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// HTTPMetrics carries the request-level instruments, registered in main and
// injected here.
type HTTPMetrics struct {
	Requests  *prometheus.CounterVec   // http_requests_total{method,route,status}
	Durations *prometheus.HistogramVec // http_request_duration_seconds{method,route}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withTrace opens a server span per request with W3C propagation and stores a
// request-scoped logger carrying the request id and trace ids.
func withTrace(base *zap.Logger) func(http.Handler) http.Handler {
	tracer := otel.Tracer("shopping.http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			ctx, span := tracer.Start(parentCtx,
				r.Method+" "+routePattern(r),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.target", r.URL.Path),
					attribute.String("http.user_agent", r.UserAgent()),
				),
			)
			defer span.End()

			logger := base.With(zap.String("request_id", chimiddleware.GetReqID(ctx)))
			if sc := span.SpanContext(); sc.IsValid() {
				logger = logger.With(
					zap.String("trace_id", sc.TraceID().String()),
					zap.String("span_id", sc.SpanID().String()),
				)
			}
			ctx = logging.ContextWithLogger(ctx, logger)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// withObservation writes one access log line and the RED metrics after the
// handler completes.
func withObservation(m HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := routePattern(r)
			elapsed := time.Since(start)

			if m.Requests != nil {
				m.Requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			}
			if m.Durations != nil {
				m.Durations.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
			}

			logging.FromContext(r.Context()).Info("http_access",
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Int64("latency_ms", elapsed.Milliseconds()),
			)
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
