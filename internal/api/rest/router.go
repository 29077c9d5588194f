// Package rest exposes the intake service to the voice runtime over HTTP.
package rest

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/operationseasyfi/ai-voice-agent/internal/infrastructure/config"
	"github.com/operationseasyfi/ai-voice-agent/internal/service/intake"
)

// HealthChecker reports whether a dependency is usable
type HealthChecker func(ctx context.Context) error

// Config wires the router's collaborators. Metrics, Gatherer, Health and
// Tracer are optional; an empty JWTSecret leaves the call routes open.
type Config struct {
	Intake    intake.Service
	Logger    *zap.Logger
	Metrics   HTTPMetrics
	Gatherer  prometheus.Gatherer
	Health    HealthChecker
	Tracer    trace.Tracer
	JWTSecret string
	RateLimit config.RateLimitConfig
}

// NewRouter builds the HTTP handler
func NewRouter(cfg Config) http.Handler {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("api.rest")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(tracingMiddleware(tracer))
	r.Use(recoveryMiddleware(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(metricsMiddleware(cfg.Metrics))
	}

	r.Get("/healthz", healthHandler(cfg.Health))
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	h := NewHandlers(cfg.Intake, cfg.Logger)
	r.Route("/v1/calls", func(r chi.Router) {
		r.Use(loggingMiddleware(cfg.Logger))
		if cfg.RateLimit.RequestsPerSecond > 0 {
			r.Use(rateLimitMiddleware(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize))
		}
		if cfg.JWTSecret != "" {
			r.Use(authMiddleware([]byte(cfg.JWTSecret)))
		}
		r.Post("/turn", h.Turn)
		r.Post("/end", h.EndCall)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErrorBody(w, r, http.StatusNotFound, ErrorBody{Code: "NOT_FOUND", Message: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErrorBody(w, r, http.StatusMethodNotAllowed, ErrorBody{Code: "METHOD_NOT_ALLOWED", Message: "method not allowed"})
	})

	return r
}

func healthHandler(check HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
