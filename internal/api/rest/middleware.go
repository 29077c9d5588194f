package rest

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apperrors "github.com/operationseasyfi/ai-voice-agent/internal/domain/errors"
	"github.com/operationseasyfi/ai-voice-agent/internal/infrastructure/telemetry"
)

// HTTPMetrics records served requests
type HTTPMetrics interface {
	ObserveHTTPRequest(method, route string, status int, elapsed time.Duration)
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// tracingMiddleware starts a server span per request. The span is renamed
// to the matched route once routing has run.
func tracingMiddleware(tracer trace.Tracer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.target", r.URL.Path),
				),
			)
			defer span.End()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			route := routePattern(r)
			span.SetName(r.Method + " " + route)
			span.SetAttributes(
				attribute.String("http.route", route),
				attribute.Int("http.status_code", ww.Status()),
			)
			if ww.Status() >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(ww.Status()))
			}
		})
	}
}

// loggingMiddleware logs every request with its status and latency
func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			telemetry.WithContext(r.Context(), logger).Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}

// recoveryMiddleware turns a handler panic into a 500
// recoveryMiddleware follows middleware.Recoverer but logs through zap and
// answers with the JSON error envelope instead of a bare 500.
func recoveryMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					telemetry.WithContext(r.Context(), logger).Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.ByteString("stack", debug.Stack()))
					writeErrorBody(w, r, http.StatusInternalServerError, ErrorBody{
						Code:    "INTERNAL_ERROR",
						Message: "an internal error occurred",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func metricsMiddleware(m HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			m.ObserveHTTPRequest(r.Method, routePattern(r), ww.Status(), time.Since(start))
		})
	}
}

// clientLimiter keeps one token bucket per client address
type clientLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientBucket
	limit    rate.Limit
	burst    int
	idle     time.Duration
	lastScan time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(rps, burst int) *clientLimiter {
	if burst <= 0 {
		burst = rps
	}
	return &clientLimiter{
		limiters: make(map[string]*clientBucket),
		limit:    rate.Limit(rps),
		burst:    burst,
		idle:     5 * time.Minute,
	}
}

func (l *clientLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastScan) > l.idle {
		for k, b := range l.limiters {
			if now.Sub(b.lastSeen) > l.idle {
				delete(l.limiters, k)
			}
		}
		l.lastScan = now
	}

	b, ok := l.limiters[key]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// rateLimitMiddleware rejects clients that exceed their token bucket
func rateLimitMiddleware(rps, burst int) func(http.Handler) http.Handler {
	limiter := newClientLimiter(rps, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.allow(clientKey(r), time.Now()) {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rps))
				w.Header().Set("Retry-After", "1")
				writeErrorBody(w, r, http.StatusTooManyRequests, ErrorBody{
					Code:    "RATE_LIMIT_EXCEEDED",
					Message: "too many requests",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// authMiddleware requires an HS256 bearer token signed with secret
func authMiddleware(secret []byte) func(http.Handler) http.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
	)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err == nil {
				_, err = parser.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(*jwt.Token) (interface{}, error) {
					return secret, nil
				})
			}
			if err != nil {
				trace.SpanFromContext(r.Context()).RecordError(err)
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				writeError(w, r, apperrors.NewUnauthorizedError("invalid or expired token").WithCause(err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

var errNoToken = errors.New("no authorization token provided")

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errNoToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", fmt.Errorf("invalid authorization header format")
	}
	return token, nil
}
