package httptransport

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/synexstock/orderflow/internal/auth"
	"github.com/synexstock/orderflow/internal/pkg/logging"
	"go.uber.org/zap"
)

// Verifier is the token check the gate trusts.
type Verifier interface {
	Verify(token string) (auth.Principal, error)
}

// publicPaths pass the gate unauthenticated. The email lookup under
// /api/auth deliberately isn't here; it requires a verified caller.
var publicPaths = []string{
	"/api/auth/signup",
	"/api/auth/login",
	"/health",
	"/metrics",
}

// Authenticate is the authorization gate: it validates the bearer token
// before any handler logic runs and attaches the request-scoped principal
// and raw credential to the context. It fails closed: no credential or a
// bad one is rejected, never downgraded to an anonymous principal.
func Authenticate(verifier Verifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, errors.New("unauthenticated"))
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, errors.New("unauthenticated"))
			return
		}

		principal, err := verifier.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, errors.New("invalid or expired token"))
			return
		}

		ctx := auth.WithPrincipal(r.Context(), principal)
		ctx = auth.WithCredential(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func isPublic(path string) bool {
	for _, p := range publicPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// requireRoles gates a handler on the principal holding at least one of
// the given roles.
func requireRoles(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.PrincipalFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, errors.New("unauthenticated"))
			return
		}
		if len(roles) > 0 && !principal.HasAnyRole(roles...) {
			writeError(w, http.StatusForbidden, errors.New("forbidden"))
			return
		}
		next(w, r)
	}
}

// RequestLogging installs a request-scoped logger and emits one access log
// line per request.
func RequestLogging(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logger.With(
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		ctx := logging.ContextWithLogger(r.Context(), reqLogger)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(recorder, r.WithContext(ctx))

		reqLogger.Info("http_request",
			zap.Int("status", recorder.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// RequestMetrics records request counts and latencies by method and status.
func RequestMetrics(requests *prometheus.CounterVec, durations *prometheus.HistogramVec, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(recorder, r)

		status := strconv.Itoa(recorder.status)
		requests.WithLabelValues(r.Method, status).Inc()
		durations.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
