package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AIX-Clever/chat-booking-admin/internal/pkg/ulid"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holalucia_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "holalucia_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "path"},
	)

	httpRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holalucia_http_rejections_total",
			Help: "Non-2xx responses grouped by reason",
		},
		[]string{"reason"},
	)

	upgradePromptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holalucia_upgrade_prompts_total",
			Help: "Responses that asked the tenant to upgrade, by route",
		},
		[]string{"path"},
	)
)

// rejectionReason buckets a failed status into a low-cardinality label.
func rejectionReason(status int) string {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return "auth"
	case status == http.StatusPaymentRequired:
		return "plan"
	case status == http.StatusTooManyRequests:
		return "rate_limit"
	case status >= http.StatusInternalServerError:
		return "server_error"
	default:
		return "client_error"
	}
}

// Metrics records request counts, latency and rejections per route.
func Metrics() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			// Route pattern is only known after routing.
			path := normalizePath(r)
			httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())

			if rec.status < http.StatusBadRequest {
				return
			}
			httpRejectionsTotal.WithLabelValues(rejectionReason(rec.status)).Inc()
			if rec.status == http.StatusPaymentRequired {
				upgradePromptsTotal.WithLabelValues(path).Inc()
			}
		})
	}
}

// normalizePath prefers the chi route pattern and otherwise replaces
// workflow ULIDs and tenant UUIDs with {id}.
func normalizePath(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}

	segments := strings.Split(r.URL.Path, "/")
	for i, seg := range segments {
		if isIdentifier(seg) {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}

func isIdentifier(seg string) bool {
	switch len(seg) {
	case 26:
		return ulid.IsValid(seg)
	case 36:
		_, err := uuid.Parse(seg)
		return err == nil
	}
	return false
}
