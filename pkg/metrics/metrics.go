// Package metrics declares the Prometheus collectors kanbax exports.
// Collectors are package-level and registered once through Register.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EntitlementDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanbax_entitlement_denials_total",
			Help: "Create attempts rejected because a plan cap was reached.",
		},
		[]string{"resource", "plan"},
	)

	EntitlementFailOpen = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanbax_entitlement_fail_open_total",
			Help: "Entitlement checks that hit a data error and allowed the operation.",
		},
		[]string{"check"},
	)

	ProviderCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanbax_billing_provider_calls_total",
			Help: "Payment provider calls by outcome.",
		},
		[]string{"provider", "operation", "outcome"},
	)

	SubscriptionFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanbax_subscription_fallbacks_total",
			Help: "Subscription changes that degraded to a fallback path.",
		},
		[]string{"reason"},
	)

	AuditAppendFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kanbax_audit_append_failures_total",
		Help: "Audit entries that could not be stored.",
	})

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanbax_http_requests_total",
			Help: "HTTP requests by route and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kanbax_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

var registerOnce sync.Once

// Register adds every collector to reg (prometheus.DefaultRegisterer when
// nil). Subsequent calls are no-ops.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(
			EntitlementDenials,
			EntitlementFailOpen,
			ProviderCalls,
			SubscriptionFallbacks,
			AuditAppendFailures,
			httpRequests,
			httpDuration,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records request counts and latency labelled by chi route pattern.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(sw.code)).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
