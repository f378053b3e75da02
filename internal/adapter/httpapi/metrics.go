package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's prometheus collectors
type Metrics struct {
	registry *prometheus.Registry

	requestDuration    *prometheus.HistogramVec
	draftsFinalized    prometheus.Counter
	blockedTransitions prometheus.Counter
}

// NewMetrics creates the collectors on a private registry so tests can
// run several servers in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tally_http_request_duration_seconds",
			Help:    "HTTP request latency by route, method and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		draftsFinalized: factory.NewCounter(prometheus.CounterOpts{
			Name: "tally_drafts_finalized_total",
			Help: "Number of transaction drafts finalized.",
		}),
		blockedTransitions: factory.NewCounter(prometheus.CounterOpts{
			Name: "tally_blocked_transitions_total",
			Help: "Number of wizard stage transitions refused by a guard.",
		}),
	}
}

// Handler exposes the collectors for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// instrument records per-request latency labeled with the chi route pattern
func (m *Metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		m.requestDuration.WithLabelValues(
			route, r.Method, strconv.Itoa(ww.Status()),
		).Observe(time.Since(start).Seconds())
	})
}
