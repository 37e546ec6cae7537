package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the service's Prometheus collectors. Constructed once in
// main against the process registry; tests use a fresh registry.
type Metrics struct {
	RedirectsTotal      *prometheus.CounterVec
	LinksCreated        prometheus.Counter
	GenerationExhausted prometheus.Counter
	AnalyticsDropped    prometheus.Counter
	AnalyticsQueueDepth prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RedirectsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lynx_redirects_total",
			Help: "Redirect resolutions by outcome.",
		}, []string{"outcome"}),
		LinksCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "lynx_links_created_total",
			Help: "Successfully created short links.",
		}),
		GenerationExhausted: factory.NewCounter(prometheus.CounterOpts{
			Name: "lynx_generation_exhausted_total",
			Help: "Creations that hit the short code collision retry ceiling.",
		}),
		AnalyticsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "lynx_analytics_dropped_total",
			Help: "Click events dropped because the analytics queue was full.",
		}),
		AnalyticsQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lynx_analytics_queue_depth",
			Help: "Click events waiting in the analytics queue.",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lynx_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lynx_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// RedirectOutcome counts one resolution with the given outcome label.
func (m *Metrics) RedirectOutcome(outcome string) {
	m.RedirectsTotal.WithLabelValues(outcome).Inc()
}

// statusRecorder captures the response status for the request counter.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware instruments a handler under a fixed route label. The label is
// the route pattern, not the raw path, to keep cardinality bounded.
func (m *Metrics) Middleware(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
