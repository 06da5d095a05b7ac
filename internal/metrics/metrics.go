package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wallet_service"

// Metrics holds the service collectors. Each instance owns its registry so
// servers started side by side in tests do not collide.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	transitionsTotal    *prometheus.CounterVec
	requestsTotal       *prometheus.CounterVec
	adjustRetriesTotal  prometheus.Counter
	notifyFailuresTotal prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Committed status transitions by transaction type, target status and balance effect.",
		}, []string{"type", "status", "effect"}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wallet_requests_total",
			Help:      "Deposit, withdrawal and transfer requests by outcome.",
		}, []string{"type", "outcome"}),
		adjustRetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balance_adjust_conflicts_total",
			Help:      "Optimistic balance override attempts that lost a compare-and-swap.",
		}),
		notifyFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Notifications that could not be handed to the notifier.",
		}),
	}

	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.transitionsTotal,
		m.requestsTotal,
		m.adjustRetriesTotal,
		m.notifyFailuresTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Transition(txType, status, effect string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(txType, status, effect).Inc()
}

func (m *Metrics) Request(txType, outcome string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(txType, outcome).Inc()
}

func (m *Metrics) AdjustConflict() {
	if m == nil {
		return
	}
	m.adjustRetriesTotal.Inc()
}

func (m *Metrics) NotifyFailure() {
	if m == nil {
		return
	}
	m.notifyFailuresTotal.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency. route labels the request so
// path parameters do not explode label cardinality.
func (m *Metrics) Middleware(route func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(rec, r)

			name := route(r)
			m.httpRequestDuration.
				WithLabelValues(r.Method, name).
				Observe(time.Since(start).Seconds())
			m.httpRequestsTotal.
				WithLabelValues(r.Method, name, strconv.Itoa(rec.status)).
				Inc()
		})
	}
}
