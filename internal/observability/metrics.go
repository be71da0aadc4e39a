package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	separationsTotal *prometheus.CounterVec
	signOffsTotal    *prometheus.CounterVec
	revocationsTotal prometheus.Counter
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meridian_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	separations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_separations_total",
		Help: "Separation request lifecycle events by outcome.",
	}, []string{"event"})
	signOffs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_clearance_signoffs_total",
		Help: "Department clearance sign-offs by resulting status.",
	}, []string{"status"})
	revocations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meridian_access_revocations_total",
		Help: "Completed access revocations.",
	})
	registry.MustRegister(requests, duration, separations, signOffs, revocations)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		separationsTotal: separations,
		signOffsTotal:    signOffs,
		revocationsTotal: revocations,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// CountSeparationEvent records a separation lifecycle event (initiated,
// approved, rejected).
func (m *Metrics) CountSeparationEvent(event string) {
	if m == nil {
		return
	}
	m.separationsTotal.WithLabelValues(event).Inc()
}

// CountSignOff records a department sign-off with its resulting status.
func (m *Metrics) CountSignOff(status string) {
	if m == nil {
		return
	}
	m.signOffsTotal.WithLabelValues(status).Inc()
}

// CountRevocation records a completed access revocation.
func (m *Metrics) CountRevocation() {
	if m == nil {
		return
	}
	m.revocationsTotal.Inc()
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
