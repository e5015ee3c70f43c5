package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wilhg/xmcp/pkg/errmodel"
	"github.com/wilhg/xmcp/pkg/gate"
)

// Metrics collects the Prometheus metrics of the server.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	invocations     *prometheus.CounterVec
	toolDuration    *prometheus.HistogramVec
	rateDenials     *prometheus.CounterVec
}

// NewMetrics creates a private registry with the HTTP and tool metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xmcp_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "xmcp_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	invocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xmcp_tool_invocations_total",
		Help: "Gated tool invocations by tool and outcome.",
	}, []string{"tool", "outcome"})
	toolDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "xmcp_tool_invocation_duration_seconds",
		Help:    "Gated tool invocation latency by tool.",
		Buckets: prometheus.DefBuckets,
	}, []string{"tool"})
	denials := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xmcp_rate_limit_denials_total",
		Help: "Invocations refused by the local rate limiter, by category.",
	}, []string{"category"})
	registry.MustRegister(requests, duration, invocations, toolDuration, denials)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		invocations:     invocations,
		toolDuration:    toolDuration,
		rateDenials:     denials,
	}
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and latency per route.
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

// Observe implements gate.Observer.
func (m *Metrics) Observe(_ context.Context, o gate.Outcome) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(o.Tool, o.Outcome).Inc()
	m.toolDuration.WithLabelValues(o.Tool).Observe(o.Duration.Seconds())
	if o.Outcome == errmodel.TypeRateLimitExceeded && o.Category != "" {
		m.rateDenials.WithLabelValues(string(o.Category)).Inc()
	}
}

// Registerer exposes the registry for custom collectors.
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

// Flush keeps streaming responses working behind the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
