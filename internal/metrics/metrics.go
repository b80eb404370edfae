// Package metrics exposes Prometheus collectors for the web shell, the API
// client and the reference backend.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a registry and every fintrack metric.
type Collector struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	backendRequests *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec

	viewOperations *prometheus.CounterVec
	sessions       prometheus.Gauge

	eventsPublished *prometheus.CounterVec
}

// New creates a collector with its own registry. Process and Go runtime
// collectors are included.
func New(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests served",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latencies in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		backendRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_requests_total",
				Help:      "Total number of round trips to the finance backend",
			},
			[]string{"method", "path", "status"},
		),
		backendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backend_request_duration_seconds",
				Help:      "Finance backend round trip latency",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
			},
			[]string{"method", "path"},
		),
		viewOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "view_operations_total",
				Help:      "Resource view operations by outcome",
			},
			[]string{"resource", "operation", "outcome"},
		),
		sessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions_active",
				Help:      "Number of browser sessions currently held",
			},
		),
		eventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Change events published to the message broker",
			},
			[]string{"routing_key", "status"},
		),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.httpRequests,
		c.httpDuration,
		c.backendRequests,
		c.backendDuration,
		c.viewOperations,
		c.sessions,
		c.eventsPublished,
	)
	return c
}

// Registry returns the underlying registry, e.g. for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// RecordHTTP records one served request.
func (c *Collector) RecordHTTP(method, route string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveBackend records one API client round trip. Status 0 means the
// transport failed.
func (c *Collector) ObserveBackend(method, path string, status int, d time.Duration) {
	label := "network_error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	c.backendRequests.WithLabelValues(method, path, label).Inc()
	c.backendDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// ObserveView records the outcome of a view operation.
func (c *Collector) ObserveView(resource, operation, outcome string) {
	c.viewOperations.WithLabelValues(resource, operation, outcome).Inc()
}

// SetSessions records the number of live sessions.
func (c *Collector) SetSessions(n int) {
	c.sessions.Set(float64(n))
}

// RecordEvent records a change event publish attempt.
func (c *Collector) RecordEvent(routingKey string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	c.eventsPublished.WithLabelValues(routingKey, status).Inc()
}

// Middleware records every request that passes through next. route maps a
// request to a low-cardinality label once the handler has run.
func (c *Collector) Middleware(route func(*http.Request) string) func(http.Handler) http.Handler {
	if route == nil {
		route = PatternRoute
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			srw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(srw, r)

			c.RecordHTTP(r.Method, route(r), srw.statusCode, time.Since(start))
		})
	}
}

// PatternRoute labels requests by the ServeMux pattern that matched them.
func PatternRoute(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return "unmatched"
}

// statusResponseWriter captures the status code
type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
