// Package metrics holds the prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	historyCommits      *prometheus.CounterVec
	sessionsActive      prometheus.Gauge
	imports             *prometheus.CounterVec
	exports             *prometheus.CounterVec
}

// New creates the collectors and registers them, plus the Go runtime and
// process collectors, on reg. A nil reg gets a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: reg,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"path", "method", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
		historyCommits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "editor_history_commits_total",
				Help: "History snapshots committed by editing sessions",
			},
			[]string{"reason"},
		),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "editor_sessions_active",
			Help: "Open editing sessions",
		}),
		imports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "template_imports_total",
				Help: "Template imports by source and result",
			},
			[]string{"source", "result"},
		),
		exports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "template_exports_total",
				Help: "Template exports by format and result",
			},
			[]string{"format", "result"},
		),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.historyCommits,
		m.sessionsActive,
		m.imports,
		m.exports,
	)
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and durations. The path label is the
// chi route pattern so ids do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		path := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			path = rc.RoutePattern()
		}
		m.httpRequestsTotal.WithLabelValues(path, r.Method, strconv.Itoa(status)).Inc()
		m.httpRequestDuration.WithLabelValues(path, r.Method).Observe(time.Since(start).Seconds())
	})
}

// Commit counts one history commit.
func (m *Metrics) Commit(reason string) {
	if m == nil {
		return
	}
	m.historyCommits.WithLabelValues(reason).Inc()
}

// SetSessions records the number of open sessions.
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessionsActive.Set(float64(n))
}

// Import counts one import attempt from source ("html", "json").
func (m *Metrics) Import(source string, err error) {
	if m == nil {
		return
	}
	m.imports.WithLabelValues(source, result(err)).Inc()
}

// Export counts one export attempt in format ("png", "json").
func (m *Metrics) Export(format string, err error) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
