// Package metrics provides Prometheus metrics for the PsychoPedia server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all collectors. Each instance owns its registry so several
// servers (and tests) can coexist in one process. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Rendering metrics
	RendersTotal    *prometheus.CounterVec
	SegmentsTotal   *prometheus.CounterVec
	HighlightRanges prometheus.Histogram

	// Highlight store metrics
	HighlightOpsTotal *prometheus.CounterVec

	// Websocket metrics
	WebsocketConnections prometheus.Gauge
	WebsocketBroadcasts  prometheus.Counter

	SearchQueriesTotal prometheus.Counter

	ServerStartTime time.Time
}

// NewMetrics creates and registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		Registry:        reg,
		ServerStartTime: time.Now(),
	}

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "psychopedia_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "psychopedia_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.HTTPRequestsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "psychopedia_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	m.RendersTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "psychopedia_paragraph_renders_total",
			Help: "Total number of rendered paragraphs",
		},
		[]string{"format"},
	)

	m.SegmentsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "psychopedia_segments_total",
			Help: "Total number of segments produced, by styling",
		},
		[]string{"kind"},
	)

	m.HighlightRanges = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "psychopedia_highlight_ranges_per_paragraph",
			Help:    "Accepted highlight ranges per rendered paragraph",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
		},
	)

	m.HighlightOpsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "psychopedia_highlight_operations_total",
			Help: "Total number of highlight store operations",
		},
		[]string{"operation", "status"},
	)

	m.WebsocketConnections = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "psychopedia_websocket_connections",
			Help: "Open article websocket connections",
		},
	)

	m.WebsocketBroadcasts = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "psychopedia_websocket_broadcasts_total",
			Help: "Total number of highlight events broadcast",
		},
	)

	m.SearchQueriesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "psychopedia_search_queries_total",
			Help: "Total number of search queries",
		},
	)

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "psychopedia_server_uptime_seconds",
			Help: "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.ServerStartTime).Seconds() },
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// RecordHTTPRequest records a finished request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRender records one rendered paragraph.
func (m *Metrics) RecordRender(format string, plain, bold, highlighted, highlightRanges int) {
	if m == nil {
		return
	}
	m.RendersTotal.WithLabelValues(format).Inc()
	m.SegmentsTotal.WithLabelValues("plain").Add(float64(plain))
	m.SegmentsTotal.WithLabelValues("bold").Add(float64(bold))
	m.SegmentsTotal.WithLabelValues("highlighted").Add(float64(highlighted))
	m.HighlightRanges.Observe(float64(highlightRanges))
}

// RecordHighlightOp records a highlight store operation.
func (m *Metrics) RecordHighlightOp(operation string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.HighlightOpsTotal.WithLabelValues(operation, status).Inc()
}

// RecordSearch counts a search query.
func (m *Metrics) RecordSearch() {
	if m == nil {
		return
	}
	m.SearchQueriesTotal.Inc()
}

// WebsocketOpened and WebsocketClosed track live connections.
func (m *Metrics) WebsocketOpened() {
	if m == nil {
		return
	}
	m.WebsocketConnections.Inc()
}

func (m *Metrics) WebsocketClosed() {
	if m == nil {
		return
	}
	m.WebsocketConnections.Dec()
}

// RecordBroadcast counts one event fanned out to an article's readers.
func (m *Metrics) RecordBroadcast() {
	if m == nil {
		return
	}
	m.WebsocketBroadcasts.Inc()
}
