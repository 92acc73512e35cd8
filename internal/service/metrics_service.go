package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/edupay-dashboard/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
	staleResponses  prometheus.Counter
	activeViews     prometheus.Gauge
	exportsTotal    *prometheus.CounterVec
	sessionEvents   *prometheus.CounterVec

	requestCount         uint64
	requestDurationTotal uint64
	gatewayCallCount     uint64
	gatewayErrorCount    uint64
	staleCount           uint64
	viewCount            int64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	gatewayDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_duration_seconds",
		Help:    "Duration of payments gateway calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "outcome"})

	staleResponses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "list_stale_responses_total",
		Help: "Fetch responses discarded because a newer request superseded them",
	})

	activeViews := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "views_active",
		Help: "Number of mounted dashboard views",
	})

	exportsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "exports_total",
		Help: "Rendered exports by format and outcome",
	}, []string{"format", "outcome"})

	sessionEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "session_events_total",
		Help: "Identity session transitions by reason",
	}, []string{"type", "reason"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, gatewayDuration, staleResponses, activeViews, exportsTotal, sessionEvents, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		gatewayDuration: gatewayDuration,
		staleResponses:  staleResponses,
		activeViews:     activeViews,
		exportsTotal:    exportsTotal,
		sessionEvents:   sessionEvents,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveGatewayCall records the latency and outcome of one upstream call.
func (m *MetricsService) ObserveGatewayCall(endpoint, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.gatewayDuration.WithLabelValues(endpoint, outcome).Observe(duration.Seconds())
	atomic.AddUint64(&m.gatewayCallCount, 1)
	if outcome != "ok" && outcome != "canceled" {
		atomic.AddUint64(&m.gatewayErrorCount, 1)
	}
}

// RecordStaleResponse counts a fetch result dropped by last-request-wins.
func (m *MetricsService) RecordStaleResponse() {
	if m == nil {
		return
	}
	m.staleResponses.Inc()
	atomic.AddUint64(&m.staleCount, 1)
}

// ViewMounted adjusts the mounted view gauge by delta.
func (m *MetricsService) ViewMounted(delta int) {
	if m == nil {
		return
	}
	m.activeViews.Add(float64(delta))
	atomic.AddInt64(&m.viewCount, int64(delta))
}

// RecordExport counts an export attempt.
func (m *MetricsService) RecordExport(format string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.exportsTotal.WithLabelValues(format, outcome).Inc()
}

// RecordSessionEvent counts identity session transitions.
func (m *MetricsService) RecordSessionEvent(eventType, reason string) {
	if m == nil {
		return
	}
	m.sessionEvents.WithLabelValues(eventType, reason).Inc()
}

// Snapshot returns aggregated metrics for the ops endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		GatewayCalls:             atomic.LoadUint64(&m.gatewayCallCount),
		GatewayErrors:            atomic.LoadUint64(&m.gatewayErrorCount),
		StaleResponses:           atomic.LoadUint64(&m.staleCount),
		ActiveViews:              atomic.LoadInt64(&m.viewCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
