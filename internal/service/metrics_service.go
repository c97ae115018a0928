package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the result engine.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	cacheLatency      prometheus.Observer
	reportRenders     *prometheus.CounterVec
	renderDuration    prometheus.Observer
	resultSubmissions *prometheus.CounterVec
	batchSize         prometheus.Observer
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

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups partitioned by outcome",
	}, []string{"outcome"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	reportRenders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_card_renders_total",
		Help: "Report cards rendered partitioned by layout (template or fallback)",
	}, []string{"layout"})

	renderDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "report_card_render_seconds",
		Help:    "Time spent rendering a report card document",
		Buckets: prometheus.DefBuckets,
	})

	resultSubmissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "result_submissions_total",
		Help: "Result submissions partitioned by outcome",
	}, []string{"outcome"})

	batchSize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "result_batch_items",
		Help:    "Number of items per batch submission",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLookups, cacheLatency, reportRenders, renderDuration, resultSubmissions, batchSize, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLookups:      cacheLookups,
		cacheLatency:      cacheLatency,
		reportRenders:     reportRenders,
		renderDuration:    renderDuration,
		resultSubmissions: resultSubmissions,
		batchSize:         batchSize,
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

// Registry exposes the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheLookups.WithLabelValues(outcome).Inc()
}

// RecordRender counts a rendered report card by layout.
func (m *MetricsService) RecordRender(layout string, duration time.Duration) {
	if m == nil {
		return
	}
	m.reportRenders.WithLabelValues(layout).Inc()
	m.renderDuration.Observe(duration.Seconds())
}

// RecordSubmission counts a result submission outcome ("applied" or "failed").
func (m *MetricsService) RecordSubmission(outcome string) {
	if m == nil {
		return
	}
	m.resultSubmissions.WithLabelValues(outcome).Inc()
}

// ObserveBatch records the size of a batch submission.
func (m *MetricsService) ObserveBatch(items int) {
	if m == nil {
		return
	}
	m.batchSize.Observe(float64(items))
}
