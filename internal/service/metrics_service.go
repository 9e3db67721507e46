package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/vozsegura-api/internal/models"
)

// MetricsService owns the Prometheus collectors and keeps running totals for the JSON snapshot.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLatency      prometheus.Histogram
	cacheWrite        prometheus.Histogram
	cacheHitRatio     prometheus.Gauge
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	reportsCreated    *prometheus.CounterVec
	reportTransitions *prometheus.CounterVec
	authAttempts      *prometheus.CounterVec
	eventsPublished   *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	reportsCreatedCount  uint64
	transitionCount      uint64
	eventsDroppedCount   uint64
}

const metricsNamespace = "vozsegura"

var httpLabels = []string{"method", "path", "status"}

func counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: metricsNamespace, Name: name, Help: help}, labels)
}

func latencyHistogram(name, help string) prometheus.Histogram {
	return prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      name,
		Help:      help,
		Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25},
	})
}

// NewMetricsService builds a private registry holding the HTTP, cache, report and event collectors.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route template",
			Buckets:   prometheus.DefBuckets,
		}, httpLabels),
		requestTotal:      counterVec("http_requests_total", "HTTP requests by route template", httpLabels...),
		cacheLatency:      latencyHistogram("cache_read_seconds", "Cache lookup latency"),
		cacheWrite:        latencyHistogram("cache_write_seconds", "Cache store latency"),
		reportsCreated:    counterVec("denuncias_created_total", "Reports created, split by anonymity", "anonima"),
		reportTransitions: counterVec("denuncia_transitions_total", "Committed report status transitions", "from", "to"),
		authAttempts:      counterVec("auth_attempts_total", "Login attempts by principal kind and outcome", "kind", "result"),
		eventsPublished:   counterVec("events_published_total", "Report lifecycle events by delivery outcome", "type", "result"),
	}
	m.cacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "cache_hit_ratio",
		Help:      "Share of cache lookups served from cache",
	})
	cacheLookups := counterVec("cache_lookups_total", "Cache lookups by outcome", "result")
	m.cacheHits = cacheLookups.WithLabelValues("hit")
	m.cacheMisses = cacheLookups.WithLabelValues("miss")

	m.registry.MustRegister(
		m.requestDuration, m.requestTotal,
		m.cacheLatency, m.cacheWrite, m.cacheHitRatio, cacheLookups,
		m.reportsCreated, m.reportTransitions, m.authAttempts, m.eventsPublished,
		collectors.NewGoCollector(),
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
	return m
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
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordReportCreated counts a new report.
func (m *MetricsService) RecordReportCreated(anonima bool) {
	if m == nil {
		return
	}
	m.reportsCreated.WithLabelValues(strconv.FormatBool(anonima)).Inc()
	atomic.AddUint64(&m.reportsCreatedCount, 1)
}

// RecordTransition counts a committed status change.
func (m *MetricsService) RecordTransition(from, to models.ReportStatus) {
	if m == nil {
		return
	}
	m.reportTransitions.WithLabelValues(string(from), string(to)).Inc()
	atomic.AddUint64(&m.transitionCount, 1)
}

// RecordLogin counts a login attempt; kind is usuario or admin.
func (m *MetricsService) RecordLogin(kind string, success bool) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.authAttempts.WithLabelValues(kind, result).Inc()
}

// RecordEvent counts an event delivery outcome: published, retried or dropped.
func (m *MetricsService) RecordEvent(eventType, result string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(eventType, result).Inc()
	if result == "dropped" {
		atomic.AddUint64(&m.eventsDroppedCount, 1)
	}
}

// Snapshot returns aggregated metrics suitable for the admin dashboard.
func (m *MetricsService) Snapshot() models.MetricsSnapshot {
	if m == nil {
		return models.MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if totalLookups := hits + misses; totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.MetricsSnapshot{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		ReportsCreated:           atomic.LoadUint64(&m.reportsCreatedCount),
		StatusTransitions:        atomic.LoadUint64(&m.transitionCount),
		EventsDropped:            atomic.LoadUint64(&m.eventsDroppedCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
