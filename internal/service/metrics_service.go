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
)

const metricsNamespace = "classroom"

// Leaderboard sources recorded by ObserveRanking.
const (
	RankingSourceCache   = "cache"
	RankingSourceCompute = "compute"
)

// MetricsSnapshot summarises counters for the JSON metrics endpoint.
type MetricsSnapshot struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	RankingsComputed         uint64    `json:"rankings_computed"`
	ResultsAppended          uint64    `json:"results_appended"`
	StoreErrors              uint64    `json:"store_errors"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// MetricsService owns a private Prometheus registry plus a few atomic totals
// for the JSON snapshot. A nil *MetricsService is a valid no-op.
type MetricsService struct {
	handler http.Handler

	httpDuration    *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	cacheLatency    *prometheus.HistogramVec
	rankingDuration *prometheus.HistogramVec
	leaderboardSize *prometheus.GaugeVec
	resultsAppended *prometheus.CounterVec
	storeErrors     *prometheus.CounterVec

	requests        atomic.Uint64
	requestNanos    atomic.Uint64
	cacheHits       atomic.Uint64
	cacheMisses     atomic.Uint64
	rankings        atomic.Uint64
	appended        atomic.Uint64
	storeErrorTotal atomic.Uint64
}

// NewMetricsService registers the HTTP, cache, ranking and store collectors.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route template.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served by route template.",
		}, []string{"method", "route", "status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Leaderboard cache lookups by outcome.",
		}, []string{"result"}),
		cacheLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "operation_seconds",
			Help:      "Leaderboard cache round trips.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}, []string{"op"}),
		rankingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "ranking",
			Name:      "duration_seconds",
			Help:      "Time to produce a leaderboard.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		leaderboardSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "ranking",
			Name:      "leaderboard_entries",
			Help:      "Ranked students in the last computed leaderboard per exam.",
		}, []string{"exam_id"}),
		resultsAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "results",
			Name:      "appended_total",
			Help:      "Exam attempts accepted.",
		}, []string{"exam_id"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Key-value store failures by operation.",
		}, []string{"operation"}),
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpDuration, m.httpRequests,
		m.cacheLookups, m.cacheLatency,
		m.rankingDuration, m.leaderboardSize,
		m.resultsAppended, m.storeErrors,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
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

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	m.httpRequests.WithLabelValues(method, route, code).Inc()
	m.requests.Add(1)
	m.requestNanos.Add(uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a cache read and its outcome.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("get").Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		m.cacheHits.Add(1)
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
	m.cacheMisses.Add(1)
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("set").Observe(duration.Seconds())
}

// ObserveRanking records how a leaderboard was produced and its size.
func (m *MetricsService) ObserveRanking(examID, source string, entries int, duration time.Duration) {
	if m == nil {
		return
	}
	m.rankingDuration.WithLabelValues(source).Observe(duration.Seconds())
	if source == RankingSourceCompute {
		m.leaderboardSize.WithLabelValues(examID).Set(float64(entries))
		m.rankings.Add(1)
	}
}

// IncResultsAppended counts an accepted exam attempt.
func (m *MetricsService) IncResultsAppended(examID string) {
	if m == nil {
		return
	}
	m.resultsAppended.WithLabelValues(examID).Inc()
	m.appended.Add(1)
}

// IncStoreError counts a failed store operation.
func (m *MetricsService) IncStoreError(operation string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(operation).Inc()
	m.storeErrorTotal.Add(1)
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Goroutines: runtime.NumGoroutine(), GeneratedAt: time.Now().UTC()}
	if m == nil {
		return snap
	}

	snap.CacheHits = m.cacheHits.Load()
	snap.CacheMisses = m.cacheMisses.Load()
	if lookups := snap.CacheHits + snap.CacheMisses; lookups > 0 {
		snap.CacheHitRatio = float64(snap.CacheHits) / float64(lookups)
	}
	snap.RequestsTotal = m.requests.Load()
	if snap.RequestsTotal > 0 {
		snap.AverageRequestDurationMs = float64(m.requestNanos.Load()) / float64(snap.RequestsTotal) / float64(time.Millisecond)
	}
	snap.RankingsComputed = m.rankings.Load()
	snap.ResultsAppended = m.appended.Load()
	snap.StoreErrors = m.storeErrorTotal.Load()
	return snap
}
