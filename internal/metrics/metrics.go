// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for:
// - Refresh cycles and the upstream sources they read
// - The published snapshot
// - API endpoint latency and throughput
// - Caches, circuit breakers and WebSocket clients

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)

	// Refresh Metrics
	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "refresh_duration_seconds",
			Help:    "Duration of refresh cycles in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	RefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refresh_cycles_total",
			Help: "Total number of refresh cycles by outcome",
		},
		[]string{"outcome"}, // "published", "failed"
	)

	RefreshLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "refresh_last_success_timestamp",
			Help: "Unix timestamp of the last published snapshot",
		},
	)

	RefreshFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refresh_failures_total",
			Help: "Total number of failed refresh cycles by source and stage",
		},
		[]string{"source", "stage"},
	)

	// Source Metrics
	SourceFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "source_fetch_duration_seconds",
			Help:    "Duration of upstream document fetches",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	SourceFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_fetch_errors_total",
			Help: "Total number of failed upstream fetches",
		},
		[]string{"source"},
	)

	SourceRateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_rate_limited_total",
			Help: "Total number of HTTP 429 responses from upstream sources",
		},
		[]string{"source"},
	)

	// Snapshot Metrics
	TracksPerSet = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "snapshot_tracks",
			Help: "Number of tracks in the published snapshot",
		},
		[]string{"track_set"},
	)

	SnapshotCycle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapshot_cycle",
			Help: "Refresh cycle number of the published snapshot",
		},
	)

	UsageRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usage_rows_total",
			Help: "Usage table rows by reconciliation outcome",
		},
		[]string{"track_set", "outcome"}, // "direct", "detail", "unmatched", "skipped"
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"}, // "detail", "wiki_page"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of cached entries",
		},
		[]string{"cache_type"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of cache evictions (TTL expiry or size limit)",
		},
		[]string{"cache_type"},
	)

	// Wiki Metrics
	WikiCatalogueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wiki_catalogue_titles",
			Help: "Number of titles in the wiki catalogue",
		},
	)

	// Event Bus Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of events published on the in-process bus",
		},
		[]string{"topic"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of WebSocket messages received",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRefresh records the outcome of one refresh cycle. source and stage
// are only used when the cycle failed.
func RecordRefresh(duration time.Duration, published bool, source, stage string) {
	RefreshDuration.Observe(duration.Seconds())
	if published {
		RefreshTotal.WithLabelValues("published").Inc()
		RefreshLastSuccess.Set(float64(time.Now().Unix()))
		return
	}
	RefreshTotal.WithLabelValues("failed").Inc()
	RefreshFailures.WithLabelValues(source, stage).Inc()
}

// RecordSourceFetch records one upstream fetch.
func RecordSourceFetch(source string, duration time.Duration, err error) {
	SourceFetchDuration.WithLabelValues(source).Observe(duration.Seconds())
	if err != nil {
		SourceFetchErrors.WithLabelValues(source).Inc()
	}
}

// RecordUsageRows adds the per-outcome row counts of one scrape.
func RecordUsageRows(trackSet string, direct, detail, unmatched, skipped int) {
	UsageRows.WithLabelValues(trackSet, "direct").Add(float64(direct))
	UsageRows.WithLabelValues(trackSet, "detail").Add(float64(detail))
	UsageRows.WithLabelValues(trackSet, "unmatched").Add(float64(unmatched))
	UsageRows.WithLabelValues(trackSet, "skipped").Add(float64(skipped))
}

// RecordSnapshot updates the gauges describing the published snapshot.
func RecordSnapshot(cycle uint64, tracks map[string]int) {
	SnapshotCycle.Set(float64(cycle))
	for name, n := range tracks {
		TracksPerSet.WithLabelValues(name).Set(float64(n))
	}
}

// RecordCacheLookup records a hit or miss for cacheType.
func RecordCacheLookup(cacheType string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cacheType).Inc()
	} else {
		CacheMisses.WithLabelValues(cacheType).Inc()
	}
}
