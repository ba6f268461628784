// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

/*
Package metrics provides Prometheus metrics collection and export.

All collectors are registered with the default registry through promauto and
exposed at /metrics:

	curl http://localhost:8080/metrics

# Available Metrics

Refresh:
  - refresh_duration_seconds (histogram)
  - refresh_cycles_total{outcome} (counter): published or failed
  - refresh_failures_total{source,stage} (counter)
  - refresh_last_success_timestamp (gauge)

Sources:
  - source_fetch_duration_seconds{source} (histogram)
  - source_fetch_errors_total{source} (counter)
  - source_rate_limited_total{source} (counter): HTTP 429 responses
  - usage_rows_total{track_set,outcome} (counter): direct, detail, unmatched, skipped

Snapshot:
  - snapshot_tracks{track_set} (gauge)
  - snapshot_cycle (gauge)
  - wiki_catalogue_titles (gauge)

API:
  - api_requests_total{method,endpoint,status_code} (counter)
  - api_request_duration_seconds{method,endpoint} (histogram)
  - api_active_requests (gauge)
  - api_rate_limit_hits_total{endpoint} (counter)

Caches, breakers, events and WebSocket:
  - cache_hits_total, cache_misses_total, cache_entries, cache_evictions_total {cache_type}
  - circuit_breaker_state, circuit_breaker_requests_total,
    circuit_breaker_consecutive_failures, circuit_breaker_state_transitions_total
  - events_published_total{topic}
  - websocket_connections, websocket_messages_sent_total,
    websocket_messages_received_total, websocket_errors_total

# Example Alerts

	- alert: RefreshFailing
	  expr: time() - refresh_last_success_timestamp > 3 * 3600
	  annotations:
	    summary: "No snapshot published for 3 hours"

	- alert: CircuitBreakerOpen
	  expr: circuit_breaker_state == 2
	  for: 5m
*/
package metrics
