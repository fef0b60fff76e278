/*
Package metrics provides Prometheus metrics for the shoal node agent.

All metrics are registered with the default registry via Init() and served
over HTTP with Handler(), following the standard promhttp integration.

# Exposed Metrics

Pool cache:
  - shoal_pools_open: pools currently open on this node
  - shoal_pool_cache_hits_total / shoal_pool_cache_misses_total

Handle table:
  - shoal_handles_live: connection handles currently linked

Collective executor:
  - shoal_collective_duration_seconds: fan-out latency histogram

Requests:
  - shoal_requests_total{kind,status}
  - shoal_request_duration_seconds{kind}

# Usage

	metrics.Init()
	http.Handle("/metrics", metrics.Handler())

	metrics.RecordRequest("connect", failed, time.Since(start))

# Integration Points

  - pkg/pool: pool and handle gauges, cache hit/miss counters
  - pkg/target: request counters and durations
  - cmd/shoal: metrics endpoint wiring
*/
package metrics
