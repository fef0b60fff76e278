package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pool cache metrics
	PoolsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shoal_pools_open",
			Help: "Number of pools currently open on this node",
		},
	)

	PoolCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shoal_pool_cache_hits_total",
			Help: "Pool cache lookups that found an existing pool object",
		},
	)

	PoolCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shoal_pool_cache_misses_total",
			Help: "Pool cache lookups that required creating the pool object",
		},
	)

	// Handle table metrics
	HandlesLive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shoal_handles_live",
			Help: "Number of connection handles currently linked in the table",
		},
	)

	// Collective executor metrics
	CollectiveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shoal_collective_duration_seconds",
			Help:    "Duration of collective fan-outs across execution streams",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		},
	)

	// Request metrics
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shoal_requests_total",
			Help: "Total requests handled by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shoal_request_duration_seconds",
			Help:    "Request handling duration by kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)

// Init registers all metrics with the default registry
func Init() {
	prometheus.MustRegister(
		PoolsOpen,
		PoolCacheHits,
		PoolCacheMisses,
		HandlesLive,
		CollectiveDuration,
		RequestsTotal,
		RequestDuration,
	)
}

// Handler returns the HTTP handler for the /metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRequest records one handled request.
func RecordRequest(kind string, failed bool, duration time.Duration) {
	status := "ok"
	if failed {
		status = "failed"
	}
	RequestsTotal.WithLabelValues(kind, status).Inc()
	RequestDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObserveCollective records the duration of one collective fan-out.
func ObserveCollective(d time.Duration) {
	CollectiveDuration.Observe(d.Seconds())
}
