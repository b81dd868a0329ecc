package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	RateLimitExceededTotal *prometheus.CounterVec

	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	ReconciliationsTotal *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the process-wide metrics registry, creating it on first use.
func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "reviewinn_http_requests_total",
				Help: "HTTP requests by method, path and status",
			}, []string{"method", "path", "status"}),
			HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "reviewinn_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			}, []string{"method", "path"}),
			RateLimitExceededTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "reviewinn_rate_limit_exceeded_total",
				Help: "Requests rejected by the rate limiter",
			}, []string{"scope", "path"}),
			CacheHitsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "reviewinn_cache_hits_total",
				Help: "Cache hits by namespace",
			}, []string{"namespace"}),
			CacheMissesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "reviewinn_cache_misses_total",
				Help: "Cache misses by namespace",
			}, []string{"namespace"}),
			ReconciliationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "reviewinn_counter_reconciliations_total",
				Help: "Denormalized counters corrected on read",
			}, []string{"counter"}),
		}
	})
	return instance
}

// RecordRateLimitExceeded counts a limiter rejection.
func RecordRateLimitExceeded(scope, path string) {
	Get().RateLimitExceededTotal.WithLabelValues(scope, path).Inc()
}

// RecordReconciliation counts a drifted counter healed on read.
func RecordReconciliation(counter string) {
	Get().ReconciliationsTotal.WithLabelValues(counter).Inc()
}
