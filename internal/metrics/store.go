package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search engine Prometheus metrics.
var (
	StoreRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trackdex",
			Name:      "store_requests_total",
			Help:      "Total number of search engine requests",
		},
		[]string{"op", "index", "status"},
	)

	StoreRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trackdex",
			Name:      "store_request_duration_seconds",
			Help:      "Search engine request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"op", "index"},
	)
)

var storeMetricsRegistered bool

// RegisterStoreMetrics registers Prometheus search engine metrics. Must be called once from main.
func RegisterStoreMetrics() {
	if storeMetricsRegistered {
		return
	}
	prometheus.MustRegister(StoreRequestsTotal)
	prometheus.MustRegister(StoreRequestDuration)
	storeMetricsRegistered = true
}
