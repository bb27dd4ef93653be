package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drill_sandbox_http_requests_total",
			Help: "Total number of HTTP requests served by the sandbox.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "drill_sandbox_http_request_duration_seconds",
			Help:    "Sandbox HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	clientRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drill_client_requests_total",
			Help: "Total number of requests sent to the Drill REST API.",
		},
		[]string{"method", "path", "outcome"},
	)

	clientRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "drill_client_request_duration_seconds",
			Help:    "Drill REST API round trip latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		clientRequestsTotal,
		clientRequestDurationSeconds,
	)
}
