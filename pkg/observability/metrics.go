// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the kanal gateway.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method, status class, and model.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanal_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "model"},
	)

	// RequestDuration records HTTP request duration in seconds by method and model.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kanal_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "model"},
	)

	// StreamingConnections tracks the number of active SSE streaming connections.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kanal_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// VendorRequestsTotal counts requests dispatched to vendor backends.
	VendorRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanal_vendor_requests_total",
			Help: "Vendor requests",
		},
		[]string{"vendor", "model", "status"},
	)

	// VendorLatency records vendor dispatch latency in seconds.
	VendorLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kanal_vendor_latency_seconds",
			Help:    "Vendor latency",
			Buckets: LLMBuckets,
		},
		[]string{"vendor", "model"},
	)

	// VendorTokensTotal counts tokens processed by direction (input/output).
	VendorTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanal_vendor_tokens_total",
			Help: "Token count",
		},
		[]string{"vendor", "model", "direction"},
	)

	// OutcomesTotal counts completed gateway calls by caller and status.
	OutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanal_outcomes_total",
			Help: "Gateway call outcomes",
		},
		[]string{"caller", "model", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		VendorRequestsTotal,
		VendorLatency,
		VendorTokensTotal,
		OutcomesTotal,
	)
}
