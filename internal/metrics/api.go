package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// API/HTTP subsystem metrics
var (
	// HTTPRequestDuration tracks HTTP request latency
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestsTotal tracks total HTTP requests by route, method, status
	HTTPRequestsTotal *prometheus.CounterVec

	// WebsocketClients tracks connected event stream clients
	WebsocketClients prometheus.Gauge
)

func initAPIMetrics() {
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dirsage_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: APIBuckets,
		},
		[]string{"handler", "method", "status"},
	)

	HTTPRequestsTotal = NewCounterVec(
		"dirsage_api_requests_total",
		"Total HTTP requests processed by the dirsage API.",
		[]string{"handler", "method", "status"},
	)

	WebsocketClients = NewGauge(
		"dirsage_api_websocket_clients",
		"Connected websocket event clients.",
	)
}

func registerAPIMetrics() {
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(WebsocketClients)
}

// ObserveRequest records one HTTP request
func ObserveRequest(handler, method, status string, seconds float64) {
	Init()
	HTTPRequestDuration.WithLabelValues(handler, method, status).Observe(seconds)
	HTTPRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// SetWebsocketClients publishes the current client count
func SetWebsocketClients(n int) {
	Init()
	WebsocketClients.Set(float64(n))
}
