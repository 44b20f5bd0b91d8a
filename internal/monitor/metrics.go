package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Process-wide counters for the webhook server and the background
// workers. Everything registers on the default registry so a single
// /metrics endpoint scrapes the whole process.
var (
	httpRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milebot_http_request_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "milebot_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	paymentEventTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milebot_payment_event_total",
			Help: "Payment gateway notifications by outcome",
		},
		[]string{"outcome"},
	)

	adPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milebot_ad_publish_total",
			Help: "Group publication attempts by status",
		},
		[]string{"status"},
	)
)

// RecordHTTPRequest records one finished HTTP request.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordPaymentEvent records one webhook notification outcome.
func RecordPaymentEvent(outcome string) {
	paymentEventTotal.WithLabelValues(outcome).Inc()
}

// RecordAdPublish records one group publication attempt.
func RecordAdPublish(status string) {
	adPublishTotal.WithLabelValues(status).Inc()
}

// Handler returns the scrape endpoint for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
