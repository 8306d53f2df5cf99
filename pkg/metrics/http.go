package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics instruments the API server.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewHTTPMetrics creates Prometheus-backed HTTP metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewHTTPMetrics() *HTTPMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &HTTPMetrics{
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "stickerd_http_requests_total",
				Help: "Total number of HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "code"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stickerd_http_request_duration_seconds",
				Help:    "HTTP request duration by method and route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		inFlight: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "stickerd_http_requests_in_flight",
				Help: "Number of HTTP requests currently being served",
			},
		),
	}
}

// RecordRequest records one finished HTTP request.
func (m *HTTPMetrics) RecordRequest(method, route, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, code).Inc()
	m.duration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RequestStarted marks a request as in flight.
func (m *HTTPMetrics) RequestStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// RequestFinished marks a request as no longer in flight.
func (m *HTTPMetrics) RequestFinished() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}
