package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics observes the API surface plus the review actions that
// flow through it.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge
	reviewActions    *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docflow",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by route, method and status class.",
		},
		[]string{"service", "route", "method", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docflow",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "route"},
	)
	requestsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docflow",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	reviewActions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docflow",
			Subsystem: "review",
			Name:      "actions_total",
			Help:      "Total human review actions by kind and result.",
		},
		[]string{"service", "action", "result"},
	)

	registry.MustRegister(requestsTotal, requestDuration, requestsInFlight, reviewActions)

	return &HTTPServerMetrics{
		registry:         registry,
		requestsTotal:    requestsTotal,
		requestDuration:  requestDuration,
		requestsInFlight: requestsInFlight,
		reviewActions:    reviewActions,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) ObserveRequest(service, route, method string, status int, duration time.Duration) {
	class := "2xx"
	switch {
	case status >= 500:
		class = "5xx"
	case status >= 400:
		class = "4xx"
	case status >= 300:
		class = "3xx"
	}
	m.requestsTotal.WithLabelValues(service, route, method, class).Inc()
	m.requestDuration.WithLabelValues(service, route).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RequestStarted()  { m.requestsInFlight.Inc() }
func (m *HTTPServerMetrics) RequestFinished() { m.requestsInFlight.Dec() }

func (m *HTTPServerMetrics) ObserveReviewAction(service, action string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.reviewActions.WithLabelValues(service, action, result).Inc()
}
