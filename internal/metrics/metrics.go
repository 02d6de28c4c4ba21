package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "agromedia"

// Metrics holds the Prometheus collectors of the HTTP server.
type Metrics struct {
	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	UpstreamFetches  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Number of HTTP requests currently being served",
			},
		),
		UpstreamFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "image_proxy",
				Name:      "upstream_fetches_total",
				Help:      "Upstream image fetches by proxy form and outcome",
			},
			[]string{"form", "outcome"},
		),
	}

	reg.MustRegister(m.RequestCounter, m.RequestDuration, m.RequestsInFlight, m.UpstreamFetches)
	return m
}

// RecordUpstream counts one upstream fetch. Safe on a nil receiver.
func (m *Metrics) RecordUpstream(form, outcome string) {
	if m == nil {
		return
	}
	m.UpstreamFetches.WithLabelValues(form, outcome).Inc()
}
