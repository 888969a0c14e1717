// Package metrics registers the Prometheus metrics imsd exposes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector the server registers.
type Metrics struct {
	IncidentsCreated    prometheus.Counter
	IncidentsEdited     *prometheus.CounterVec
	FieldReportsCreated prometheus.Counter
	FieldReportsEdited  *prometheus.CounterVec
	AuthFailures        prometheus.Counter
	SSEListeners        prometheus.Gauge
	SSEFramesSent       prometheus.Counter
	SSEListenerDrops    prometheus.Counter
	DirectoryBreakerOpen prometheus.Gauge
	EndpointLatency     *prometheus.HistogramVec
}

// New constructs and registers the collectors.
func New() *Metrics {
	return &Metrics{
		IncidentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ims_incidents_created_total",
			Help: "Total number of incidents created across all events.",
		}),
		IncidentsEdited: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ims_incidents_edited_total",
			Help: "Total number of incident edits, labeled by the field changed.",
		}, []string{"field"}),
		FieldReportsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ims_field_reports_created_total",
			Help: "Total number of field reports created across all events.",
		}),
		FieldReportsEdited: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ims_field_reports_edited_total",
			Help: "Total number of field report edits, labeled by the field changed.",
		}, []string{"field"}),
		AuthFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ims_auth_failures_total",
			Help: "Total number of authentication failures.",
		}),
		SSEListeners: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ims_sse_listeners",
			Help: "Current number of open event-source connections.",
		}),
		SSEFramesSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ims_sse_frames_sent_total",
			Help: "Total number of SSE frames written to listeners.",
		}),
		SSEListenerDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ims_sse_listener_drops_total",
			Help: "Total number of listeners removed after a failed write.",
		}),
		DirectoryBreakerOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ims_directory_breaker_open",
			Help: "1 when the personnel directory circuit breaker is open, 0 otherwise.",
		}),
		EndpointLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ims_endpoint_latency_seconds",
			Help:    "Latency of API endpoints in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

func (m *Metrics) IncrementIncidentsCreated() {
	m.IncidentsCreated.Inc()
}

func (m *Metrics) IncrementIncidentsEdited(field string) {
	m.IncidentsEdited.WithLabelValues(field).Inc()
}

func (m *Metrics) IncrementFieldReportsCreated() {
	m.FieldReportsCreated.Inc()
}

func (m *Metrics) IncrementFieldReportsEdited(field string) {
	m.FieldReportsEdited.WithLabelValues(field).Inc()
}

func (m *Metrics) IncrementAuthFailures() {
	m.AuthFailures.Inc()
}

func (m *Metrics) IncrementSSEListeners() {
	m.SSEListeners.Inc()
}

func (m *Metrics) DecrementSSEListeners() {
	m.SSEListeners.Dec()
}

func (m *Metrics) IncrementSSEFramesSent() {
	m.SSEFramesSent.Inc()
}

func (m *Metrics) IncrementSSEListenerDrops() {
	m.SSEListenerDrops.Inc()
}

func (m *Metrics) SetDirectoryBreakerOpen(open bool) {
	if open {
		m.DirectoryBreakerOpen.Set(1)
		return
	}
	m.DirectoryBreakerOpen.Set(0)
}

// ObserveEndpointLatency records the latency for a given endpoint.
func (m *Metrics) ObserveEndpointLatency(endpoint string, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(endpoint).Observe(durationSeconds)
}
