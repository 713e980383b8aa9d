// ABOUTME: Prometheus collectors for connection, delivery, and ingestion activity.
// ABOUTME: Registered against a private registry so tests can construct metrics freely.

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the deskrelay collectors.
type Metrics struct {
	registry *prometheus.Registry

	// ActiveConnections is a gauge of live connections.
	// Labels: audience (customer|agent)
	ActiveConnections *prometheus.GaugeVec

	// DeliveredPayloads counts successful channel sends.
	// Labels: audience
	DeliveredPayloads *prometheus.CounterVec

	// FailedSends counts channel sends that errored.
	// Labels: audience
	FailedSends *prometheus.CounterVec

	// IngestedMessages counts pipeline units by kind and outcome.
	// Labels: kind (text|image|audio|agent_reply), outcome (ok|rejected|error)
	IngestedMessages *prometheus.CounterVec

	// Analyses counts analysis runs by outcome.
	// Labels: outcome (ok|system_error|parsing_error|api_error)
	Analyses *prometheus.CounterVec
}

// New creates and registers the deskrelay collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		ActiveConnections: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "deskrelay_active_connections",
				Help: "Current number of live connections by audience",
			},
			[]string{"audience"},
		),
		DeliveredPayloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskrelay_delivered_payloads_total",
				Help: "Total payloads delivered over live connections",
			},
			[]string{"audience"},
		),
		FailedSends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskrelay_failed_sends_total",
				Help: "Total channel sends that errored",
			},
			[]string{"audience"},
		),
		IngestedMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskrelay_ingested_messages_total",
				Help: "Total ingestion units by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		Analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskrelay_analyses_total",
				Help: "Total analysis runs by outcome",
			},
			[]string{"outcome"},
		),
	}

	reg.MustRegister(
		m.ActiveConnections,
		m.DeliveredPayloads,
		m.FailedSends,
		m.IngestedMessages,
		m.Analyses,
	)
	return m
}

// Delivered records a successful channel send.
// Implements the registry.Stats interface.
func (m *Metrics) Delivered(audience string) {
	m.DeliveredPayloads.WithLabelValues(audience).Inc()
}

// SendFailed records a channel send that errored.
// Implements the registry.Stats interface.
func (m *Metrics) SendFailed(audience string) {
	m.FailedSends.WithLabelValues(audience).Inc()
}

// RecordIngest records a pipeline unit outcome.
// Implements the pipeline.Recorder interface.
func (m *Metrics) RecordIngest(kind, outcome string) {
	m.IngestedMessages.WithLabelValues(kind, outcome).Inc()
}

// RecordAnalysis records an analysis outcome.
// Implements the pipeline.Recorder interface.
func (m *Metrics) RecordAnalysis(outcome string) {
	m.Analyses.WithLabelValues(outcome).Inc()
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
