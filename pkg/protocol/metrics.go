package protocol

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks protocol-level Prometheus metrics.
//
// All metrics use the zkauth_ prefix. A nil *Metrics is a valid no-op
// collector; every method checks the receiver so the handler can run
// without metrics wired.
type Metrics struct {
	// ConnectionsTotal counts accepted connections
	ConnectionsTotal prometheus.Counter

	// ActiveConnections tracks currently open connections
	ActiveConnections prometheus.Gauge

	// MessagesTotal counts received frames by message kind
	MessagesTotal *prometheus.CounterVec

	// ErrorsTotal counts protocol errors sent by error label
	ErrorsTotal *prometheus.CounterVec

	// AuthTotal counts authentication outcomes
	AuthTotal *prometheus.CounterVec

	// AuthDuration tracks challenge verification latency
	AuthDuration prometheus.Histogram

	// RegistrationsTotal counts successful account registrations
	RegistrationsTotal prometheus.Counter

	// PairingsTotal counts pairing outcomes
	PairingsTotal *prometheus.CounterVec

	// PendingPairings tracks connections awaiting pairing confirmation
	PendingPairings prometheus.Gauge
}

// NewMetrics creates protocol metrics registered against reg. Panics if
// registration fails (expected during initialization only).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "zkauth_connections_total",
				Help: "Total accepted client connections",
			},
		),
		ActiveConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "zkauth_active_connections",
				Help: "Currently open client connections",
			},
		),
		MessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zkauth_messages_total",
				Help: "Total received frames by message kind",
			},
			[]string{"kind"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zkauth_protocol_errors_total",
				Help: "Total protocol errors sent by error label",
			},
			[]string{"error"},
		),
		AuthTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zkauth_auth_total",
				Help: "Total authentication attempts by outcome",
			},
			[]string{"result"}, // "accepted", "rejected"
		),
		AuthDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "zkauth_auth_verify_duration_seconds",
				Help:    "Challenge verification duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		RegistrationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "zkauth_registrations_total",
				Help: "Total successful account registrations",
			},
		),
		PairingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zkauth_pairings_total",
				Help: "Total device pairing attempts by outcome",
			},
			[]string{"result"}, // "completed", "failed"
		),
		PendingPairings: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "zkauth_pending_pairings",
				Help: "Connections currently awaiting pairing confirmation",
			},
		),
	}

	reg.MustRegister(
		m.ConnectionsTotal,
		m.ActiveConnections,
		m.MessagesTotal,
		m.ErrorsTotal,
		m.AuthTotal,
		m.AuthDuration,
		m.RegistrationsTotal,
		m.PairingsTotal,
		m.PendingPairings,
	)

	return m
}

// ConnOpened records an accepted connection.
func (m *Metrics) ConnOpened() {
	if m == nil {
		return
	}
	m.ConnectionsTotal.Inc()
	m.ActiveConnections.Inc()
}

// ConnClosed records a closed connection.
func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}
	m.ActiveConnections.Dec()
}

// RecordMessage records a received frame by kind label.
func (m *Metrics) RecordMessage(kind string) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(kind).Inc()
}

// RecordError records a protocol error sent to a client.
func (m *Metrics) RecordError(label string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(label).Inc()
}

// RecordAuth records an authentication attempt outcome and its
// verification latency.
func (m *Metrics) RecordAuth(result string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.AuthTotal.WithLabelValues(result).Inc()
	m.AuthDuration.Observe(durationSeconds)
}

// RecordRegistration records a successful account registration.
func (m *Metrics) RecordRegistration() {
	if m == nil {
		return
	}
	m.RegistrationsTotal.Inc()
}

// RecordPairing records a pairing outcome ("completed" or "failed").
func (m *Metrics) RecordPairing(result string) {
	if m == nil {
		return
	}
	m.PairingsTotal.WithLabelValues(result).Inc()
}

// SetPendingPairings updates the pending pairing gauge.
func (m *Metrics) SetPendingPairings(n int) {
	if m == nil {
		return
	}
	m.PendingPairings.Set(float64(n))
}
