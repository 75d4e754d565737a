// Package metrics defines the Prometheus instruments exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ramn"

// Metrics holds all Prometheus metrics for the account manager. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	LaunchesTotal        *prometheus.CounterVec
	TicketFailuresTotal  *prometheus.CounterVec
	MetadataLookupsTotal *prometheus.CounterVec
	LockClearsTotal      *prometheus.CounterVec
	EnrichmentDropped    prometheus.Counter
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LaunchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launch",
			Name:      "launches_total",
			Help:      "Total number of account launches by outcome.",
		}, []string{"outcome"}), // outcome: ok, invalid_place, not_found, no_credential, ticket_error, dispatch_error, error
		TicketFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launch",
			Name:      "ticket_failures_total",
			Help:      "Total number of failed authentication ticket exchanges by reason.",
		}, []string{"reason"}), // reason: csrf, ticket, transport
		MetadataLookupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "lookups_total",
			Help:      "Total number of game metadata lookups by source and result.",
		}, []string{"source", "result"}),
		LockClearsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "instance_lock",
			Name:      "clears_total",
			Help:      "Total number of single-instance lock clear attempts by result.",
		}, []string{"result"}), // result: ok, error
		EnrichmentDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "enrichment_dropped_total",
			Help:      "Total number of enrichment jobs dropped because the queue was full.",
		}),
	}
}

// Launch records the outcome of one account launch.
func (m *Metrics) Launch(outcome string) {
	if m == nil {
		return
	}
	m.LaunchesTotal.WithLabelValues(outcome).Inc()
}

// TicketFailure records a failed ticket exchange.
func (m *Metrics) TicketFailure(reason string) {
	if m == nil {
		return
	}
	m.TicketFailuresTotal.WithLabelValues(reason).Inc()
}

// MetadataLookup records one strategy attempt.
func (m *Metrics) MetadataLookup(source string, ok bool) {
	if m == nil {
		return
	}
	result := "miss"
	if ok {
		result = "hit"
	}
	m.MetadataLookupsTotal.WithLabelValues(source, result).Inc()
}

// LockClear records one mutex clear attempt.
func (m *Metrics) LockClear(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.LockClearsTotal.WithLabelValues(result).Inc()
}

// EnrichmentDrop records a dropped enrichment job.
func (m *Metrics) EnrichmentDrop() {
	if m == nil {
		return
	}
	m.EnrichmentDropped.Inc()
}
