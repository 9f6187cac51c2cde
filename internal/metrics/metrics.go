// Package metrics defines the prometheus collectors shared by the engine components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every collector the engine updates.
type Metrics struct {
	// Event log
	EventsRecorded  *prometheus.CounterVec
	EventsDeduped   prometheus.Counter
	EventsEvicted   prometheus.Counter
	PersistDropped  *prometheus.CounterVec // reason: unserializable, sink_error, closed
	AppenderBacklog prometheus.Gauge

	// Suspicion and reports
	GlobalSuspicion prometheus.Gauge
	PendingReports  prometheus.Gauge
	ReportsFiled    prometheus.Counter

	// Rumors and verdicts
	Rumors   *prometheus.CounterVec
	Verdicts *prometheus.CounterVec

	// Perception
	EntriesInjected *prometheus.CounterVec // tier: near, fov, noise
}

// New registers the collectors on reg. A nil registerer gets a private
// registry that nothing scrapes.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		EventsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_events_recorded_total",
			Help: "Events accepted by the event log, by kind.",
		}, []string{"kind"}),

		EventsDeduped: f.NewCounter(prometheus.CounterOpts{
			Name: "vigil_events_deduped_total",
			Help: "Record calls collapsed by the dedup window.",
		}),

		EventsEvicted: f.NewCounter(prometheus.CounterOpts{
			Name: "vigil_events_evicted_total",
			Help: "Events evicted from the ring buffer.",
		}),

		PersistDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_persist_dropped_total",
			Help: "Event lines that never reached durable storage, by reason.",
		}, []string{"reason"}),

		AppenderBacklog: f.NewGauge(prometheus.GaugeOpts{
			Name: "vigil_appender_backlog",
			Help: "Lines waiting in the asynchronous append queue.",
		}),

		GlobalSuspicion: f.NewGauge(prometheus.GaugeOpts{
			Name: "vigil_global_suspicion",
			Help: "Mean normalized suspicion over registered actors.",
		}),

		PendingReports: f.NewGauge(prometheus.GaugeOpts{
			Name: "vigil_pending_reports",
			Help: "Reports inside the window waiting for adjudication.",
		}),

		ReportsFiled: f.NewCounter(prometheus.CounterOpts{
			Name: "vigil_reports_filed_total",
			Help: "Reports filed by actors.",
		}),

		Rumors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_rumors_total",
			Help: "Rumor events emitted, by kind.",
		}, []string{"kind"}),

		Verdicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_verdicts_total",
			Help: "Verdicts given, by outcome.",
		}, []string{"outcome"}),

		EntriesInjected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_memory_entries_injected_total",
			Help: "Blackboard entries accepted into actor contexts, by perception tier.",
		}, []string{"tier"}),
	}
}

// OrNew returns m, or a fresh unregistered set when m is nil.
func OrNew(m *Metrics) *Metrics {
	if m == nil {
		return New(nil)
	}
	return m
}
