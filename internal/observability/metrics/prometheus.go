// Package metrics provides Prometheus metrics for the prescription safety
// engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	CatalogSearches        prometheus.Counter
	InteractionChecks      prometheus.Counter
	ContraindicatedHits    prometheus.Counter
	AllergyWarnings        prometheus.Counter
	SessionsStarted        prometheus.Counter
	ValidationsBlocked     prometheus.Counter
	PrescriptionsSubmitted prometheus.Counter
	ValidationDuration     prometheus.Histogram
	ActiveSessions         prometheus.Gauge
	OutboxPending          prometheus.Gauge
	CircuitBreakerState    *prometheus.GaugeVec
}

// New creates and registers all metrics
func New() *Metrics {
	m := &Metrics{
		CatalogSearches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_searches_total",
			Help: "Total medication catalog searches",
		}),
		InteractionChecks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "interaction_checks_total",
			Help: "Total drug-interaction check runs",
		}),
		ContraindicatedHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contraindicated_interactions_total",
			Help: "Total contraindicated interactions detected",
		}),
		AllergyWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "allergy_warnings_total",
			Help: "Total allergy cross-reference warnings emitted",
		}),
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prescription_sessions_started_total",
			Help: "Total prescription sessions started",
		}),
		ValidationsBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prescription_validations_blocked_total",
			Help: "Total validation runs that ended blocked",
		}),
		PrescriptionsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prescriptions_submitted_total",
			Help: "Total prescriptions submitted",
		}),
		ValidationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "prescription_validation_duration_seconds",
			Help:    "Validation run duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "prescription_sessions_active",
			Help: "Currently open prescription sessions",
		}),
		OutboxPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "outbox_pending_entries",
			Help: "Pending outbox entries",
		}),
		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"name"}),
	}

	prometheus.MustRegister(
		m.CatalogSearches,
		m.InteractionChecks,
		m.ContraindicatedHits,
		m.AllergyWarnings,
		m.SessionsStarted,
		m.ValidationsBlocked,
		m.PrescriptionsSubmitted,
		m.ValidationDuration,
		m.ActiveSessions,
		m.OutboxPending,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
