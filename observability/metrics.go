// Package observability exposes Prometheus metrics for the onboarding
// service: turns by outcome, rejections by reason, session lifecycle,
// collaborator failures and vPIC lookup latency.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tbxark/onboard/agent"
	"github.com/tbxark/onboard/types"
)

const metricsNamespace = "onboard"

var _ agent.Observer = (*Metrics)(nil)

// Metrics holds every collector. It implements agent.Observer and its
// ObserveLookup method plugs into nhtsa.WithObserver.
type Metrics struct {
	// TurnsTotal counts processed turns.
	// Labels: outcome (accepted, rejected, diverted)
	TurnsTotal *prometheus.CounterVec

	// RejectionsTotal counts rejected turns.
	// Labels: reason (INVALID_ZIP, VIN_NOT_FOUND, ...)
	RejectionsTotal *prometheus.CounterVec

	SessionsStartedTotal   prometheus.Counter
	SessionsCompletedTotal prometheus.Counter

	// CollaboratorErrorsTotal counts degraded collaborator calls.
	// Labels: collaborator (phraser, quote, recorder)
	CollaboratorErrorsTotal *prometheus.CounterVec

	TurnDurationSeconds prometheus.Histogram

	// LookupDurationSeconds measures vPIC calls.
	// Labels: op (decode_vin, known_make), status (success, error)
	LookupDurationSeconds *prometheus.HistogramVec
}

// NewMetrics registers all collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "turns_total",
				Help:      "Total processed turns by outcome",
			},
			[]string{"outcome"},
		),

		RejectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "rejections_total",
				Help:      "Total rejected turns by reason",
			},
			[]string{"reason"},
		),

		SessionsStartedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "sessions_started_total",
				Help:      "Total onboarding sessions started",
			},
		),

		SessionsCompletedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "sessions_completed_total",
				Help:      "Total onboarding sessions that reached COMPLETE",
			},
		),

		CollaboratorErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "collaborator_errors_total",
				Help:      "Total collaborator failures that were degraded",
			},
			[]string{"collaborator"},
		),

		TurnDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "turn_duration_seconds",
				Help:      "Time to process and phrase one turn",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),

		LookupDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "vpic",
				Name:      "lookup_duration_seconds",
				Help:      "vPIC request duration by operation and status",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"op", "status"},
		),
	}
}

func (m *Metrics) SessionStarted() {
	m.SessionsStartedTotal.Inc()
}

func (m *Metrics) SessionCompleted() {
	m.SessionsCompletedTotal.Inc()
}

func (m *Metrics) TurnProcessed(outcome *types.TurnOutcome, elapsed time.Duration) {
	if outcome == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(string(outcome.Kind)).Inc()
	if reason := outcome.Reason(); reason != "" {
		m.RejectionsTotal.WithLabelValues(string(reason)).Inc()
	}
	m.TurnDurationSeconds.Observe(elapsed.Seconds())
}

func (m *Metrics) CollaboratorFailed(collaborator string) {
	m.CollaboratorErrorsTotal.WithLabelValues(collaborator).Inc()
}

func (m *Metrics) ObserveLookup(op string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.LookupDurationSeconds.WithLabelValues(op, status).Observe(d.Seconds())
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
