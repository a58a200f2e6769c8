// Package metrics holds the prometheus collectors for the decision path.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	DecisionsTotal   *prometheus.CounterVec
	DecisionErrors   *prometheus.CounterVec
	DecisionDuration prometheus.Histogram
	ScanCandidates   prometheus.Histogram
	EnrollmentsTotal *prometheus.CounterVec
	EvidencePruned   prometheus.Counter
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in
// tests so repeated construction does not collide.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DecisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "facegate_decisions_total",
				Help: "Access decisions recorded, by outcome",
			},
			[]string{"outcome"},
		),
		DecisionErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "facegate_decision_errors_total",
				Help: "Access attempts that failed without a decision, by reason",
			},
			[]string{"reason"},
		),
		DecisionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "facegate_decision_duration_seconds",
				Help:    "Time from probe to audited decision",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
			},
		),
		ScanCandidates: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "facegate_scan_candidates",
				Help:    "Identities compared before the registry scan stopped",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		EnrollmentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "facegate_enrollments_total",
				Help: "Enrollment attempts, by result",
			},
			[]string{"result"},
		),
		EvidencePruned: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "facegate_evidence_pruned_total",
				Help: "Probe images removed by the retention sweep",
			},
		),
	}
}

func (m *Metrics) ObserveDecision(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.DecisionsTotal.WithLabelValues(outcome).Inc()
	m.DecisionDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveDecisionError(reason string) {
	if m == nil {
		return
	}
	m.DecisionErrors.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveScan(candidates int) {
	if m == nil {
		return
	}
	m.ScanCandidates.Observe(float64(candidates))
}

func (m *Metrics) ObserveEnrollment(result string) {
	if m == nil {
		return
	}
	m.EnrollmentsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) AddEvidencePruned(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.EvidencePruned.Add(float64(n))
}
