package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Observe(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveDecision("approved", 3*time.Millisecond)
	m.ObserveDecision("approved", time.Millisecond)
	m.ObserveDecision("denied_no_match", time.Millisecond)
	m.ObserveDecisionError("registry_unavailable")
	m.ObserveEnrollment("duplicate_email")
	m.ObserveScan(7)
	m.AddEvidencePruned(3)
	m.AddEvidencePruned(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DecisionsTotal.WithLabelValues("approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecisionsTotal.WithLabelValues("denied_no_match")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecisionErrors.WithLabelValues("registry_unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EnrollmentsTotal.WithLabelValues("duplicate_email")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.EvidencePruned))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ScanCandidates))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveDecision("approved", time.Second)
		m.ObserveDecisionError("x")
		m.ObserveScan(1)
		m.ObserveEnrollment("ok")
		m.AddEvidencePruned(1)
	})
}

func TestNew_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
