package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/facegate/internal/facegate/service"
	"github.com/BrandonDHaskell/facegate/internal/metrics"
)

type fakePruneStore struct {
	mu      sync.Mutex
	cutoffs []time.Time
	deleted int64
	err     error
}

func (s *fakePruneStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs = append(s.cutoffs, cutoff)
	return s.deleted, s.err
}

func (s *fakePruneStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cutoffs)
}

func TestEvidencePruner_DisabledWhenRetentionZero(t *testing.T) {
	st := &fakePruneStore{}
	pruner := service.NewEvidencePruner(st, service.PrunerConfig{RetentionDays: 0, IntervalHours: 1}, nil, nil)

	pruner.Start(context.Background())
	pruner.Stop()

	assert.Zero(t, pruner.PruneOnce(context.Background()))
	assert.Zero(t, st.calls())
}

func TestEvidencePruner_PruneOnceUsesRetentionCutoff(t *testing.T) {
	st := &fakePruneStore{deleted: 3}
	m := metrics.New(prometheus.NewRegistry())
	pruner := service.NewEvidencePruner(st, service.PrunerConfig{RetentionDays: 30}, nil, m)

	before := time.Now().UTC().AddDate(0, 0, -30)
	assert.EqualValues(t, 3, pruner.PruneOnce(context.Background()))
	after := time.Now().UTC().AddDate(0, 0, -30)

	require.Len(t, st.cutoffs, 1)
	assert.False(t, st.cutoffs[0].Before(before.Add(-time.Second)))
	assert.False(t, st.cutoffs[0].After(after.Add(time.Second)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.EvidencePruned))
}

func TestEvidencePruner_ErrorIsLoggedNotFatal(t *testing.T) {
	st := &fakePruneStore{err: errors.New("permission denied")}
	pruner := service.NewEvidencePruner(st, service.PrunerConfig{RetentionDays: 1}, nil, nil)

	assert.NotPanics(t, func() { pruner.PruneOnce(context.Background()) })
}

func TestEvidencePruner_StartRunsImmediately(t *testing.T) {
	st := &fakePruneStore{}
	pruner := service.NewEvidencePruner(st, service.PrunerConfig{RetentionDays: 7, IntervalHours: 1}, nil, nil)

	pruner.Start(context.Background())
	require.Eventually(t, func() bool { return st.calls() >= 1 }, time.Second, 5*time.Millisecond)
	pruner.Stop()
}

func TestEvidencePruner_StopIsIdempotent(t *testing.T) {
	pruner := service.NewEvidencePruner(&fakePruneStore{}, service.PrunerConfig{RetentionDays: 30, IntervalHours: 1}, nil, nil)

	pruner.Start(context.Background())
	pruner.Stop()
	pruner.Stop()
}

func TestEvidencePruner_StopsOnContextCancel(t *testing.T) {
	pruner := service.NewEvidencePruner(&fakePruneStore{}, service.PrunerConfig{RetentionDays: 30, IntervalHours: 1}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	pruner.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		pruner.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pruner did not stop after context cancel")
	}
}
