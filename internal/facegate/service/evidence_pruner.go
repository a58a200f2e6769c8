package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/facegate/internal/metrics"
)

// EvidenceStore is the retention side of the evidence store.
type EvidenceStore interface {
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// EvidencePruner periodically deletes stored probe images older than the
// retention period. Audit entries are never touched.
//
// A retention of 0 disables pruning entirely.
type EvidencePruner struct {
	store     EvidenceStore
	retention time.Duration
	interval  time.Duration
	logger    *zap.Logger
	metrics   *metrics.Metrics
	cancel    context.CancelFunc
	done      chan struct{}
}

// PrunerConfig holds the parameters for NewEvidencePruner.
type PrunerConfig struct {
	// RetentionDays is how many days of probe images to keep.
	// 0 means keep everything (pruner will not start).
	RetentionDays int

	// IntervalHours is how often the pruner runs. Defaults to 6.
	IntervalHours int
}

// NewEvidencePruner creates a pruner but does not start it.
func NewEvidencePruner(s EvidenceStore, cfg PrunerConfig, logger *zap.Logger, m *metrics.Metrics) *EvidencePruner {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvidencePruner{
		store:     s,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:  interval,
		logger:    logger,
		metrics:   m,
		done:      make(chan struct{}),
	}
}

// Start runs an immediate prune and then repeats on the configured
// interval until ctx is cancelled or Stop is called.
func (p *EvidencePruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		p.logger.Info("evidence pruner disabled", zap.Int("retention_days", 0))
		close(p.done)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	go p.loop(ctx)

	p.logger.Info("evidence pruner started",
		zap.Int("retention_days", int(p.retention.Hours()/24)),
		zap.Duration("interval", p.interval),
	)
}

// Stop signals the pruner to exit and waits for it to finish.
func (p *EvidencePruner) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

func (p *EvidencePruner) loop(ctx context.Context) {
	defer close(p.done)

	p.PruneOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PruneOnce(ctx)
		}
	}
}

// PruneOnce runs a single retention sweep and returns how many images it
// removed.
func (p *EvidencePruner) PruneOnce(ctx context.Context) int64 {
	if p.retention <= 0 {
		return 0
	}
	cutoff := time.Now().UTC().Add(-p.retention)
	deleted, err := p.store.PruneOlderThan(ctx, cutoff)
	p.metrics.AddEvidencePruned(deleted)
	if err != nil {
		p.logger.Error("evidence prune failed", zap.Error(err))
		return deleted
	}
	if deleted > 0 {
		p.logger.Info("evidence pruned",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
	return deleted
}
