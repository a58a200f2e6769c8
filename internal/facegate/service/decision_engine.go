package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/facegate/internal/facegate/biometric"
	"github.com/BrandonDHaskell/facegate/internal/facegate/store"
	"github.com/BrandonDHaskell/facegate/internal/facegate/types"
	"github.com/BrandonDHaskell/facegate/internal/metrics"
)

// IdentitySource is the read side of the registry the engine scans.
type IdentitySource interface {
	List(ctx context.Context) ([]types.Identity, error)
}

// DecideInput carries one access attempt. A nil Probe means the detector
// found no face.
type DecideInput struct {
	Probe          biometric.FeatureVector
	MinAccessLevel int
	Tolerance      float64
	EvidencePath   string
	TerminalID     string
}

type EngineConfig struct {
	// Dimension every probe must have. 0 skips the check.
	Dimension int
	// ScanTimeout bounds one registry scan. 0 relies on the caller's context.
	ScanTimeout time.Duration
}

// DecisionEngine turns a probe into exactly one audited Decision. It keeps
// no per-call state, so concurrent Decide calls need no coordination.
type DecisionEngine struct {
	registry IdentitySource
	audit    store.AuditStore
	cfg      EngineConfig
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewDecisionEngine(reg IdentitySource, audit store.AuditStore, cfg EngineConfig, logger *zap.Logger, m *metrics.Metrics) *DecisionEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DecisionEngine{
		registry: reg,
		audit:    audit,
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// Decide scans the registry in listing order, stops at the first active
// identity within tolerance, applies the access-level policy and appends the
// result to the audit log before returning it.
//
// Input and operational failures return an error and no Decision. If the
// audit append fails the outcome is discarded and ErrAuditUnavailable is
// returned.
func (e *DecisionEngine) Decide(ctx context.Context, in DecideInput) (types.Decision, error) {
	start := e.now()

	if err := biometric.ValidateTolerance(in.Tolerance); err != nil {
		e.metrics.ObserveDecisionError("invalid_tolerance")
		return types.Decision{}, err
	}

	d := types.Decision{
		MinAccessLevel: in.MinAccessLevel,
		Tolerance:      in.Tolerance,
		EvidencePath:   in.EvidencePath,
		TerminalID:     in.TerminalID,
	}

	if in.Probe == nil {
		d.Outcome = types.OutcomeDeniedNoFace
		d.Reason = "no face detected in probe image"
		return e.record(ctx, d, start)
	}

	if err := e.checkProbe(in.Probe); err != nil {
		e.metrics.ObserveDecisionError("invalid_probe")
		return types.Decision{}, err
	}

	match, distance, err := e.scan(ctx, in.Probe, in.Tolerance)
	if err != nil {
		reason := "registry_unavailable"
		if errors.Is(err, ErrScanAborted) {
			reason = "scan_aborted"
		}
		e.metrics.ObserveDecisionError(reason)
		e.logger.Error("registry scan failed", zap.String("terminal_id", in.TerminalID), zap.Error(err))
		return types.Decision{}, err
	}

	switch {
	case match == nil:
		d.Outcome = types.OutcomeDeniedNoMatch
		d.Reason = "no enrolled identity within tolerance"
	case match.AccessLevel < in.MinAccessLevel:
		d.Outcome = types.OutcomeDeniedUnauthorized
		d.MatchedIdentityID = uuid.NullUUID{UUID: match.ID, Valid: true}
		d.Distance = &distance
		d.Reason = fmt.Sprintf("access level %d below required %d", match.AccessLevel, in.MinAccessLevel)
	default:
		d.Outcome = types.OutcomeApproved
		d.MatchedIdentityID = uuid.NullUUID{UUID: match.ID, Valid: true}
		d.Distance = &distance
		d.Reason = "matched enrolled identity"
	}
	return e.record(ctx, d, start)
}

func (e *DecisionEngine) checkProbe(probe biometric.FeatureVector) error {
	if e.cfg.Dimension > 0 {
		if err := probe.CheckDim(e.cfg.Dimension); err != nil {
			return err
		}
	}
	return probe.Validate()
}

// scanCheckEvery is how many identities are compared between context checks.
const scanCheckEvery = 256

func (e *DecisionEngine) scan(ctx context.Context, probe biometric.FeatureVector, tolerance float64) (*types.Identity, float64, error) {
	if e.cfg.ScanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ScanTimeout)
		defer cancel()
	}

	identities, err := e.registry.List(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrScanAborted, ctx.Err())
		}
		if errors.Is(err, ErrRegistryUnavailable) {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("%w: %w", ErrRegistryUnavailable, err)
	}

	compared := 0
	defer func() { e.metrics.ObserveScan(compared) }()

	for i := range identities {
		if i%scanCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, fmt.Errorf("%w: %w", ErrScanAborted, err)
			}
		}
		id := &identities[i]
		if !id.Active {
			continue
		}
		compared++
		dist, err := biometric.Distance(probe, id.Vector)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: identity %s: %w", ErrRegistryUnavailable, id.ID, err)
		}
		if dist <= tolerance {
			return id, dist, nil
		}
	}
	return nil, 0, nil
}

func (e *DecisionEngine) record(ctx context.Context, d types.Decision, start time.Time) (types.Decision, error) {
	d.ID = uuid.New()
	d.DecidedAt = e.now().UTC().Truncate(time.Millisecond)

	entry, err := e.audit.AppendDecision(ctx, d)
	if err != nil {
		e.metrics.ObserveDecisionError("audit_unavailable")
		e.logger.Error("audit append failed; decision withheld",
			zap.String("decision_id", d.ID.String()),
			zap.String("outcome", string(d.Outcome)),
			zap.Error(err),
		)
		return types.Decision{}, fmt.Errorf("%w: %w", ErrAuditUnavailable, err)
	}

	fields := []zap.Field{
		zap.Int64("seq", entry.Seq),
		zap.String("decision_id", d.ID.String()),
		zap.String("outcome", string(d.Outcome)),
	}
	if d.MatchedIdentityID.Valid {
		fields = append(fields, zap.String("identity_id", d.MatchedIdentityID.UUID.String()))
	}
	if d.TerminalID != "" {
		fields = append(fields, zap.String("terminal_id", d.TerminalID))
	}
	e.logger.Info("access decision", fields...)
	e.metrics.ObserveDecision(string(d.Outcome), e.now().Sub(start))

	return entry.Decision, nil
}
