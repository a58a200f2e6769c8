package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/facegate/internal/embedding"
	"github.com/BrandonDHaskell/facegate/internal/facegate/biometric"
	"github.com/BrandonDHaskell/facegate/internal/facegate/types"
	"github.com/BrandonDHaskell/facegate/internal/metrics"
)

// FeatureExtractor turns an image into a probe vector. found=false means no
// face was detected.
type FeatureExtractor interface {
	Extract(ctx context.Context, image []byte) (vec biometric.FeatureVector, found bool, err error)
}

// EvidenceSaver stores a probe image and returns a path for the audit log.
type EvidenceSaver interface {
	Save(ctx context.Context, image []byte, ext string) (string, error)
}

// AccessPolicy is the configured baseline for every decision. Requests may
// raise MinAccessLevel but never lower it.
type AccessPolicy struct {
	Tolerance      float64
	MinAccessLevel int
}

type AnalyzeRequest struct {
	Image          []byte
	TerminalID     string
	MinAccessLevel *int
}

// AccessService is the entry point the transports call.
type AccessService struct {
	engine    *DecisionEngine
	extractor FeatureExtractor
	evidence  EvidenceSaver
	policy    AccessPolicy
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewAccessService wires the engine to an extractor. evidence may be nil.
func NewAccessService(engine *DecisionEngine, extractor FeatureExtractor, evidence EvidenceSaver, policy AccessPolicy, logger *zap.Logger, m *metrics.Metrics) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessService{
		engine:    engine,
		extractor: extractor,
		evidence:  evidence,
		policy:    policy,
		logger:    logger,
		metrics:   m,
	}
}

func (s *AccessService) Policy() AccessPolicy { return s.policy }

// Analyze decides on a raw probe image.
func (s *AccessService) Analyze(ctx context.Context, req AnalyzeRequest) (types.Decision, error) {
	format, err := embedding.DetectFormat(req.Image)
	if err != nil {
		s.metrics.ObserveDecisionError("malformed_image")
		return types.Decision{}, fmt.Errorf("%w: %w", ErrMalformedImage, err)
	}

	var evidencePath string
	if s.evidence != nil {
		evidencePath, err = s.evidence.Save(ctx, req.Image, embedding.Extension(format))
		if err != nil {
			s.logger.Warn("evidence not stored", zap.String("terminal_id", req.TerminalID), zap.Error(err))
			evidencePath = ""
		}
	}

	if s.extractor == nil {
		s.metrics.ObserveDecisionError("extraction_failed")
		return types.Decision{}, fmt.Errorf("%w: no extractor configured", ErrExtractionFailed)
	}
	probe, found, err := s.extractor.Extract(ctx, req.Image)
	if err != nil {
		s.metrics.ObserveDecisionError("extraction_failed")
		s.logger.Error("feature extraction failed", zap.String("terminal_id", req.TerminalID), zap.Error(err))
		return types.Decision{}, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	if !found {
		probe = nil
	}

	return s.engine.Decide(ctx, DecideInput{
		Probe:          probe,
		MinAccessLevel: s.minAccessLevel(req.MinAccessLevel),
		Tolerance:      s.policy.Tolerance,
		EvidencePath:   evidencePath,
		TerminalID:     req.TerminalID,
	})
}

// DecideVector decides on a probe extracted by the caller. A nil vector
// means no face.
func (s *AccessService) DecideVector(ctx context.Context, req types.AccessRequest) (types.Decision, error) {
	var probe biometric.FeatureVector
	if req.Vector != nil {
		v, err := biometric.NewFeatureVector(req.Vector)
		if err != nil {
			s.metrics.ObserveDecisionError("invalid_probe")
			return types.Decision{}, err
		}
		probe = v
	}

	return s.engine.Decide(ctx, DecideInput{
		Probe:          probe,
		MinAccessLevel: s.minAccessLevel(req.MinAccessLevel),
		Tolerance:      s.policy.Tolerance,
		TerminalID:     req.TerminalID,
	})
}

func (s *AccessService) minAccessLevel(requested *int) int {
	if requested != nil && *requested > s.policy.MinAccessLevel {
		return *requested
	}
	return s.policy.MinAccessLevel
}
