package service_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/facegate/internal/facegate/biometric"
	"github.com/BrandonDHaskell/facegate/internal/facegate/service"
	"github.com/BrandonDHaskell/facegate/internal/facegate/types"
)

type fakeExtractor struct {
	vec   biometric.FeatureVector
	found bool
	err   error
	calls int
}

func (f *fakeExtractor) Extract(context.Context, []byte) (biometric.FeatureVector, bool, error) {
	f.calls++
	return f.vec, f.found, f.err
}

type fakeEvidence struct {
	saved [][]byte
	ext   string
	err   error
}

func (f *fakeEvidence) Save(_ context.Context, image []byte, ext string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.saved = append(f.saved, image)
	f.ext = ext
	return "2026/02/15/probe." + ext, nil
}

func probePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))))
	return buf.Bytes()
}

func newAccessService(t *testing.T, ex service.FeatureExtractor, ev service.EvidenceSaver) (*service.AccessService, fixture) {
	t.Helper()
	f := newFixture(t)
	svc := service.NewAccessService(f.engine, ex, ev, service.AccessPolicy{Tolerance: 0.6, MinAccessLevel: 3}, nil, nil)
	return svc, f
}

func intPtr(v int) *int { return &v }

// ── Analyze ──────────────────────────────────────────────────────────────────

func TestAnalyze_Approved_StoresEvidence(t *testing.T) {
	ex := &fakeExtractor{found: true}
	ev := &fakeEvidence{}
	svc, f := newAccessService(t, ex, ev)
	id := f.enroll(t, "alice", 3, 0.1, 0.2, 0.3, 0.4)
	ex.vec = id.Vector
	img := probePNG(t)

	d, err := svc.Analyze(context.Background(), service.AnalyzeRequest{Image: img, TerminalID: "door-1"})
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeApproved, d.Outcome)
	assert.Equal(t, id.ID, d.MatchedIdentityID.UUID)
	assert.Equal(t, "2026/02/15/probe.png", d.EvidencePath)
	assert.Equal(t, "door-1", d.TerminalID)
	assert.Equal(t, "png", ev.ext)
	require.Len(t, ev.saved, 1)
	assert.Equal(t, img, ev.saved[0])

	entries := f.audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, d.EvidencePath, entries[0].EvidencePath)
}

func TestAnalyze_NoFaceIsAudited(t *testing.T) {
	svc, f := newAccessService(t, &fakeExtractor{found: false}, nil)

	d, err := svc.Analyze(context.Background(), service.AnalyzeRequest{Image: probePNG(t)})
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeDeniedNoFace, d.Outcome)
	assert.Len(t, f.audit.Entries(), 1)
}

func TestAnalyze_MalformedImage_NotAudited(t *testing.T) {
	ex := &fakeExtractor{found: true}
	svc, f := newAccessService(t, ex, &fakeEvidence{})

	_, err := svc.Analyze(context.Background(), service.AnalyzeRequest{Image: []byte("GIF? no")})
	assert.ErrorIs(t, err, service.ErrMalformedImage)
	assert.Zero(t, ex.calls)
	assert.Empty(t, f.audit.Entries())
}

func TestAnalyze_ExtractionError_NotDeniedNoFace(t *testing.T) {
	svc, f := newAccessService(t, &fakeExtractor{err: errors.New("embedding server down")}, nil)

	d, err := svc.Analyze(context.Background(), service.AnalyzeRequest{Image: probePNG(t)})
	assert.ErrorIs(t, err, service.ErrExtractionFailed)
	assert.Empty(t, d.Outcome)
	assert.Empty(t, f.audit.Entries())
}

func TestAnalyze_EvidenceFailureDoesNotBlockDecision(t *testing.T) {
	svc, f := newAccessService(t, &fakeExtractor{found: false}, &fakeEvidence{err: errors.New("disk full")})

	d, err := svc.Analyze(context.Background(), service.AnalyzeRequest{Image: probePNG(t)})
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeDeniedNoFace, d.Outcome)
	assert.Empty(t, d.EvidencePath)
	assert.Len(t, f.audit.Entries(), 1)
}

// ── DecideVector ─────────────────────────────────────────────────────────────

func TestDecideVector_NilVectorIsNoFace(t *testing.T) {
	svc, _ := newAccessService(t, nil, nil)
	d, err := svc.DecideVector(context.Background(), types.AccessRequest{})
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeDeniedNoFace, d.Outcome)
}

func TestDecideVector_RequestCanOnlyTightenLevel(t *testing.T) {
	svc, f := newAccessService(t, nil, nil)
	id := f.enroll(t, "alice", 4, 0, 0, 0, 0)
	ctx := context.Background()

	d, err := svc.DecideVector(ctx, types.AccessRequest{Vector: id.Vector, MinAccessLevel: intPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeApproved, d.Outcome)
	assert.Equal(t, 3, d.MinAccessLevel)

	d, err = svc.DecideVector(ctx, types.AccessRequest{Vector: id.Vector, MinAccessLevel: intPtr(5)})
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeDeniedUnauthorized, d.Outcome)
	assert.Equal(t, 5, d.MinAccessLevel)
	assert.Equal(t, 0.6, d.Tolerance)
}

func TestDecideVector_InvalidVector(t *testing.T) {
	svc, f := newAccessService(t, nil, nil)

	_, err := svc.DecideVector(context.Background(), types.AccessRequest{Vector: []float32{0, float32(math.Inf(1)), 0, 0}})
	assert.ErrorIs(t, err, biometric.ErrInvalidVector)

	_, err = svc.DecideVector(context.Background(), types.AccessRequest{Vector: []float32{}})
	assert.ErrorIs(t, err, biometric.ErrEmptyVector)

	assert.Empty(t, f.audit.Entries())
}
