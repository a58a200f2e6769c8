package grpcapi_test

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/facegate/internal/auth"
	"github.com/BrandonDHaskell/facegate/internal/facegate/biometric"
	"github.com/BrandonDHaskell/facegate/internal/facegate/service"
	"github.com/BrandonDHaskell/facegate/internal/facegate/store/memory"
	"github.com/BrandonDHaskell/facegate/internal/facegate/types"
	"github.com/BrandonDHaskell/facegate/internal/facegate/wire"
	"github.com/BrandonDHaskell/facegate/internal/grpcapi"
)

const testDim = 4

type downSource struct{}

func (downSource) List(context.Context) ([]types.Identity, error) {
	return nil, errors.New("disk on fire")
}

type harness struct {
	client    *grpcapi.Client
	conn      *grpc.ClientConn
	registry  *service.IdentityRegistry
	audit     *memory.AuditStore
	authority *auth.Authority
}

func newHarness(t *testing.T, source service.IdentitySource, withAuth bool) *harness {
	t.Helper()

	audit := memory.NewAuditStore()
	registry := service.NewIdentityRegistry(memory.NewIdentityStore(), testDim, nil, nil)
	if source == nil {
		source = registry
	}
	engine := service.NewDecisionEngine(source, audit, service.EngineConfig{Dimension: testDim}, nil, nil)
	access := service.NewAccessService(engine, nil, nil, service.AccessPolicy{Tolerance: 0.6, MinAccessLevel: 3}, nil, nil)

	h := &harness{
		registry:  registry,
		audit:     audit,
		authority: auth.NewAuthority("grpc-test-key", "facegate"),
	}
	deps := grpcapi.Dependencies{AccessService: access}
	if withAuth {
		deps.Authorizer = h.authority
	}
	srv := grpcapi.NewServer(deps)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(func() { srv.Stop(context.Background()) })

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	h.conn = conn
	h.client = grpcapi.NewClient(conn)
	return h
}

func probe(t *testing.T, vec []float32) *structpb.Struct {
	t.Helper()
	s, err := wire.AccessRequestToStruct(wire.AccessRequest{
		AccessRequest: types.AccessRequest{Vector: vec, TerminalID: "grpc-door"},
	})
	require.NoError(t, err)
	return s
}

func withToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}

func TestDecide_Approved(t *testing.T) {
	h := newHarness(t, nil, false)
	id, err := h.registry.Enroll(context.Background(), types.EnrollRequest{
		Name: "Ada", Email: "ada@example.com", AccessLevel: 4, Vector: []float32{1, 0, 0, 0},
	})
	require.NoError(t, err)

	out, err := h.client.Decide(context.Background(), probe(t, []float32{1, 0.1, 0, 0}))
	require.NoError(t, err)

	resp := wire.AccessResponseFromStruct(out)
	assert.Equal(t, types.OutcomeApproved, resp.Outcome)
	assert.Equal(t, "approved", resp.Result)
	assert.Equal(t, id.ID.String(), resp.IdentityID)

	entries := h.audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "grpc-door", entries[0].TerminalID)
}

func TestDecide_NoFace(t *testing.T) {
	h := newHarness(t, nil, false)

	out, err := h.client.Decide(context.Background(), probe(t, nil))
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeDeniedNoFace, wire.AccessResponseFromStruct(out).Outcome)
	assert.Len(t, h.audit.Entries(), 1)
}

func TestDecide_ErrorCodes(t *testing.T) {
	h := newHarness(t, nil, false)

	_, err := h.client.Decide(context.Background(), probe(t, []float32{1, 2}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	bad, err := structpb.NewStruct(map[string]any{"vector": "nope"})
	require.NoError(t, err)
	_, err = h.client.Decide(context.Background(), bad)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	img, err := structpb.NewStruct(map[string]any{"image": "aGVsbG8="})
	require.NoError(t, err)
	_, err = h.client.Decide(context.Background(), img)
	assert.Equal(t, codes.InvalidArgument, status.Code(err), "not an image")

	assert.Empty(t, h.audit.Entries())
}

func TestDecide_RegistryDown_Unavailable(t *testing.T) {
	h := newHarness(t, downSource{}, false)

	_, err := h.client.Decide(context.Background(), probe(t, []float32{0, 0, 0, 0}))
	assert.Equal(t, codes.Unavailable, status.Code(err))
	assert.Empty(t, h.audit.Entries())
}

func TestDecide_StaleStoredVector_Unavailable(t *testing.T) {
	st := memory.NewIdentityStore()
	require.NoError(t, st.InsertIdentity(context.Background(), types.Identity{
		ID: uuid.New(), Name: "Old", Email: "old@example.com", AccessLevel: 5, Active: true,
		Vector: biometric.FeatureVector{0, 0, 0},
	}))
	h := newHarness(t, service.NewIdentityRegistry(st, testDim, nil, nil), false)

	_, err := h.client.Decide(context.Background(), probe(t, []float32{0, 0, 0, 0}))
	assert.Equal(t, codes.Unavailable, status.Code(err))
	assert.Empty(t, h.audit.Entries())
}

func TestAuth(t *testing.T) {
	h := newHarness(t, nil, true)
	ctx := context.Background()

	_, err := h.client.Decide(ctx, probe(t, nil))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	admin, err := h.authority.Issue("ops", []string{auth.ScopeAdmin}, 0)
	require.NoError(t, err)
	_, err = h.client.Decide(withToken(ctx, admin), probe(t, nil))
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	decide, err := h.authority.Issue("door-7", []string{auth.ScopeDecide}, 0)
	require.NoError(t, err)
	_, err = h.client.Decide(withToken(ctx, decide), probe(t, nil))
	assert.NoError(t, err)
}

func TestHealth_NoAuthRequired(t *testing.T) {
	h := newHarness(t, nil, true)

	resp, err := grpc_health_v1.NewHealthClient(h.conn).Check(context.Background(),
		&grpc_health_v1.HealthCheckRequest{Service: grpcapi.ServiceName})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())
}
