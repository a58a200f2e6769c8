package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/facegate/internal/facegate/service"
	"github.com/BrandonDHaskell/facegate/internal/facegate/store"
	"github.com/BrandonDHaskell/facegate/internal/facegate/store/memory"
	"github.com/BrandonDHaskell/facegate/internal/facegate/types"
)

const testDim = 4

type fixture struct {
	registry *service.IdentityRegistry
	engine   *service.DecisionEngine
	audit    *memory.AuditStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	reg := service.NewIdentityRegistry(memory.NewIdentityStore(), testDim, nil, nil)
	audit := memory.NewAuditStore()
	engine := service.NewDecisionEngine(reg, audit, service.EngineConfig{Dimension: testDim}, nil, nil)
	return fixture{registry: reg, engine: engine, audit: audit}
}

func (f fixture) enroll(t *testing.T, name string, level int, vec ...float32) types.Identity {
	t.Helper()
	id, err := f.registry.Enroll(context.Background(), types.EnrollRequest{
		Name:        name,
		Email:       name + "@example.com",
		AccessLevel: level,
		Vector:      vec,
	})
	require.NoError(t, err)
	return id
}

var errStoreDown = errors.New("disk on fire")

type failingIdentities struct{ err error }

func (f failingIdentities) List(context.Context) ([]types.Identity, error) { return nil, f.err }

type failingAudit struct{ store.AuditStore }

func (failingAudit) AppendDecision(context.Context, types.Decision) (types.AuditEntry, error) {
	return types.AuditEntry{}, errStoreDown
}
