package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/facegate/internal/facegate/types"
)

// IdentityStore persists enrolled identities.
//
// InsertIdentity must enforce email uniqueness atomically and return
// ErrDuplicateEmail when it loses; it returns only after the row is durable.
// ListIdentities returns identities in enrollment order. Readers may run
// concurrently with writers and are not required to observe in-flight
// enrollments.
type IdentityStore interface {
	InsertIdentity(ctx context.Context, id types.Identity) error
	ListIdentities(ctx context.Context) ([]types.Identity, error)
	GetIdentity(ctx context.Context, id uuid.UUID) (types.Identity, error)
	UpdateAccessLevel(ctx context.Context, id uuid.UUID, level int, at time.Time) (types.Identity, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool, at time.Time) (types.Identity, error)
}
