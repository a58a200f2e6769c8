package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/facegate/internal/facegate/types"
)

// AuditQuery filters AuditStore.List. Zero values mean "no filter"; a Limit
// of 0 means the store default.
type AuditQuery struct {
	AfterSeq   int64
	Limit      int
	IdentityID uuid.NullUUID
}

const (
	DefaultAuditLimit = 100
	MaxAuditLimit     = 1000
)

// EffectiveLimit clamps q.Limit into [1, MaxAuditLimit].
func (q AuditQuery) EffectiveLimit() int {
	switch {
	case q.Limit <= 0:
		return DefaultAuditLimit
	case q.Limit > MaxAuditLimit:
		return MaxAuditLimit
	}
	return q.Limit
}

// AuditStore persists decisions as an append-only log. Append is atomic per
// entry and durable before it returns; concurrent appends are ordered only by
// the store's sequence. Nothing updates or deletes entries.
type AuditStore interface {
	AppendDecision(ctx context.Context, d types.Decision) (types.AuditEntry, error)
	ListDecisions(ctx context.Context, q AuditQuery) ([]types.AuditEntry, error)
}
