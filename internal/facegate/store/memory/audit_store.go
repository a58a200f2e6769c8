package memory

import (
	"context"
	"sync"

	"github.com/BrandonDHaskell/facegate/internal/facegate/store"
	"github.com/BrandonDHaskell/facegate/internal/facegate/types"
)

// AuditStore is an in-memory append-only log of access decisions.
type AuditStore struct {
	mu      sync.Mutex
	entries []types.AuditEntry
}

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) AppendDecision(_ context.Context, d types.Decision) (types.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := types.AuditEntry{Seq: int64(len(s.entries)) + 1, Decision: d}
	s.entries = append(s.entries, e)
	return e, nil
}

func (s *AuditStore) ListDecisions(_ context.Context, q store.AuditQuery) ([]types.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := q.EffectiveLimit()
	out := make([]types.AuditEntry, 0, min(limit, len(s.entries)))
	for _, e := range s.entries {
		if e.Seq <= q.AfterSeq {
			continue
		}
		if q.IdentityID.Valid && e.MatchedIdentityID != q.IdentityID {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Entries returns a copy of every recorded entry. Test helper.
func (s *AuditStore) Entries() []types.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.AuditEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
