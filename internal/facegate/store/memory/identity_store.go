package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/facegate/internal/facegate/store"
	"github.com/BrandonDHaskell/facegate/internal/facegate/types"
)

type IdentityStore struct {
	mu      sync.RWMutex
	ordered []uuid.UUID
	byID    map[uuid.UUID]types.Identity
	byEmail map[string]uuid.UUID
}

func NewIdentityStore() *IdentityStore {
	return &IdentityStore{
		byID:    make(map[uuid.UUID]types.Identity),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (s *IdentityStore) InsertIdentity(_ context.Context, id types.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[id.Email]; taken {
		return store.ErrDuplicateEmail
	}
	s.byID[id.ID] = cloneIdentity(id)
	s.byEmail[id.Email] = id.ID
	s.ordered = append(s.ordered, id.ID)
	return nil
}

func (s *IdentityStore) ListIdentities(ctx context.Context) ([]types.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Identity, 0, len(s.ordered))
	for _, id := range s.ordered {
		out = append(out, cloneIdentity(s.byID[id]))
	}
	return out, nil
}

func (s *IdentityStore) GetIdentity(_ context.Context, id uuid.UUID) (types.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return types.Identity{}, store.ErrNotFound
	}
	return cloneIdentity(rec), nil
}

func (s *IdentityStore) UpdateAccessLevel(_ context.Context, id uuid.UUID, level int, at time.Time) (types.Identity, error) {
	return s.update(id, func(rec *types.Identity) {
		rec.AccessLevel = level
		rec.UpdatedAt = at
	})
}

func (s *IdentityStore) SetActive(_ context.Context, id uuid.UUID, active bool, at time.Time) (types.Identity, error) {
	return s.update(id, func(rec *types.Identity) {
		rec.Active = active
		rec.UpdatedAt = at
	})
}

func (s *IdentityStore) update(id uuid.UUID, fn func(*types.Identity)) (types.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return types.Identity{}, store.ErrNotFound
	}
	fn(&rec)
	s.byID[id] = rec
	return cloneIdentity(rec), nil
}
