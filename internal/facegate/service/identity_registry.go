package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/facegate/internal/facegate/biometric"
	"github.com/BrandonDHaskell/facegate/internal/facegate/store"
	"github.com/BrandonDHaskell/facegate/internal/facegate/types"
	"github.com/BrandonDHaskell/facegate/internal/metrics"
)

// IdentityRegistry is the only mutation point into the identity store.
//
// Writes are serialized per email (enroll) and per identity (updates) in
// process; the store's unique constraint on email covers writers in other
// processes. Reads are not serialized against writes, so a scan that starts
// before an enrollment commits may not see it.
type IdentityRegistry struct {
	store     store.IdentityStore
	dimension int
	locks     keyedMutex
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewIdentityRegistry returns a registry that only accepts vectors with the
// given dimension. A dimension of 0 accepts any non-empty vector.
func NewIdentityRegistry(st store.IdentityStore, dimension int, logger *zap.Logger, m *metrics.Metrics) *IdentityRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityRegistry{
		store:     st,
		dimension: dimension,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

func (r *IdentityRegistry) Enroll(ctx context.Context, req types.EnrollRequest) (types.Identity, error) {
	id, err := r.validateEnrollment(req)
	if err != nil {
		r.metrics.ObserveEnrollment("invalid")
		return types.Identity{}, err
	}

	unlock := r.locks.Lock("email:" + id.Email)
	defer unlock()

	if err := r.store.InsertIdentity(ctx, id); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			r.metrics.ObserveEnrollment("duplicate_email")
			return types.Identity{}, err
		}
		r.metrics.ObserveEnrollment("error")
		r.logger.Error("enrollment failed", zap.String("email", id.Email), zap.Error(err))
		return types.Identity{}, unavailable(err)
	}

	r.metrics.ObserveEnrollment("ok")
	r.logger.Info("identity enrolled",
		zap.String("identity_id", id.ID.String()),
		zap.String("email", id.Email),
		zap.Int("access_level", id.AccessLevel),
	)
	return id, nil
}

func (r *IdentityRegistry) validateEnrollment(req types.EnrollRequest) (types.Identity, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return types.Identity{}, ErrInvalidName
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !govalidator.StringLength(email, "1", "255") || !govalidator.IsEmail(email) {
		return types.Identity{}, fmt.Errorf("%w: %q", ErrInvalidEmail, req.Email)
	}
	if req.AccessLevel < 0 {
		return types.Identity{}, ErrInvalidAccessLevel
	}
	vec, err := biometric.NewFeatureVector(req.Vector)
	if err != nil {
		return types.Identity{}, err
	}
	if r.dimension > 0 {
		if err := vec.CheckDim(r.dimension); err != nil {
			return types.Identity{}, err
		}
	}

	now := r.now().UTC().Truncate(time.Millisecond)
	return types.Identity{
		ID:          uuid.New(),
		Name:        name,
		Email:       email,
		AccessLevel: req.AccessLevel,
		Active:      true,
		Vector:      vec,
		EnrolledAt:  now,
		UpdatedAt:   now,
	}, nil
}

// List returns every identity, active or not, in enrollment order.
func (r *IdentityRegistry) List(ctx context.Context) ([]types.Identity, error) {
	ids, err := r.store.ListIdentities(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	return ids, nil
}

func (r *IdentityRegistry) Get(ctx context.Context, id uuid.UUID) (types.Identity, error) {
	rec, err := r.store.GetIdentity(ctx, id)
	if err != nil {
		return types.Identity{}, unavailable(err)
	}
	return rec, nil
}

func (r *IdentityRegistry) UpdateAccessLevel(ctx context.Context, id uuid.UUID, level int) (types.Identity, error) {
	if level < 0 {
		return types.Identity{}, ErrInvalidAccessLevel
	}
	unlock := r.locks.Lock("id:" + id.String())
	defer unlock()

	rec, err := r.store.UpdateAccessLevel(ctx, id, level, r.now().UTC())
	if err != nil {
		return types.Identity{}, unavailable(err)
	}
	r.logger.Info("access level updated",
		zap.String("identity_id", id.String()), zap.Int("access_level", level))
	return rec, nil
}

// Deactivate hides an identity from the decision scan. The record and its
// audit history are kept.
func (r *IdentityRegistry) Deactivate(ctx context.Context, id uuid.UUID) (types.Identity, error) {
	return r.setActive(ctx, id, false)
}

func (r *IdentityRegistry) Reactivate(ctx context.Context, id uuid.UUID) (types.Identity, error) {
	return r.setActive(ctx, id, true)
}

func (r *IdentityRegistry) setActive(ctx context.Context, id uuid.UUID, active bool) (types.Identity, error) {
	unlock := r.locks.Lock("id:" + id.String())
	defer unlock()

	rec, err := r.store.SetActive(ctx, id, active, r.now().UTC())
	if err != nil {
		return types.Identity{}, unavailable(err)
	}
	r.logger.Info("identity active flag changed",
		zap.String("identity_id", id.String()), zap.Bool("active", active))
	return rec, nil
}

// unavailable passes through the store's domain errors and marks everything
// else as a registry outage.
func unavailable(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrDuplicateEmail):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %w", ErrRegistryUnavailable, err)
}
