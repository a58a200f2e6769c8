package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/BrandonDHaskell/facegate/internal/facegate/biometric"
	"github.com/BrandonDHaskell/facegate/internal/facegate/store"
	"github.com/BrandonDHaskell/facegate/internal/facegate/types"
)

const identityColumns = `identity_id, name, email, access_level, active, embedding, enrolled_at, updated_at`

type IdentityStore struct {
	db *sql.DB
}

func NewIdentityStore(db *sql.DB) *IdentityStore {
	return &IdentityStore{db: db}
}

func scanIdentity(scanner interface{ Scan(...any) error }) (types.Identity, error) {
	var (
		rec types.Identity
		vec pgvector.Vector
	)
	if err := scanner.Scan(&rec.ID, &rec.Name, &rec.Email, &rec.AccessLevel, &rec.Active,
		&vec, &rec.EnrolledAt, &rec.UpdatedAt); err != nil {
		return types.Identity{}, err
	}
	rec.Vector = biometric.FeatureVector(vec.Slice())
	rec.EnrolledAt = rec.EnrolledAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return rec, nil
}

// InsertIdentity leans on identities_email_key; a concurrent enrollment for
// the same email fails with store.ErrDuplicateEmail.
func (s *IdentityStore) InsertIdentity(ctx context.Context, id types.Identity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO identities (
			identity_id, name, email, access_level, active, dimension, embedding, enrolled_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, id.ID, id.Name, id.Email, id.AccessLevel, id.Active, id.Vector.Dim(),
		pgvector.NewVector(id.Vector), normalizeTime(id.EnrolledAt), normalizeTime(id.UpdatedAt))
	if isUniqueViolation(err, "identities_email_key") {
		return store.ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

func (s *IdentityStore) ListIdentities(ctx context.Context) ([]types.Identity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+identityColumns+` FROM identities ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	var out []types.Identity
	for rows.Next() {
		rec, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return out, nil
}

func (s *IdentityStore) GetIdentity(ctx context.Context, id uuid.UUID) (types.Identity, error) {
	rec, err := scanIdentity(s.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE identity_id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Identity{}, store.ErrNotFound
	}
	if err != nil {
		return types.Identity{}, fmt.Errorf("get identity: %w", err)
	}
	return rec, nil
}

func (s *IdentityStore) UpdateAccessLevel(ctx context.Context, id uuid.UUID, level int, at time.Time) (types.Identity, error) {
	return s.update(ctx, `
		UPDATE identities SET access_level = $1, updated_at = $2 WHERE identity_id = $3
		RETURNING `+identityColumns, level, normalizeTime(at), id)
}

func (s *IdentityStore) SetActive(ctx context.Context, id uuid.UUID, active bool, at time.Time) (types.Identity, error) {
	return s.update(ctx, `
		UPDATE identities SET active = $1, updated_at = $2 WHERE identity_id = $3
		RETURNING `+identityColumns, active, normalizeTime(at), id)
}

func (s *IdentityStore) update(ctx context.Context, query string, args ...any) (types.Identity, error) {
	rec, err := scanIdentity(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Identity{}, store.ErrNotFound
	}
	if err != nil {
		return types.Identity{}, fmt.Errorf("update identity: %w", err)
	}
	return rec, nil
}
