package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	dbpkg "github.com/BrandonDHaskell/facegate/internal/db"
	"github.com/BrandonDHaskell/facegate/internal/facegate/store"
	"github.com/BrandonDHaskell/facegate/internal/facegate/types"
)

type IdentityStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewIdentityStore(db *sql.DB, writer *dbpkg.Worker) *IdentityStore {
	return &IdentityStore{db: db, writer: writer}
}

// InsertIdentity relies on the unique index on identities.email, so two
// racing enrollments for the same address cannot both commit.
func (s *IdentityStore) InsertIdentity(ctx context.Context, id types.Identity) error {
	blob, err := id.Vector.MarshalBinary()
	if err != nil {
		return fmt.Errorf("InsertIdentity encode vector: %w", err)
	}
	enrolledMs := toMillis(id.EnrolledAt)
	updatedMs := toMillis(id.UpdatedAt)

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO identities(
  identity_id, name, email, access_level, active, dimension, vector, enrolled_at_ms, updated_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
`, id.ID.String(), id.Name, id.Email, id.AccessLevel, boolInt(id.Active),
			id.Vector.Dim(), blob, enrolledMs, updatedMs)
		if isUniqueViolation(err, "identities.email") {
			return store.ErrDuplicateEmail
		}
		if err != nil {
			return fmt.Errorf("InsertIdentity: %w", err)
		}
		return nil
	})
}

func (s *IdentityStore) ListIdentities(ctx context.Context) ([]types.Identity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+identityColumns+` FROM identities ORDER BY seq;`)
	if err != nil {
		return nil, fmt.Errorf("ListIdentities query: %w", err)
	}
	defer rows.Close()

	var out []types.Identity
	for rows.Next() {
		rec, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("ListIdentities scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListIdentities rows: %w", err)
	}
	return out, nil
}

func (s *IdentityStore) GetIdentity(ctx context.Context, id uuid.UUID) (types.Identity, error) {
	rec, err := scanIdentity(s.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE identity_id = ?;`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Identity{}, store.ErrNotFound
	}
	if err != nil {
		return types.Identity{}, fmt.Errorf("GetIdentity: %w", err)
	}
	return rec, nil
}

func (s *IdentityStore) UpdateAccessLevel(ctx context.Context, id uuid.UUID, level int, at time.Time) (types.Identity, error) {
	return s.update(ctx, id, `UPDATE identities SET access_level = ?, updated_at_ms = ? WHERE identity_id = ?;`,
		level, toMillis(at), id.String())
}

func (s *IdentityStore) SetActive(ctx context.Context, id uuid.UUID, active bool, at time.Time) (types.Identity, error) {
	return s.update(ctx, id, `UPDATE identities SET active = ?, updated_at_ms = ? WHERE identity_id = ?;`,
		boolInt(active), toMillis(at), id.String())
}

func (s *IdentityStore) update(ctx context.Context, id uuid.UUID, query string, args ...any) (types.Identity, error) {
	var rec types.Identity
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update identity %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}
		rec, err = scanIdentity(tx.QueryRowContext(ctx,
			`SELECT `+identityColumns+` FROM identities WHERE identity_id = ?;`, id.String()))
		if err != nil {
			return fmt.Errorf("reload identity %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return types.Identity{}, err
	}
	return rec, nil
}
