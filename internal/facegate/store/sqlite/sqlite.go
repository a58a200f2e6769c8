// Package sqlite implements the facegate stores on modernc.org/sqlite. Reads
// go straight to *sql.DB; every write is funnelled through a db.Worker.
package sqlite

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/BrandonDHaskell/facegate/internal/facegate/biometric"
	"github.com/BrandonDHaskell/facegate/internal/facegate/types"
)

const identityColumns = `identity_id, name, email, access_level, active, vector, enrolled_at_ms, updated_at_ms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(r rowScanner) (types.Identity, error) {
	var (
		rec        types.Identity
		rawID      string
		active     int
		blob       []byte
		enrolledMs int64
		updatedMs  int64
	)
	if err := r.Scan(&rawID, &rec.Name, &rec.Email, &rec.AccessLevel, &active, &blob, &enrolledMs, &updatedMs); err != nil {
		return types.Identity{}, err
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return types.Identity{}, fmt.Errorf("identity_id %q: %w", rawID, err)
	}
	var vec biometric.FeatureVector
	if err := vec.UnmarshalBinary(blob); err != nil {
		return types.Identity{}, fmt.Errorf("identity %s vector: %w", rawID, err)
	}

	rec.ID = id
	rec.Active = active == 1
	rec.Vector = vec
	rec.EnrolledAt = fromMillis(enrolledMs)
	rec.UpdatedAt = fromMillis(updatedMs)
	return rec, nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure on
// the given table.column.
func isUniqueViolation(err error, column string) bool {
	var se *moderncsqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	if se.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return false
	}
	return strings.Contains(se.Error(), column)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

