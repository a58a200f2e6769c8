package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/facegate/internal/facegate/store"
	"github.com/BrandonDHaskell/facegate/internal/facegate/types"
)

type AuditStore struct {
	db *sql.DB
}

func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

// appendLockKey names the advisory lock that serializes audit appends.
const appendLockKey = 0x66616365 // "face"

// AppendDecision holds a transaction-scoped advisory lock around the insert so
// seq values commit in order. Without it a reader paging with AfterSeq could
// pass a lower seq that commits after a higher one and never see it.
func (s *AuditStore) AppendDecision(ctx context.Context, d types.Decision) (types.AuditEntry, error) {
	d.DecidedAt = normalizeTime(d.DecidedAt)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.AuditEntry{}, fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, appendLockKey); err != nil {
		return types.AuditEntry{}, fmt.Errorf("lock audit log: %w", err)
	}

	var seq int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO access_decisions (
			decision_id, identity_id, outcome, reason, distance,
			min_access_level, tolerance, evidence_path, terminal_id, decided_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING seq
	`,
		d.ID, d.MatchedIdentityID, string(d.Outcome), d.Reason, d.Distance,
		d.MinAccessLevel, d.Tolerance, nullString(d.EvidencePath), nullString(d.TerminalID), d.DecidedAt,
	).Scan(&seq)
	if err != nil {
		return types.AuditEntry{}, fmt.Errorf("insert decision: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return types.AuditEntry{}, fmt.Errorf("commit decision: %w", err)
	}
	return types.AuditEntry{Seq: seq, Decision: d}, nil
}

func (s *AuditStore) ListDecisions(ctx context.Context, q store.AuditQuery) ([]types.AuditEntry, error) {
	where := []string{"seq > $1"}
	args := []any{q.AfterSeq}
	if q.IdentityID.Valid {
		args = append(args, q.IdentityID.UUID)
		where = append(where, fmt.Sprintf("identity_id = $%d", len(args)))
	}
	args = append(args, q.EffectiveLimit())

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, decision_id, identity_id, outcome, reason, distance,
		       min_access_level, tolerance, evidence_path, terminal_id, decided_at
		FROM access_decisions
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY seq
		LIMIT $`+fmt.Sprint(len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []types.AuditEntry
	for rows.Next() {
		var (
			e          types.AuditEntry
			identityID uuid.NullUUID
			outcome    string
			distance   sql.NullFloat64
			evidence   sql.NullString
			terminal   sql.NullString
		)
		if err := rows.Scan(&e.Seq, &e.ID, &identityID, &outcome, &e.Reason, &distance,
			&e.MinAccessLevel, &e.Tolerance, &evidence, &terminal, &e.DecidedAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		if distance.Valid {
			v := distance.Float64
			e.Distance = &v
		}
		e.MatchedIdentityID = identityID
		e.Outcome = types.Outcome(outcome)
		e.EvidencePath = evidence.String
		e.TerminalID = terminal.String
		e.DecidedAt = e.DecidedAt.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}
	return out, nil
}
