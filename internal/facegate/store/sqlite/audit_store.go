package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	dbpkg "github.com/BrandonDHaskell/facegate/internal/db"
	"github.com/BrandonDHaskell/facegate/internal/facegate/store"
	"github.com/BrandonDHaskell/facegate/internal/facegate/types"
)

type AuditStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAuditStore(db *sql.DB, writer *dbpkg.Worker) *AuditStore {
	return &AuditStore{db: db, writer: writer}
}

func (s *AuditStore) AppendDecision(ctx context.Context, d types.Decision) (types.AuditEntry, error) {
	var identityID any
	if d.MatchedIdentityID.Valid {
		identityID = d.MatchedIdentityID.UUID.String()
	}
	var distance any
	if d.Distance != nil {
		distance = *d.Distance
	}
	decidedMs := toMillis(d.DecidedAt)

	var seq int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO access_decisions(
  decision_id, identity_id, outcome, reason, distance,
  min_access_level, tolerance, evidence_path, terminal_id, decided_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			d.ID.String(), identityID, string(d.Outcome), d.Reason, distance,
			d.MinAccessLevel, d.Tolerance, nullString(d.EvidencePath), nullString(d.TerminalID), decidedMs,
		)
		if err != nil {
			return fmt.Errorf("AppendDecision insert: %w", err)
		}
		seq, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("AppendDecision seq: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.AuditEntry{}, err
	}

	d.DecidedAt = fromMillis(decidedMs)
	return types.AuditEntry{Seq: seq, Decision: d}, nil
}

func (s *AuditStore) ListDecisions(ctx context.Context, q store.AuditQuery) ([]types.AuditEntry, error) {
	var (
		where = []string{"seq > ?"}
		args  = []any{q.AfterSeq}
	)
	if q.IdentityID.Valid {
		where = append(where, "identity_id = ?")
		args = append(args, q.IdentityID.UUID.String())
	}
	args = append(args, q.EffectiveLimit())

	rows, err := s.db.QueryContext(ctx, `
SELECT seq, decision_id, identity_id, outcome, reason, distance,
       min_access_level, tolerance, evidence_path, terminal_id, decided_at_ms
FROM access_decisions
WHERE `+strings.Join(where, " AND ")+`
ORDER BY seq
LIMIT ?;`, args...)
	if err != nil {
		return nil, fmt.Errorf("ListDecisions query: %w", err)
	}
	defer rows.Close()

	var out []types.AuditEntry
	for rows.Next() {
		var (
			e          types.AuditEntry
			decisionID string
			identityID sql.NullString
			outcome    string
			distance   sql.NullFloat64
			evidence   sql.NullString
			terminal   sql.NullString
			decidedMs  int64
		)
		if err := rows.Scan(&e.Seq, &decisionID, &identityID, &outcome, &e.Reason, &distance,
			&e.MinAccessLevel, &e.Tolerance, &evidence, &terminal, &decidedMs); err != nil {
			return nil, fmt.Errorf("ListDecisions scan: %w", err)
		}

		if e.ID, err = uuid.Parse(decisionID); err != nil {
			return nil, fmt.Errorf("decision_id %q: %w", decisionID, err)
		}
		if identityID.Valid {
			id, err := uuid.Parse(identityID.String)
			if err != nil {
				return nil, fmt.Errorf("identity_id %q: %w", identityID.String, err)
			}
			e.MatchedIdentityID = uuid.NullUUID{UUID: id, Valid: true}
		}
		if distance.Valid {
			v := distance.Float64
			e.Distance = &v
		}
		e.Outcome = types.Outcome(outcome)
		e.EvidencePath = evidence.String
		e.TerminalID = terminal.String
		e.DecidedAt = fromMillis(decidedMs)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListDecisions rows: %w", err)
	}
	return out, nil
}
