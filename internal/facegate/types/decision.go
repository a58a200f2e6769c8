package types

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the machine-readable result of an access attempt.
type Outcome string

const (
	OutcomeApproved           Outcome = "approved"
	OutcomeDeniedNoFace       Outcome = "denied_no_face"
	OutcomeDeniedNoMatch      Outcome = "denied_no_match"
	OutcomeDeniedUnauthorized Outcome = "denied_unauthorized"
)

func (o Outcome) Valid() bool {
	switch o {
	case OutcomeApproved, OutcomeDeniedNoFace, OutcomeDeniedNoMatch, OutcomeDeniedUnauthorized:
		return true
	}
	return false
}

func (o Outcome) Granted() bool { return o == OutcomeApproved }

// Decision is produced once per access attempt and never mutated afterwards.
// MatchedIdentityID is set for Approved and DeniedUnauthorized.
type Decision struct {
	ID                uuid.UUID     `json:"id"`
	Outcome           Outcome       `json:"outcome"`
	MatchedIdentityID uuid.NullUUID `json:"matched_identity_id"`
	Distance          *float64      `json:"distance,omitempty"`
	MinAccessLevel    int           `json:"min_access_level"`
	Tolerance         float64       `json:"tolerance"`
	Reason            string        `json:"reason"`
	EvidencePath      string        `json:"evidence_path,omitempty"`
	TerminalID        string        `json:"terminal_id,omitempty"`
	DecidedAt         time.Time     `json:"decided_at"`
}

// AuditEntry is a Decision as stored in the audit log. Seq is assigned by the
// store on append and defines audit order.
type AuditEntry struct {
	Seq int64 `json:"seq"`
	Decision
}
