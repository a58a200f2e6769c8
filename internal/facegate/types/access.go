package types

import "time"

// AccessRequest is the JSON body of POST /v1/access for callers that run
// feature extraction themselves. A null or missing vector means the
// terminal's detector found no face.
type AccessRequest struct {
	Vector         []float32 `json:"vector"`
	TerminalID     string    `json:"terminal_id,omitempty"`
	MinAccessLevel *int      `json:"min_access_level,omitempty"`
}

type AccessResponse struct {
	Result     string   `json:"result"` // "approved" | "denied"
	Outcome    Outcome  `json:"outcome"`
	Granted    bool     `json:"granted"`
	Reason     string   `json:"reason"`
	IdentityID string   `json:"identity_id,omitempty"`
	DecisionID string   `json:"decision_id"`
	Distance   *float64 `json:"distance,omitempty"`
	ServerTime string   `json:"server_time"`
}

// LegacyLogEntry is the row shape served by GET /api/v1/logs.
type LegacyLogEntry struct {
	ID        int64   `json:"id"`
	UserID    *string `json:"user_id"`
	Time      string  `json:"time"`
	Status    string  `json:"status"`
	ImagePath *string `json:"image_path"`
}

// NewAccessResponse projects a decision onto the transport response.
func NewAccessResponse(d Decision) AccessResponse {
	resp := AccessResponse{
		Result:     "denied",
		Outcome:    d.Outcome,
		Granted:    d.Outcome.Granted(),
		Reason:     d.Reason,
		DecisionID: d.ID.String(),
		Distance:   d.Distance,
		ServerTime: d.DecidedAt.UTC().Format(time.RFC3339Nano),
	}
	if resp.Granted {
		resp.Result = "approved"
	}
	if d.MatchedIdentityID.Valid {
		resp.IdentityID = d.MatchedIdentityID.UUID.String()
	}
	return resp
}

// NewLegacyLogEntry renders an audit entry in the legacy /api/v1/logs shape.
func NewLegacyLogEntry(e AuditEntry) LegacyLogEntry {
	out := LegacyLogEntry{
		ID:     e.Seq,
		Time:   e.DecidedAt.UTC().Format(time.RFC3339Nano),
		Status: legacyStatus(e.Outcome),
	}
	if e.MatchedIdentityID.Valid {
		id := e.MatchedIdentityID.UUID.String()
		out.UserID = &id
	}
	if e.EvidencePath != "" {
		p := e.EvidencePath
		out.ImagePath = &p
	}
	return out
}

func legacyStatus(o Outcome) string {
	switch o {
	case OutcomeApproved:
		return "Access approved"
	case OutcomeDeniedNoFace:
		return "Access denied: No face detected in uploaded image."
	case OutcomeDeniedNoMatch:
		return "Access denied: No matching face found."
	case OutcomeDeniedUnauthorized:
		return "Access denied: Unauthorized employee access level."
	}
	return "Access denied"
}
