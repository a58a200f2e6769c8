package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/BrandonDHaskell/facegate/internal/facegate/store"
	"github.com/BrandonDHaskell/facegate/internal/facegate/store/evidence"
	"github.com/BrandonDHaskell/facegate/internal/facegate/types"
)

// handleListAudit serves ?after=&limit=&identity_id= in audit order.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	q, ok := auditQuery(w, r)
	if !ok {
		return
	}
	entries, err := s.audit.ListDecisions(r.Context(), q)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []types.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleLegacyLogs(w http.ResponseWriter, r *http.Request) {
	q, ok := auditQuery(w, r)
	if !ok {
		return
	}
	entries, err := s.audit.ListDecisions(r.Context(), q)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]types.LegacyLogEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, types.NewLegacyLogEntry(e))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleAuditEvidence returns the probe image of one audit entry. A path
// that was recorded but since pruned answers 410.
func (s *Server) handleAuditEvidence(w http.ResponseWriter, r *http.Request) {
	seq, err := strconv.ParseInt(chi.URLParam(r, "seq"), 10, 64)
	if err != nil || seq <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_seq", "seq must be a positive integer")
		return
	}

	entries, err := s.audit.ListDecisions(r.Context(), store.AuditQuery{AfterSeq: seq - 1, Limit: 1})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if len(entries) == 0 || entries[0].Seq != seq {
		writeError(w, http.StatusNotFound, "not_found", "no audit entry with that seq")
		return
	}
	path := entries[0].EvidencePath
	if path == "" || s.evidence == nil {
		writeError(w, http.StatusNotFound, "no_evidence", "no evidence stored for this decision")
		return
	}

	data, err := s.evidence.Open(path)
	switch {
	case errors.Is(err, evidence.ErrNotFound):
		writeError(w, http.StatusGone, "evidence_pruned", "evidence is no longer retained")
		return
	case errors.Is(err, evidence.ErrInvalidPath):
		writeError(w, http.StatusNotFound, "no_evidence", err.Error())
		return
	case err != nil:
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func auditQuery(w http.ResponseWriter, r *http.Request) (store.AuditQuery, bool) {
	var q store.AuditQuery
	v := r.URL.Query()

	if s := v.Get("after"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_after", "after must be a non-negative integer")
			return q, false
		}
		q.AfterSeq = n
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return q, false
		}
		q.Limit = n
	}
	if s := v.Get("identity_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_identity_id", "identity_id must be a UUID")
			return q, false
		}
		q.IdentityID = uuid.NullUUID{UUID: id, Valid: true}
	}
	return q, true
}
