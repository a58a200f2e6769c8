package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/BrandonDHaskell/facegate/internal/embedding"
	"github.com/BrandonDHaskell/facegate/internal/facegate/service"
	"github.com/BrandonDHaskell/facegate/internal/facegate/types"
)

// handleEnroll takes JSON with a vector, or a multipart form with name,
// email, access_level and an image in "file".
func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var req types.EnrollRequest

	if isMultipart(r) {
		image, err := readImage(w, r, "file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_multipart", err.Error())
			return
		}
		level, err := strconv.Atoi(r.FormValue("access_level"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_access_level", "access_level must be an integer")
			return
		}
		vec, ok := s.extractEnrollment(w, r, image)
		if !ok {
			return
		}
		req = types.EnrollRequest{
			Name:        r.FormValue("name"),
			Email:       r.FormValue("email"),
			AccessLevel: level,
			Vector:      vec,
		}
	} else {
		dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
			return
		}
	}

	id, err := s.registry.Enroll(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/admin/identities/"+id.ID.String())
	writeJSON(w, http.StatusCreated, id)
}

func (s *Server) extractEnrollment(w http.ResponseWriter, r *http.Request, image []byte) ([]float32, bool) {
	if _, err := embedding.DetectFormat(image); err != nil {
		s.writeServiceError(w, r, fmt.Errorf("%w: %w", service.ErrMalformedImage, err))
		return nil, false
	}
	if s.extractor == nil {
		s.writeServiceError(w, r, fmt.Errorf("%w: no extractor configured", service.ErrExtractionFailed))
		return nil, false
	}
	vec, found, err := s.extractor.Extract(r.Context(), image)
	if err != nil {
		s.writeServiceError(w, r, fmt.Errorf("%w: %w", service.ErrExtractionFailed, err))
		return nil, false
	}
	if !found {
		writeError(w, http.StatusUnprocessableEntity, "no_face", "no face detected in enrollment image")
		return nil, false
	}
	return vec, true
}

func (s *Server) handleListIdentities(w http.ResponseWriter, r *http.Request) {
	ids, err := s.registry.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if ids == nil {
		ids = []types.Identity{}
	}
	writeJSON(w, http.StatusOK, ids)
}

func (s *Server) handleGetIdentity(w http.ResponseWriter, r *http.Request) {
	id, ok := identityParam(w, r)
	if !ok {
		return
	}
	ident, err := s.registry.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ident)
}

func (s *Server) handleUpdateAccessLevel(w http.ResponseWriter, r *http.Request) {
	id, ok := identityParam(w, r)
	if !ok {
		return
	}
	var req types.UpdateAccessLevelRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	if req.AccessLevel == nil {
		writeError(w, http.StatusBadRequest, "invalid_access_level", "access_level is required")
		return
	}
	ident, err := s.registry.UpdateAccessLevel(r.Context(), id, *req.AccessLevel)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ident)
}

func (s *Server) handleSetActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identityParam(w, r)
		if !ok {
			return
		}
		set := s.registry.Deactivate
		if active {
			set = s.registry.Reactivate
		}
		ident, err := set(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ident)
	}
}

func identityParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "identity id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
