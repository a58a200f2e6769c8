package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/facegate/internal/facegate/service"
	"github.com/BrandonDHaskell/facegate/internal/facegate/types"
	"github.com/BrandonDHaskell/facegate/internal/facegate/wire"
)

// handleAccess accepts a JSON probe vector, a protobuf Struct, or a
// multipart image in field "file". Every outcome is 200; only operational
// failures produce an error status.
func (s *Server) handleAccess(w http.ResponseWriter, r *http.Request) {
	switch {
	case isMultipart(r):
		image, err := readImage(w, r, "file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_multipart", err.Error())
			return
		}
		d, err := s.access.Analyze(r.Context(), service.AnalyzeRequest{
			Image:      image,
			TerminalID: r.FormValue("terminal_id"),
		})
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, types.NewAccessResponse(d))

	case isProtobuf(r):
		var msg structpb.Struct
		if err := readProto(r, &msg); err != nil {
			writeError(w, http.StatusBadRequest, "bad_protobuf", "invalid protobuf body")
			return
		}
		req, err := wire.AccessRequestFromStruct(&msg)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		d, err := s.decideWire(r, req)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		out, err := wire.AccessResponseToStruct(types.NewAccessResponse(d))
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeProto(w, http.StatusOK, out)

	default:
		var req types.AccessRequest
		dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
			return
		}
		d, err := s.access.DecideVector(r.Context(), req)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, types.NewAccessResponse(d))
	}
}

func (s *Server) decideWire(r *http.Request, req wire.AccessRequest) (types.Decision, error) {
	if req.Image != nil {
		return s.access.Analyze(r.Context(), service.AnalyzeRequest{
			Image:          req.Image,
			TerminalID:     req.TerminalID,
			MinAccessLevel: req.MinAccessLevel,
		})
	}
	return s.access.DecideVector(r.Context(), req.AccessRequest)
}

// handleLegacyAnalyze answers {"result": "approved"|"denied"} for a
// multipart "file" upload.
func (s *Server) handleLegacyAnalyze(w http.ResponseWriter, r *http.Request) {
	image, err := readImage(w, r, "file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_multipart", err.Error())
		return
	}
	d, err := s.access.Analyze(r.Context(), service.AnalyzeRequest{Image: image})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": types.NewAccessResponse(d).Result})
}

// handleLegacySearchFace serves the kiosk frontend: 200 with the employee
// id on approval, 404 when nobody matched, 403 for an unauthorized match.
func (s *Server) handleLegacySearchFace(w http.ResponseWriter, r *http.Request) {
	image, err := readImage(w, r, "face")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_multipart", err.Error())
		return
	}
	d, err := s.access.Analyze(r.Context(), service.AnalyzeRequest{Image: image})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	switch d.Outcome {
	case types.OutcomeApproved:
		writeJSON(w, http.StatusOK, map[string]string{"employee_id": d.MatchedIdentityID.UUID.String()})
	case types.OutcomeDeniedUnauthorized:
		writeError(w, http.StatusForbidden, string(d.Outcome), d.Reason)
	default:
		writeError(w, http.StatusNotFound, string(d.Outcome), d.Reason)
	}
}

func readImage(w http.ResponseWriter, r *http.Request, field string) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+1<<20)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		return nil, fmt.Errorf("parse multipart form: %w", err)
	}
	f, _, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("missing %q file: %w", field, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %q file: %w", field, err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("%q file exceeds %d bytes", field, maxImageBytes)
	}
	return data, nil
}
