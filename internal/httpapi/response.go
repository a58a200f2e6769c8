package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/BrandonDHaskell/facegate/internal/facegate/biometric"
	"github.com/BrandonDHaskell/facegate/internal/facegate/service"
	"github.com/BrandonDHaskell/facegate/internal/facegate/store"
	"github.com/BrandonDHaskell/facegate/internal/facegate/types"
	"github.com/BrandonDHaskell/facegate/internal/facegate/wire"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: code, Message: msg})
}

// errorStatus maps service and store errors onto an HTTP status and a
// machine-readable code. Policy outcomes never reach here. Operational
// failures are matched first: they may wrap an input error from a stored
// vector, which is still a server fault.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrExtractionFailed):
		return http.StatusBadGateway, "extraction_failed"
	case errors.Is(err, service.ErrRegistryUnavailable):
		return http.StatusServiceUnavailable, "registry_unavailable"
	case errors.Is(err, service.ErrAuditUnavailable):
		return http.StatusServiceUnavailable, "audit_unavailable"
	case errors.Is(err, service.ErrScanAborted), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "scan_aborted"
	case errors.Is(err, biometric.ErrDimensionMismatch):
		return http.StatusBadRequest, "dimension_mismatch"
	case errors.Is(err, biometric.ErrEmptyVector), errors.Is(err, biometric.ErrInvalidVector):
		return http.StatusBadRequest, "invalid_vector"
	case errors.Is(err, wire.ErrBadField):
		return http.StatusBadRequest, "bad_field"
	case errors.Is(err, service.ErrMalformedImage):
		return http.StatusBadRequest, "malformed_image"
	case errors.Is(err, service.ErrInvalidName):
		return http.StatusBadRequest, "invalid_name"
	case errors.Is(err, service.ErrInvalidEmail):
		return http.StatusBadRequest, "invalid_email"
	case errors.Is(err, service.ErrInvalidAccessLevel):
		return http.StatusBadRequest, "invalid_access_level"
	case errors.Is(err, store.ErrDuplicateEmail):
		return http.StatusConflict, "duplicate_email"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	}
	return http.StatusInternalServerError, "internal_error"
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Sugar().Errorw("request failed", "path", r.URL.Path, "code", code, "error", err)
	}
	if status == http.StatusInternalServerError {
		writeError(w, status, code, "unexpected server error")
		return
	}
	writeError(w, status, code, err.Error())
}
