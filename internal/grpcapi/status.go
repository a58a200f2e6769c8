package grpcapi

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/BrandonDHaskell/facegate/internal/auth"
	"github.com/BrandonDHaskell/facegate/internal/facegate/biometric"
	"github.com/BrandonDHaskell/facegate/internal/facegate/service"
	"github.com/BrandonDHaskell/facegate/internal/facegate/store"
	"github.com/BrandonDHaskell/facegate/internal/facegate/wire"
)

// codeFor matches operational failures before input errors, since a
// registry fault can wrap a vector error from stored data.
func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, service.ErrExtractionFailed),
		errors.Is(err, service.ErrRegistryUnavailable),
		errors.Is(err, service.ErrAuditUnavailable):
		return codes.Unavailable
	case errors.Is(err, service.ErrScanAborted), errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, auth.ErrMissingScope):
		return codes.PermissionDenied
	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenExpired):
		return codes.Unauthenticated
	case errors.Is(err, biometric.ErrDimensionMismatch),
		errors.Is(err, biometric.ErrEmptyVector),
		errors.Is(err, biometric.ErrInvalidVector),
		errors.Is(err, wire.ErrBadField),
		errors.Is(err, service.ErrMalformedImage):
		return codes.InvalidArgument
	case errors.Is(err, store.ErrDuplicateEmail):
		return codes.AlreadyExists
	case errors.Is(err, store.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	}
	return codes.Internal
}

func toStatus(err error) error {
	code := codeFor(err)
	if code == codes.Internal {
		return status.Error(code, "unexpected server error")
	}
	return status.Error(code, err.Error())
}
