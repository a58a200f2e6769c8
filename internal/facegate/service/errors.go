package service

import "errors"

var (
	ErrRegistryUnavailable = errors.New("identity registry unavailable")
	ErrAuditUnavailable    = errors.New("audit log unavailable")
	ErrScanAborted         = errors.New("registry scan aborted")

	ErrInvalidName        = errors.New("name is required")
	ErrInvalidEmail       = errors.New("email is not a valid address")
	ErrInvalidAccessLevel = errors.New("access_level must be >= 0")

	ErrMalformedImage   = errors.New("image data is malformed or of an unsupported type")
	ErrExtractionFailed = errors.New("feature extraction failed")
)
