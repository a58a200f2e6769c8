// Package store defines the persistence contracts for the identity registry
// and the audit log. Implementations live in the memory, sqlite and postgres
// subpackages.
package store

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("an identity with this email is already enrolled")
	ErrAppendOnly     = errors.New("audit log is append-only")
)
