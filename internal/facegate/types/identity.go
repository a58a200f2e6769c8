package types

import (
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/facegate/internal/facegate/biometric"
)

// Identity is an enrolled person. The registry owns the enrolled vector and
// the access level; everything else is display metadata.
type Identity struct {
	ID          uuid.UUID               `json:"id"`
	Name        string                  `json:"name"`
	Email       string                  `json:"email"`
	AccessLevel int                     `json:"access_level"`
	Active      bool                    `json:"active"`
	Vector      biometric.FeatureVector `json:"-"`
	EnrolledAt  time.Time               `json:"enrolled_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}
