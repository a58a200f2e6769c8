package biometric

import (
	"errors"
	"fmt"
	"math"
)

// DefaultTolerance is the Euclidean threshold the reference embedding model
// (dlib ResNet, 128-d) was tuned for. Callers still pass tolerance explicitly;
// config uses this value as its default.
const DefaultTolerance = 0.6

var ErrInvalidTolerance = errors.New("tolerance must be a finite, non-negative number")

// Distance returns the Euclidean distance between a and b.
func Distance(a, b FeatureVector) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, ErrEmptyVector
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// Matches reports whether Distance(a, b) <= tolerance.
func Matches(a, b FeatureVector, tolerance float64) (bool, error) {
	if err := ValidateTolerance(tolerance); err != nil {
		return false, err
	}
	d, err := Distance(a, b)
	if err != nil {
		return false, err
	}
	return d <= tolerance, nil
}

func ValidateTolerance(tolerance float64) error {
	if math.IsNaN(tolerance) || math.IsInf(tolerance, 0) || tolerance < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidTolerance, tolerance)
	}
	return nil
}
