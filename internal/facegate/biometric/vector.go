// Package biometric holds the feature-vector type produced by the external
// embedding server and the Euclidean matcher used by the decision engine.
package biometric

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	ErrDimensionMismatch = errors.New("feature vectors have different dimensionality")
	ErrEmptyVector       = errors.New("feature vector is empty")
	ErrInvalidVector     = errors.New("feature vector contains NaN or Inf")
)

// FeatureVector is a fixed-length face descriptor. Values are treated as
// immutable once produced; use Clone before handing a vector to code that
// might write to it.
type FeatureVector []float32

// NewFeatureVector copies values into a new vector and validates it.
func NewFeatureVector(values []float32) (FeatureVector, error) {
	v := make(FeatureVector, len(values))
	copy(v, values)
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v FeatureVector) Dim() int { return len(v) }

func (v FeatureVector) Clone() FeatureVector {
	if v == nil {
		return nil
	}
	out := make(FeatureVector, len(v))
	copy(out, v)
	return out
}

// Validate rejects empty vectors and non-finite components.
func (v FeatureVector) Validate() error {
	if len(v) == 0 {
		return ErrEmptyVector
	}
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: component %d", ErrInvalidVector, i)
		}
	}
	return nil
}

// CheckDim returns ErrDimensionMismatch unless v has exactly dim components.
func (v FeatureVector) CheckDim(dim int) error {
	if len(v) != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), dim)
	}
	return nil
}

// MarshalBinary encodes the vector as little-endian float32 words.
func (v FeatureVector) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf, nil
}

func (v *FeatureVector) UnmarshalBinary(data []byte) error {
	if len(data)%4 != 0 {
		return fmt.Errorf("feature vector blob length %d is not a multiple of 4", len(data))
	}
	out := make(FeatureVector, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	*v = out
	return nil
}
