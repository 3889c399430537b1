// Package signature defines the face signature vector produced by sensors
// and the distance used to compare two signatures.
package signature

import (
	"errors"
	"math"
)

// NativeLength is the signature size emitted by the ESP32 camera firmware.
const NativeLength = 9408

// ErrEmpty is returned when a zero-length signature is submitted.
var ErrEmpty = errors.New("empty signature")

// Signature is a fixed-length vector of signed 8-bit coordinates.
// Its wire and storage form is the raw byte sequence with no header.
type Signature []int8

// FromBytes reinterprets raw bytes as signed coordinates.
func FromBytes(b []byte) Signature {
	s := make(Signature, len(b))
	for i, v := range b {
		s[i] = int8(v)
	}
	return s
}

// Bytes returns the raw storage form of the signature.
func (s Signature) Bytes() []byte {
	b := make([]byte, len(s))
	for i, v := range s {
		b[i] = byte(v)
	}
	return b
}

// Len returns the number of coordinates.
func (s Signature) Len() int {
	return len(s)
}

// Comparable reports whether two signatures have the same length.
func (s Signature) Comparable(other Signature) bool {
	return len(s) == len(other)
}

// Validate returns ErrEmpty for a zero-length signature.
func (s Signature) Validate() error {
	if len(s) == 0 {
		return ErrEmpty
	}
	return nil
}

// Distance computes the Euclidean (L2) distance between two signatures.
// Returns +Inf when the signatures are not comparable.
func Distance(a, b Signature) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}

	// Squared differences of int8 coordinates are at most 255^2,
	// so an int64 accumulator cannot overflow for any realistic length.
	var sum int64
	for i := range a {
		d := int64(a[i]) - int64(b[i])
		sum += d * d
	}
	return math.Sqrt(float64(sum))
}
