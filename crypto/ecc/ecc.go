package ecc

import (
	"math/big"
)

// Point defines the operations available on an elliptic curve group element.
// It represents the affine coordinates of a point and provides arithmetic,
// serialization and comparison methods. All confidential values in the engine
// are pairs of Points.
type Point interface {
	// New returns a new point on the same curve, set to the identity.
	New() Point

	// Order returns the order of the curve subgroup.
	Order() *big.Int

	// Add adds two group elements and stores the result in the receiver.
	Add(a, b Point)

	// SafeAdd is Add with exclusive access to the receiver during the
	// operation.
	SafeAdd(a, b Point)

	// ScalarMult multiplies the group element a by scalar and stores the
	// result in the receiver.
	ScalarMult(a Point, scalar *big.Int)

	// ScalarBaseMult sets the receiver to scalar times the generator.
	ScalarBaseMult(scalar *big.Int)

	// Marshal serializes the point into a byte slice.
	Marshal() []byte

	// Unmarshal deserializes a byte slice into the point. The input must be
	// a valid serialized point, or an error is returned.
	Unmarshal(buf []byte) error

	// Equal reports whether the receiver and a are the same group element.
	Equal(a Point) bool

	// Neg sets the receiver to the inverse of a.
	Neg(a Point)

	// SetZero sets the receiver to the identity element.
	SetZero()

	// Set sets the receiver to the value of a.
	Set(a Point)

	// SetGenerator sets the receiver to the generator point.
	SetGenerator()

	// String returns a human-readable representation of the point.
	String() string

	// Point returns the X and Y affine coordinates.
	Point() (*big.Int, *big.Int)

	// SetPoint sets the point from X and Y affine coordinates.
	SetPoint(x, y *big.Int) Point
}
