package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// R3 vector helpers missing from gonum's r3 package.

func Elem(sides float64) r3.Vec {
	return r3.Vec{
		X: sides,
		Y: sides,
		Z: sides,
	}
}

func EqualWithin(a, b r3.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol &&
		math.Abs(a.Y-b.Y) <= tol &&
		math.Abs(a.Z-b.Z) <= tol
}

// IsFinite reports whether all components of a are neither NaN nor infinite.
func IsFinite(a r3.Vec) bool {
	return !math.IsNaN(a.X) && !math.IsNaN(a.Y) && !math.IsNaN(a.Z) &&
		!math.IsInf(a.X, 0) && !math.IsInf(a.Y, 0) && !math.IsInf(a.Z, 0)
}

// MinElem return a vector with the minimum components of two vectors.
func MinElem(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
}

// MaxElem return a vector with the maximum components of two vectors.
func MaxElem(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
}

func Clamp(x, a, b r3.Vec) r3.Vec {
	return r3.Vec{
		X: clamp(x.X, a.X, b.X),
		Y: clamp(x.Y, a.Y, b.Y),
		Z: clamp(x.Z, a.Z, b.Z),
	}
}

// Clamp x between a and b, assume a <= b
func clamp(x, a, b float64) float64 {
	return math.Min(b, math.Max(x, a))
}
