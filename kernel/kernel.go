// Package kernel implements the radially symmetric smoothing kernels used to
// turn particles into a density field.
//
// All kernels have compact support: the weight is zero at and beyond the support
// radius, non-negative everywhere and integrates to one over the support sphere.
package kernel

import (
	"fmt"
	"math"
	"strings"
)

// Kernel maps the distance r from a particle to a density weight for a
// particle with compact support radius support. Implementations are pure and
// safe for concurrent use.
type Kernel interface {
	Weight(r, support float64) float64
}

// CubicSpline is the cubic B-spline kernel of Monaghan normalized for three dimensions.
type CubicSpline struct{}

var _ Kernel = CubicSpline{}

// Weight implements the Kernel interface.
func (CubicSpline) Weight(r, support float64) float64 {
	q := r / support
	if !(q < 1) || q < 0 {
		return 0
	}
	sigma := 8 / (math.Pi * support * support * support)
	if q <= 0.5 {
		q2 := q * q
		return sigma * (6*(q2*q-q2) + 1)
	}
	omq := 1 - q
	return sigma * 2 * omq * omq * omq
}

// WendlandC2 is the Wendland C2 kernel normalized for three dimensions.
type WendlandC2 struct{}

var _ Kernel = WendlandC2{}

// Weight implements the Kernel interface.
func (WendlandC2) Weight(r, support float64) float64 {
	q := r / support
	if !(q < 1) || q < 0 {
		return 0
	}
	sigma := 21 / (2 * math.Pi * support * support * support)
	omq := 1 - q
	omq2 := omq * omq
	return sigma * omq2 * omq2 * (1 + 4*q)
}

// ByName returns the kernel registered under name. The empty
// name selects the cubic spline.
func ByName(name string) (Kernel, error) {
	switch strings.ToLower(name) {
	case "", "cubic", "cubicspline", "cubic_spline":
		return CubicSpline{}, nil
	case "wendland", "wendlandc2", "wendland_c2":
		return WendlandC2{}, nil
	}
	return nil, fmt.Errorf("unknown kernel %q", name)
}
