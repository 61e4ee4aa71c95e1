package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Box is a 3d axis aligned bounding box.
type Box r3.Box

// Equals test the equality of 3d boxes.
func (a Box) Equals(b Box, tol float64) bool {
	return EqualWithin(a.Min, b.Min, tol) && EqualWithin(a.Max, b.Max, tol)
}

// Include enlarges a 3d box to include a point.
func (a Box) Include(v r3.Vec) Box {
	return Box{
		Min: MinElem(a.Min, v),
		Max: MaxElem(a.Max, v),
	}
}

// Grow returns the box with every face moved outward by margin.
// A negative margin shrinks the box.
func (a Box) Grow(margin float64) Box {
	m := Elem(margin)
	return Box{Min: r3.Sub(a.Min, m), Max: r3.Add(a.Max, m)}
}

// Empty reports whether the box has a negative extent along any axis.
func (a Box) Empty() bool {
	return a.Max.X < a.Min.X || a.Max.Y < a.Min.Y || a.Max.Z < a.Min.Z
}

// Contains checks if the 3d box contains the given vector (considering bounds as inside).
func (a Box) Contains(v r3.Vec) bool {
	return a.Min.X <= v.X && a.Min.Y <= v.Y && a.Min.Z <= v.Z &&
		v.X <= a.Max.X && v.Y <= a.Max.Y && v.Z <= a.Max.Z
}

// Dist2 returns the squared distance from p to the closest point of the box.
// Points within the box have distance 0.
func (a Box) Dist2(p r3.Vec) float64 {
	d := r3.Sub(Clamp(p, a.Min, a.Max), p)
	return r3.Norm2(d)
}

// Bounds returns the bounding box of a set of points.
// An empty set yields an Empty box.
func Bounds(pts []r3.Vec) Box {
	if len(pts) == 0 {
		inf := math.Inf(1)
		return Box{Min: Elem(inf), Max: Elem(-inf)}
	}
	b := Box{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		b = b.Include(p)
	}
	return b
}
