package neighbor

import (
	"math"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	_ Index            = (*KDTree)(nil)
	_ kdtree.Interface = kdPoints{}
	_ kdtree.Bounder   = kdPoints{}
)

// KDTree is an Index backed by a gonum k-d tree.
type KDTree struct {
	tree *kdtree.Tree
	n    int
}

// NewKDTree builds a k-d tree over positions. The positions slice is not retained.
func NewKDTree(positions []r3.Vec) *KDTree {
	pts := make(kdPoints, len(positions))
	for i, p := range positions {
		pts[i] = kdPoint{Vec: p, id: i}
	}
	kd := &KDTree{n: len(positions)}
	if len(pts) > 0 {
		kd.tree = kdtree.New(pts, true)
	}
	return kd
}

// Len returns the number of indexed particles.
func (kd *KDTree) Len() int { return kd.n }

// NeighborsWithin implements Index.
func (kd *KDTree) NeighborsWithin(p r3.Vec, radius float64, dst []int) []int {
	dst = dst[:0]
	if kd.tree == nil || radius < 0 {
		return dst
	}
	r2 := radius * radius
	keep := kdtree.NewDistKeeper(r2)
	kd.tree.NearestSet(keep, kdPoint{Vec: p, id: -1})
	for _, c := range keep.Heap {
		// The keeper is seeded with a nil sentinel at the query distance.
		if c.Comparable == nil {
			continue
		}
		if c.Dist <= r2 {
			dst = append(dst, c.Comparable.(kdPoint).id)
		}
	}
	slices.Sort(dst)
	return dst
}

// InBox implements Index.
func (kd *KDTree) InBox(box r3.Box, dst []int) []int {
	dst = dst[:0]
	if kd.tree == nil {
		return dst
	}
	if box.Max.X < box.Min.X || box.Max.Y < box.Min.Y || box.Max.Z < box.Min.Z {
		return dst
	}
	// Search the ball circumscribing the box and keep the points inside it.
	center := r3.Scale(0.5, r3.Add(box.Min, box.Max))
	r2 := r3.Norm2(r3.Scale(0.5, r3.Sub(box.Max, box.Min)))
	keep := kdtree.NewDistKeeper(r2*(1+1e-9) + 1e-300)
	kd.tree.NearestSet(keep, kdPoint{Vec: center, id: -1})
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue
		}
		pt := c.Comparable.(kdPoint)
		if inBox(box, pt.Vec) {
			dst = append(dst, pt.id)
		}
	}
	slices.Sort(dst)
	return dst
}

type kdPoints []kdPoint

// kdPoint is a particle position tagged with its id.
type kdPoint struct {
	r3.Vec
	id int
}

func (k kdPoints) Index(i int) kdtree.Comparable { return k[i] }

// Len returns the length of the list.
func (k kdPoints) Len() int { return len(k) }

// Pivot partitions the list based on the dimension specified.
func (k kdPoints) Pivot(d kdtree.Dim) int {
	p := kdPlane{dim: int(d), points: k}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

// Slice returns a slice of the list using zero-based half
// open indexing equivalent to built-in slice indexing.
func (k kdPoints) Slice(start, end int) kdtree.Interface {
	return k[start:end]
}

func (k kdPoints) Bounds() *kdtree.Bounding {
	max := r3.Vec{X: -math.MaxFloat64, Y: -math.MaxFloat64, Z: -math.MaxFloat64}
	min := r3.Vec{X: math.MaxFloat64, Y: math.MaxFloat64, Z: math.MaxFloat64}
	for _, p := range k {
		min = r3.Vec{X: math.Min(min.X, p.X), Y: math.Min(min.Y, p.Y), Z: math.Min(min.Z, p.Z)}
		max = r3.Vec{X: math.Max(max.X, p.X), Y: math.Max(max.Y, p.Y), Z: math.Max(max.Z, p.Z)}
	}
	return &kdtree.Bounding{
		Min: kdPoint{Vec: min, id: -1},
		Max: kdPoint{Vec: max, id: -1},
	}
}

// Compare returns the signed distance of a from the plane passing through
// b and perpendicular to the dimension d.
//
// Given c = a.Compare(b, d):
//
//	c = a_d - b_d
func (a kdPoint) Compare(b kdtree.Comparable, d kdtree.Dim) float64 {
	return kdComp(a.Vec, b.(kdPoint).Vec, int(d))
}

// Dims returns the number of dimensions described in the Comparable.
func (a kdPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between the receiver and
// the parameter.
func (a kdPoint) Distance(b kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(a.Vec, b.(kdPoint).Vec))
}

// c = a.dim - b.dim
func kdComp(a, b r3.Vec, dim int) (c float64) {
	switch dim {
	case 0:
		c = a.X - b.X
	case 1:
		c = a.Y - b.Y
	case 2:
		c = a.Z - b.Z
	}
	return c
}

type kdPlane struct {
	dim    int
	points kdPoints
}

func (p kdPlane) Less(i, j int) bool {
	return kdComp(p.points[i].Vec, p.points[j].Vec, p.dim) < 0
}
func (p kdPlane) Swap(i, j int) {
	p.points[i], p.points[j] = p.points[j], p.points[i]
}
func (p kdPlane) Len() int {
	return len(p.points)
}
func (p kdPlane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}
