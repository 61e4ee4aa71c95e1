package splash

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// maxGridCells limits the number of cells along one axis of the background grid.
// Larger grids overflow the integer arithmetic used to address vertices.
const maxGridCells = 1 << 30

// UniformGrid is the implicit background grid of cubic cells of edge length
// CellSize. Vertex idx sits at Origin + CellSize*idx. Vertices range
// over the closed box [0, Cells] and cells over the half-open box [0, Cells).
// The grid is never materialized.
type UniformGrid struct {
	Origin   r3.Vec
	CellSize float64
	Cells    V3i
}

// NewUniformGrid returns the smallest grid with cell size h whose
// origin is box.Min and whose cells cover box.
func NewUniformGrid(box r3.Box, h float64) (UniformGrid, error) {
	if !(h > 0) || math.IsInf(h, 0) {
		return UniformGrid{}, fmt.Errorf("%w: cell size must be positive and finite, got %g", ErrInvalidConfiguration, h)
	}
	size := r3.Sub(box.Max, box.Min)
	var cells V3i
	for i, s := range [3]float64{size.X, size.Y, size.Z} {
		if math.IsNaN(s) || s < 0 {
			return UniformGrid{}, fmt.Errorf("%w: invalid grid bounds %v", ErrInvalidConfiguration, box)
		}
		n := math.Ceil(s / h)
		if n > maxGridCells {
			return UniformGrid{}, fmt.Errorf("%w: grid needs %g cells along axis %d, cell size %g too small for domain", ErrInvalidConfiguration, n, i, h)
		}
		cells[i] = max(int(n), 1)
	}
	return UniformGrid{Origin: box.Min, CellSize: h, Cells: cells}, nil
}

// Position returns the world position of vertex v.
func (g UniformGrid) Position(v V3i) r3.Vec {
	return r3.Vec{
		X: g.Origin.X + g.CellSize*float64(v[0]),
		Y: g.Origin.Y + g.CellSize*float64(v[1]),
		Z: g.Origin.Z + g.CellSize*float64(v[2]),
	}
}

// CellOf returns the cell containing p. The result is not clamped to the grid.
func (g UniformGrid) CellOf(p r3.Vec) V3i {
	return V3i{
		int(math.Floor((p.X - g.Origin.X) / g.CellSize)),
		int(math.Floor((p.Y - g.Origin.Y) / g.CellSize)),
		int(math.Floor((p.Z - g.Origin.Z) / g.CellSize)),
	}
}

// CellBox returns the half-open cell range of the whole grid.
func (g UniformGrid) CellBox() Box3i {
	return Box3i{Hi: g.Cells}
}

// VertexBox returns the closed vertex range of the whole grid.
func (g UniformGrid) VertexBox() Box3i {
	return Box3i{Hi: g.Cells}
}

// Bounds returns the world space bounding box of the closed vertex box b.
func (g UniformGrid) Bounds(b Box3i) r3.Box {
	return r3.Box{Min: g.Position(b.Lo), Max: g.Position(b.Hi)}
}

// VerticesAround returns the closed range of grid vertices that may lie within
// radius of p, clipped to the grid.
func (g UniformGrid) VerticesAround(p r3.Vec, radius float64) Box3i {
	lo := g.CellOf(r3.Sub(p, r3.Vec{X: radius, Y: radius, Z: radius}))
	hi := g.CellOf(r3.Add(p, r3.Vec{X: radius, Y: radius, Z: radius})).AddScalar(1)
	return Box3i{Lo: lo, Hi: hi}.Intersect(g.VertexBox())
}

// Axis identifies a grid edge direction.
type Axis int8

const (
	AxisX Axis = iota
	AxisY
	AxisZ
	// OnVertex marks an identity key that refers to a grid vertex rather
	// than to an edge. Surface crossings that land exactly on a grid
	// vertex are keyed this way so coincident points share one key.
	OnVertex
)

// EdgeKey identifies a surface vertex independent of which cell or
// subdomain discovered it. For edge crossings Lo is the lower endpoint of the
// grid edge and Axis its direction; the upper endpoint is Lo plus one along Axis.
type EdgeKey struct {
	Lo   V3i
	Axis Axis
}

// NewEdgeKey returns the canonical key of the grid edge joining vertices a and b,
// which must be adjacent. The key does not depend on the argument order.
func NewEdgeKey(a, b V3i) EdgeKey {
	if b.Less(a) {
		a, b = b, a
	}
	d := b.Sub(a)
	switch d {
	case V3i{1, 0, 0}:
		return EdgeKey{Lo: a, Axis: AxisX}
	case V3i{0, 1, 0}:
		return EdgeKey{Lo: a, Axis: AxisY}
	case V3i{0, 0, 1}:
		return EdgeKey{Lo: a, Axis: AxisZ}
	}
	panic(fmt.Sprintf("vertices %v and %v are not adjacent on the grid", a, b))
}

// VertexKey returns the identity key of grid vertex v.
func VertexKey(v V3i) EdgeKey {
	return EdgeKey{Lo: v, Axis: OnVertex}
}

// Hi returns the upper endpoint of the keyed edge. For vertex keys it returns Lo.
func (k EdgeKey) Hi() V3i {
	hi := k.Lo
	if k.Axis != OnVertex {
		hi[k.Axis]++
	}
	return hi
}

// Less orders keys by their low vertex and then by axis.
func (k EdgeKey) Less(o EdgeKey) bool {
	if k.Lo != o.Lo {
		return k.Lo.Less(o.Lo)
	}
	return k.Axis < o.Axis
}
