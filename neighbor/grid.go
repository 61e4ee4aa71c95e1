package neighbor

import (
	"math"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/spatial/r3"
)

// Grid is a uniform grid hash index. Particles are bucketed by the integer
// cell containing them. Queries visit the buckets overlapping the query
// region, so they are fastest when the cell size is close to the query radius.
type Grid struct {
	pos      []r3.Vec
	cellSize float64
	cells    map[[3]int][]int
	// lo and hi bound the occupied cells.
	lo, hi [3]int
}

var _ Index = (*Grid)(nil)

// NewGrid buckets positions into cubic cells of edge cellSize. Non-positive
// cell sizes pick one from the extent of the positions.
func NewGrid(positions []r3.Vec, cellSize float64) *Grid {
	if !(cellSize > 0) {
		cellSize = autoCellSize(positions)
	}
	g := &Grid{
		pos:      positions,
		cellSize: cellSize,
		cells:    make(map[[3]int][]int),
	}
	for i, p := range positions {
		c := g.cellOf(p)
		g.cells[c] = append(g.cells[c], i)
		for k := range c {
			if i == 0 || c[k] < g.lo[k] {
				g.lo[k] = c[k]
			}
			if i == 0 || c[k] > g.hi[k] {
				g.hi[k] = c[k]
			}
		}
	}
	return g
}

// autoCellSize returns a cell size that puts about one particle in each cell
// of the bounding box.
func autoCellSize(positions []r3.Vec) float64 {
	if len(positions) < 2 {
		return 1
	}
	lo, hi := positions[0], positions[0]
	for _, p := range positions[1:] {
		lo = r3.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = r3.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	sz := r3.Sub(hi, lo)
	vol := math.Max(sz.X, 1e-12) * math.Max(sz.Y, 1e-12) * math.Max(sz.Z, 1e-12)
	h := math.Cbrt(vol / float64(len(positions)))
	if !(h > 0) || math.IsInf(h, 0) {
		return 1
	}
	return h
}

func (g *Grid) cellOf(p r3.Vec) [3]int {
	return [3]int{
		int(math.Floor(p.X / g.cellSize)),
		int(math.Floor(p.Y / g.cellSize)),
		int(math.Floor(p.Z / g.cellSize)),
	}
}

// clampedCell returns the cell of p clamped to the occupied cells. It is safe
// for infinite coordinates.
func (g *Grid) clampedCell(p r3.Vec) [3]int {
	var c [3]int
	for k, v := range [3]float64{p.X, p.Y, p.Z} {
		f := math.Floor(v / g.cellSize)
		switch {
		case f < float64(g.lo[k]):
			c[k] = g.lo[k]
		case f > float64(g.hi[k]):
			c[k] = g.hi[k]
		default:
			c[k] = int(f)
		}
	}
	return c
}

// Len returns the number of indexed particles.
func (g *Grid) Len() int { return len(g.pos) }

// NeighborsWithin implements Index.
func (g *Grid) NeighborsWithin(p r3.Vec, radius float64, dst []int) []int {
	dst = dst[:0]
	if len(g.pos) == 0 || radius < 0 {
		return dst
	}
	r2 := radius * radius
	box := r3.Box{
		Min: r3.Sub(p, r3.Vec{X: radius, Y: radius, Z: radius}),
		Max: r3.Add(p, r3.Vec{X: radius, Y: radius, Z: radius}),
	}
	dst = g.visit(box, dst, func(q r3.Vec) bool {
		return r3.Norm2(r3.Sub(q, p)) <= r2
	})
	slices.Sort(dst)
	return dst
}

// InBox implements Index.
func (g *Grid) InBox(box r3.Box, dst []int) []int {
	dst = dst[:0]
	if len(g.pos) == 0 {
		return dst
	}
	dst = g.visit(box, dst, func(q r3.Vec) bool { return inBox(box, q) })
	slices.Sort(dst)
	return dst
}

// visit appends ids of particles in buckets overlapping box for which keep returns true.
func (g *Grid) visit(box r3.Box, dst []int, keep func(r3.Vec) bool) []int {
	if box.Max.X < box.Min.X || box.Max.Y < box.Min.Y || box.Max.Z < box.Min.Z {
		return dst
	}
	lo, hi := g.clampedCell(box.Min), g.clampedCell(box.Max)
	span := float64(hi[0]-lo[0]+1) * float64(hi[1]-lo[1]+1) * float64(hi[2]-lo[2]+1)
	if span > float64(4*len(g.cells)) {
		// Query region is larger than the occupied space: scan buckets instead.
		for c, ids := range g.cells {
			if c[0] < lo[0] || c[0] > hi[0] || c[1] < lo[1] || c[1] > hi[1] || c[2] < lo[2] || c[2] > hi[2] {
				continue
			}
			dst = appendKept(dst, ids, g.pos, keep)
		}
		return dst
	}
	for z := lo[2]; z <= hi[2]; z++ {
		for y := lo[1]; y <= hi[1]; y++ {
			for x := lo[0]; x <= hi[0]; x++ {
				dst = appendKept(dst, g.cells[[3]int{x, y, z}], g.pos, keep)
			}
		}
	}
	return dst
}

func appendKept(dst, ids []int, pos []r3.Vec, keep func(r3.Vec) bool) []int {
	for _, id := range ids {
		if keep(pos[id]) {
			dst = append(dst, id)
		}
	}
	return dst
}
