// Package decomp splits the background grid into subdomains that are processed
// independently and joins their partial results back into one mesh.
package decomp

import (
	"math"
	"sort"

	"github.com/soypat/splash"
	"github.com/soypat/splash/internal/d3"
	"github.com/soypat/splash/internal/parallel"
	"github.com/soypat/splash/neighbor"
	"gonum.org/v1/gonum/spatial/r3"
)

// Subdomain is a block of grid cells processed by one worker.
type Subdomain struct {
	// Cells is the half-open range of cells whose triangles the subdomain emits.
	Cells splash.Box3i
	// Particles are the ids, ascending, of every particle whose support reaches
	// a vertex of Cells. It includes ghost particles owned by neighbours.
	Particles []int
	// Owned is the number of particles whose position lies in Cells.
	Owned int
}

// Vertices returns the closed vertex range of the subdomain cells.
func (s *Subdomain) Vertices() splash.Box3i { return s.Cells }

// Blocks returns the subdomains of a tiling of the grid with cubic blocks of
// blockCells cells per axis, aligned to cell zero. Only blocks sharing a vertex
// with the support box of some particle are returned, so the work and memory
// depend on the particles and not on the extent of the grid. Blocks on the
// upper grid faces are clipped. Subdomains are returned in grid order.
func Blocks(grid splash.UniformGrid, blockCells int, positions []r3.Vec, supports []float64) []Subdomain {
	cells := grid.CellBox()
	if cells.Empty() {
		return nil
	}
	b := max(blockCells, 1)
	var last splash.V3i
	for a := range last {
		last[a] = (grid.Cells[a] - 1) / b
	}
	touched := make(map[splash.V3i]struct{})
	for i, p := range positions {
		vb := grid.VerticesAround(p, supports[i])
		if vb.Hi[0] < vb.Lo[0] || vb.Hi[1] < vb.Lo[1] || vb.Hi[2] < vb.Lo[2] {
			continue
		}
		// Block k holds the closed vertex range [k*b, (k+1)*b].
		var lo, hi splash.V3i
		for a := range lo {
			lo[a] = max(floorDiv(vb.Lo[a]-1, b), 0)
			hi[a] = min(floorDiv(vb.Hi[a], b), last[a])
		}
		for z := lo[2]; z <= hi[2]; z++ {
			for y := lo[1]; y <= hi[1]; y++ {
				for x := lo[0]; x <= hi[0]; x++ {
					touched[splash.V3i{x, y, z}] = struct{}{}
				}
			}
		}
	}
	keys := make([]splash.V3i, 0, len(touched))
	for k := range touched {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	subs := make([]Subdomain, len(keys))
	for i, k := range keys {
		var box splash.Box3i
		for a := range k {
			box.Lo[a] = k[a] * b
			box.Hi[a] = min(box.Lo[a]+b, grid.Cells[a])
		}
		subs[i].Cells = box
	}
	return subs
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

// AutoBlockCells picks the block size for Blocks. It starts from large blocks
// and halves them until the grid holds at least two blocks per worker or
// blocks reach the minimum size.
func AutoBlockCells(cells splash.V3i, workers int) int {
	const maxBlock, minBlock = 64, 8
	b := maxBlock
	for b > minBlock && blockCount(cells, b, 2*workers) < 2*workers {
		b /= 2
	}
	return b
}

// blockCount returns the number of blocks tiling cells, saturated at limit.
func blockCount(cells splash.V3i, block, limit int) int {
	n := 1
	for _, c := range cells {
		n *= max((c+block-1)/block, 1)
		if n >= limit {
			return limit
		}
	}
	return n
}

// OwnerCell returns the cell that owns a particle at p. Particles outside
// the grid are owned by the nearest boundary cell.
func OwnerCell(grid splash.UniformGrid, p r3.Vec) splash.V3i {
	c := grid.CellOf(p)
	for a := range c {
		c[a] = min(max(c[a], 0), grid.Cells[a]-1)
	}
	return c
}

// AssignParticles fills the Particles and Owned fields of every subdomain.
// Ghost candidates come from a box query on idx around the subdomain and are
// kept when their support radius reaches the subdomain's vertices.
func AssignParticles(subs []Subdomain, grid splash.UniformGrid, positions []r3.Vec, supports []float64, idx neighbor.Index, workers int) {
	var halo float64
	for _, s := range supports {
		halo = math.Max(halo, s)
	}
	// Tasks never fail.
	_ = parallel.ForEach(workers, len(subs), func() func(int) error {
		var scratch []int
		return func(i int) error {
			s := &subs[i]
			bounds := d3.Box(grid.Bounds(s.Vertices()))
			scratch = idx.InBox(r3.Box(bounds.Grow(halo)), scratch)
			s.Particles = s.Particles[:0]
			s.Owned = 0
			for _, id := range scratch {
				p, r := positions[id], supports[id]
				if bounds.Dist2(p) > r*r*(1+1e-9) {
					continue
				}
				s.Particles = append(s.Particles, id)
				if s.Cells.ContainsCell(OwnerCell(grid, p)) {
					s.Owned++
				}
			}
			return nil
		}
	})
}
