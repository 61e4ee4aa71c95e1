// Package neighbor answers fixed radius and box queries over particle positions.
//
// Indexes are built once and are then safe for concurrent read only queries.
// Query results are particle ids in ascending order, which lets callers sum
// contributions in an order that does not depend on the index implementation.
package neighbor

import (
	"github.com/soypat/splash/internal/parallel"
	"gonum.org/v1/gonum/spatial/r3"
)

// Index is a read only spatial index over a set of particle positions.
type Index interface {
	// NeighborsWithin appends to dst[:0] the ids of particles within
	// distance radius of p, sorted ascending, and returns the result.
	NeighborsWithin(p r3.Vec, radius float64, dst []int) []int
	// InBox appends to dst[:0] the ids of particles inside the closed box,
	// sorted ascending, and returns the result.
	InBox(box r3.Box, dst []int) []int
	// Len returns the number of indexed particles.
	Len() int
}

// Lists returns for every position the ids of the other particles within radius.
// Queries run on a pool of workers goroutines.
func Lists(idx Index, positions []r3.Vec, radius float64, workers int) [][]int {
	lists := make([][]int, len(positions))
	// Tasks never fail.
	_ = parallel.ForEach(workers, len(positions), func() func(int) error {
		var scratch []int
		return func(i int) error {
			scratch = idx.NeighborsWithin(positions[i], radius, scratch)
			list := make([]int, 0, len(scratch))
			for _, j := range scratch {
				if j != i {
					list = append(list, j)
				}
			}
			lists[i] = list
			return nil
		}
	})
	return lists
}

func inBox(b r3.Box, p r3.Vec) bool {
	return b.Min.X <= p.X && p.X <= b.Max.X &&
		b.Min.Y <= p.Y && p.Y <= b.Max.Y &&
		b.Min.Z <= p.Z && p.Z <= b.Max.Z
}
