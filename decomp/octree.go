package decomp

import (
	"sort"

	"github.com/soypat/splash"
	"github.com/soypat/splash/internal/parallel"
	"gonum.org/v1/gonum/spatial/r3"
)

// octreeNode is a block of cells and the particles it owns.
type octreeNode struct {
	cells splash.Box3i
	owned []int
}

// Octree subdivides cells adaptively. A block is bisected along every axis
// longer than minCells until it owns at most maxParticles particles.
// Leaves are returned in grid order of their lowest cell and carry their
// Owned count. Particles must still be assigned with AssignParticles.
func Octree(cells splash.Box3i, grid splash.UniformGrid, positions []r3.Vec, maxParticles, minCells int) []Subdomain {
	if cells.Empty() {
		return nil
	}
	maxParticles = max(maxParticles, 1)
	minCells = max(minCells, 1)
	root := octreeNode{cells: cells}
	for id, p := range positions {
		if cells.ContainsCell(OwnerCell(grid, p)) {
			root.owned = append(root.owned, id)
		}
	}
	var leaves []Subdomain
	todo := []octreeNode{root}
	for len(todo) > 0 {
		n := todo[len(todo)-1]
		todo = todo[:len(todo)-1]
		children := n.split(grid, positions, maxParticles, minCells)
		if children == nil {
			leaves = append(leaves, Subdomain{Cells: n.cells, Owned: len(n.owned)})
			continue
		}
		todo = append(todo, children...)
	}
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].Cells.Lo.Less(leaves[j].Cells.Lo) })
	return leaves
}

// split returns the children of n, or nil if n is a leaf.
func (n octreeNode) split(grid splash.UniformGrid, positions []r3.Vec, maxParticles, minCells int) []octreeNode {
	if len(n.owned) <= maxParticles {
		return nil
	}
	sz := n.cells.Size()
	var ranges [3][][2]int
	canSplit := false
	for a := range ranges {
		if sz[a] > minCells {
			ranges[a] = parallel.Split1D(sz[a], 2)
			canSplit = true
		} else {
			ranges[a] = [][2]int{{0, sz[a]}}
		}
	}
	if !canSplit {
		return nil
	}
	var children []octreeNode
	for _, z := range ranges[2] {
		for _, y := range ranges[1] {
			for _, x := range ranges[0] {
				lo := n.cells.Lo.Add(splash.V3i{x[0], y[0], z[0]})
				hi := n.cells.Lo.Add(splash.V3i{x[1], y[1], z[1]})
				children = append(children, octreeNode{cells: splash.Box3i{Lo: lo, Hi: hi}})
			}
		}
	}
	for _, id := range n.owned {
		c := OwnerCell(grid, positions[id])
		for i := range children {
			if children[i].cells.ContainsCell(c) {
				children[i].owned = append(children[i].owned, id)
				break
			}
		}
	}
	return children
}
