package render

import (
	"math"
	"testing"

	"github.com/soypat/splash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// mapField is a ScalarField backed by a plain map.
type mapField map[splash.V3i]float64

func (f mapField) Get(v splash.V3i) (float64, bool) { d, ok := f[v]; return d, ok }

func (f mapField) Keys() []splash.V3i {
	keys := make([]splash.V3i, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	return keys
}

// sphereField returns a sparse field decreasing linearly from radius at center
// to zero at distance radius. Only positive values are stored.
func sphereField(grid splash.UniformGrid, center r3.Vec, radius float64) mapField {
	f := make(mapField)
	vb := grid.VerticesAround(center, radius)
	for z := vb.Lo[2]; z <= vb.Hi[2]; z++ {
		for y := vb.Lo[1]; y <= vb.Hi[1]; y++ {
			for x := vb.Lo[0]; x <= vb.Hi[0]; x++ {
				v := splash.V3i{x, y, z}
				if d := radius - r3.Norm(r3.Sub(grid.Position(v), center)); d > 0 {
					f[v] = d
				}
			}
		}
	}
	return f
}

func testGrid(t testing.TB, cells int, h float64) splash.UniformGrid {
	size := float64(cells) * h
	g, err := splash.NewUniformGrid(r3.Box{Max: r3.Vec{X: size, Y: size, Z: size}}, h)
	require.NoError(t, err)
	return g
}

func TestMarchingCubesTables(t *testing.T) {
	maxTriangles := 0
	for c, row := range mcTriangleTable {
		var mask uint16
		n := 0
		for _, e := range row {
			if e < 0 {
				break
			}
			mask |= 1 << e
			n++
		}
		if n%3 != 0 {
			t.Fatalf("case %d: %d edge entries", c, n)
		}
		maxTriangles = max(maxTriangles, n/3)
		if mask != mcEdgeTable[c] {
			t.Errorf("case %d: triangle edges %#x, edge table %#x", c, mask, mcEdgeTable[c])
		}
		// Edge table must flag exactly the edges with differing corners.
		var want uint16
		for i, e := range mcEdges {
			if (c>>e.lo)&1 != (c>>e.hi)&1 {
				want |= 1 << i
			}
		}
		if want != mcEdgeTable[c] {
			t.Errorf("case %d: edge table %#x, corners give %#x", c, mcEdgeTable[c], want)
		}
	}
	if maxTriangles != marchingCubesMaxTriangles {
		t.Errorf("mismatch marching cubes max triangles. got %d. want %d", maxTriangles, marchingCubesMaxTriangles)
	}
	for i, e := range mcEdges {
		d := mcCorners[e.hi].Sub(mcCorners[e.lo])
		var want splash.V3i
		want[e.axis] = 1
		if d != want {
			t.Errorf("edge %d: corners %d->%d differ by %v, want unit step on axis %d", i, e.lo, e.hi, d, e.axis)
		}
	}
}

func TestExtractSphere(t *testing.T) {
	const h, radius = 0.1, 1.0
	grid := testGrid(t, 30, h)
	center := r3.Vec{X: 1.52, Y: 1.49, Z: 1.51}
	field := sphereField(grid, center, radius)
	const iso = 0.25 // surface at distance 0.75
	lm := Extract(grid, field, iso)
	m := lm.Mesh()
	require.False(t, m.Empty())
	assert.False(t, m.Degenerate())
	assert.True(t, m.IsClosed(), "sphere mesh must be closed")
	assert.Len(t, m.Components(), 1)
	want := 4.0 / 3 * math.Pi * 0.75 * 0.75 * 0.75
	assert.InEpsilon(t, want, m.Volume(), 0.03, "positive volume means outward normals")
	for i, v := range m.Vertices {
		d := r3.Norm(r3.Sub(v, center))
		assert.InDelta(t, 0.75, d, h, "vertex %d", i)
	}
	// Vertices lie on grid edges: two coordinates are on grid lines.
	for i, k := range lm.Keys {
		p := grid.Position(k.Lo)
		v := lm.Vertices[i]
		comp := [3]float64{v.X - p.X, v.Y - p.Y, v.Z - p.Z}
		for a := 0; a < 3; a++ {
			if splash.Axis(a) == k.Axis {
				assert.True(t, comp[a] >= 0 && comp[a] <= h+1e-12, "vertex %d off its edge", i)
				continue
			}
			assert.Zero(t, comp[a], "vertex %d axis %d", i, a)
		}
	}
	// Keys are unique.
	seen := make(map[splash.EdgeKey]bool)
	for _, k := range lm.Keys {
		require.False(t, seen[k], "duplicate key %v", k)
		seen[k] = true
	}
}

func TestExtractDeterministic(t *testing.T) {
	grid := testGrid(t, 20, 0.1)
	field := sphereField(grid, r3.Vec{X: 1, Y: 1, Z: 1}, 0.6)
	a := Extract(grid, field, 0.2)
	b := Extract(grid, field, 0.2)
	assert.Equal(t, a, b)
}

// keyedTriangles returns the triangles of lm expressed through vertex keys.
func keyedTriangles(lm *LocalMesh) map[[3]splash.EdgeKey]int {
	out := make(map[[3]splash.EdgeKey]int)
	for _, t := range lm.Triangles {
		out[[3]splash.EdgeKey{lm.Keys[t[0]], lm.Keys[t[1]], lm.Keys[t[2]]}]++
	}
	return out
}

func TestExtractRegionsAgree(t *testing.T) {
	grid := testGrid(t, 16, 0.125)
	field := sphereField(grid, r3.Vec{X: 1.01, Y: 0.98, Z: 1.03}, 0.8)
	whole := Extract(grid, field, 0.3)
	wholeTris := keyedTriangles(whole)
	wholePos := make(map[splash.EdgeKey]r3.Vec)
	for i, k := range whole.Keys {
		wholePos[k] = whole.Vertices[i]
	}
	union := make(map[[3]splash.EdgeKey]int)
	for _, lo := range []splash.V3i{{0, 0, 0}, {8, 0, 0}, {0, 8, 0}, {8, 8, 0}, {0, 0, 8}, {8, 0, 8}, {0, 8, 8}, {8, 8, 8}} {
		part := ExtractCells(grid, field, 0.3, splash.Box3i{Lo: lo, Hi: lo.AddScalar(8)})
		for tri, c := range keyedTriangles(part) {
			union[tri] += c
		}
		for i, k := range part.Keys {
			// Shared vertices are computed bit for bit the same in every region.
			require.Equal(t, wholePos[k], part.Vertices[i], "key %v", k)
		}
	}
	assert.Equal(t, wholeTris, union)
}

func TestExtractTieBreak(t *testing.T) {
	grid := testGrid(t, 4, 1)
	// All corners at the isovalue: nothing is inside.
	flat := make(mapField)
	for z := 0; z <= 4; z++ {
		for y := 0; y <= 4; y++ {
			for x := 0; x <= 4; x++ {
				flat[splash.V3i{x, y, z}] = 0.5
			}
		}
	}
	assert.Empty(t, Extract(grid, flat, 0.5).Triangles)

	// A single inside vertex surrounded by vertices at the isovalue: crossings
	// land on the neighbors, which are keyed as grid vertices.
	single := mapField{{2, 2, 2}: 1}
	for _, d := range []splash.V3i{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}} {
		single[splash.V3i{2, 2, 2}.Add(d)] = 0.5
		single[splash.V3i{2, 2, 2}.Sub(d)] = 0.5
	}
	lm := Extract(grid, single, 0.5)
	m := lm.Mesh()
	assert.False(t, m.Degenerate())
	assert.Len(t, lm.Vertices, 6)
	for i, k := range lm.Keys {
		require.Equal(t, splash.OnVertex, k.Axis)
		assert.Equal(t, grid.Position(k.Lo), lm.Vertices[i])
	}
	// Missing corners read as zero and count as outside.
	lone := mapField{{2, 2, 2}: 1}
	lm = Extract(grid, lone, 0.5)
	mm := lm.Mesh()
	assert.True(t, mm.IsClosed())
	assert.Len(t, lm.Vertices, 6)
	assert.Len(t, lm.Triangles, 8)
	assert.Greater(t, mm.Volume(), 0.0)
}

func TestExtractEmpty(t *testing.T) {
	grid := testGrid(t, 4, 1)
	lm := Extract(grid, mapField{}, 0)
	assert.Empty(t, lm.Vertices)
	assert.Empty(t, lm.Triangles)
	lm = ExtractCells(grid, mapField{{1, 1, 1}: 1}, 0, splash.Box3i{Lo: splash.V3i{3, 3, 3}, Hi: splash.V3i{4, 4, 4}})
	assert.Empty(t, lm.Triangles)
}
