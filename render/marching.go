package render

import (
	"sort"

	"github.com/soypat/splash"
	"gonum.org/v1/gonum/spatial/r3"
)

// marchingCubesMaxTriangles is the most triangles a single cell can produce.
const marchingCubesMaxTriangles = 5

// mcCorners are the offsets of the eight cell corners from the cell origin.
// Corners 0-3 wind around the bottom face, 4-7 sit above them.
var mcCorners = [8]splash.V3i{
	{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
}

// mcEdges lists the corners joined by each cell edge, lower grid vertex first,
// and the axis of the edge.
var mcEdges = [12]struct {
	lo, hi int
	axis   splash.Axis
}{
	{0, 1, splash.AxisX}, {1, 2, splash.AxisY}, {3, 2, splash.AxisX}, {0, 3, splash.AxisY},
	{4, 5, splash.AxisX}, {5, 6, splash.AxisY}, {7, 6, splash.AxisX}, {4, 7, splash.AxisY},
	{0, 4, splash.AxisZ}, {1, 5, splash.AxisZ}, {2, 6, splash.AxisZ}, {3, 7, splash.AxisZ},
}

// ScalarField is a sparse field over grid vertices read by the extractor.
// Vertices without an entry read as zero.
type ScalarField interface {
	Get(v splash.V3i) (float64, bool)
	Keys() []splash.V3i
}

// LocalMesh is the output of extracting one region of the grid. Vertex
// indices are local to the region. Keys[i] identifies Vertices[i] globally.
type LocalMesh struct {
	Vertices  []r3.Vec
	Keys      []splash.EdgeKey
	Triangles [][3]int
}

// Mesh returns the local mesh as a splash.Mesh sharing its storage.
func (lm *LocalMesh) Mesh() *splash.Mesh {
	return &splash.Mesh{Vertices: lm.Vertices, Triangles: lm.Triangles}
}

// Extract runs marching cubes over every cell of the grid.
func Extract(grid splash.UniformGrid, field ScalarField, iso float64) *LocalMesh {
	return ExtractCells(grid, field, iso, grid.CellBox())
}

// ExtractCells runs marching cubes on the cells of the half open box that have
// at least one corner with a field entry.
//
// A corner is inside when its value is strictly greater than iso, so corners
// equal to iso and corners missing from the field are outside. Surface
// vertices are shared between cells through their EdgeKey: a crossing is always
// interpolated from the lower vertex of its grid edge, and a crossing that lands
// on a grid vertex is keyed by that vertex. Any region containing a cell
// therefore produces the same vertex position and key for it. Triangles are
// wound so their normals point out of the inside region. Triangles that
// collapse onto fewer than three distinct vertices are dropped.
func ExtractCells(grid splash.UniformGrid, field ScalarField, iso float64, cells splash.Box3i) *LocalMesh {
	cells = cells.Intersect(grid.CellBox())
	lm := &LocalMesh{}
	if cells.Empty() {
		return lm
	}
	e := extractor{
		grid:  grid,
		field: field,
		iso:   iso,
		index: make(map[splash.EdgeKey]int),
		out:   lm,
	}
	for _, c := range activeCells(field, cells) {
		e.processCell(c)
	}
	return lm
}

// activeCells returns in grid order the cells of box with a corner in the field.
func activeCells(field ScalarField, box splash.Box3i) []splash.V3i {
	seen := make(map[splash.V3i]struct{})
	var cells []splash.V3i
	for _, v := range field.Keys() {
		for _, off := range mcCorners {
			c := v.Sub(off)
			if !box.ContainsCell(c) {
				continue
			}
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				cells = append(cells, c)
			}
		}
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].Less(cells[j]) })
	return cells
}

type extractor struct {
	grid  splash.UniformGrid
	field ScalarField
	iso   float64
	index map[splash.EdgeKey]int
	out   *LocalMesh
}

func (e *extractor) processCell(c splash.V3i) {
	var values [8]float64
	var cubeIndex int
	for i, off := range mcCorners {
		values[i], _ = e.field.Get(c.Add(off))
		if values[i] > e.iso {
			cubeIndex |= 1 << i
		}
	}
	edges := mcEdgeTable[cubeIndex]
	if edges == 0 {
		return
	}
	var vidx [12]int
	for i, edge := range mcEdges {
		if edges&(1<<i) == 0 {
			continue
		}
		vidx[i] = e.vertex(c, values[edge.lo], values[edge.hi], edge.lo, edge.hi, edge.axis)
	}
	row := &mcTriangleTable[cubeIndex]
	for k := 0; k < len(row) && row[k] >= 0; k += 3 {
		// Table triangles face inward, reverse them.
		t := [3]int{vidx[row[k+2]], vidx[row[k+1]], vidx[row[k]]}
		if t[0] == t[1] || t[1] == t[2] || t[0] == t[2] {
			continue
		}
		e.out.Triangles = append(e.out.Triangles, t)
	}
}

// vertex returns the local index of the surface crossing on the cell edge
// between corners lo and hi, adding it on first sight.
func (e *extractor) vertex(cell splash.V3i, dlo, dhi float64, lo, hi int, axis splash.Axis) int {
	vlo := cell.Add(mcCorners[lo])
	t := splash.Clamp((e.iso-dlo)/(dhi-dlo), 0, 1)
	var key splash.EdgeKey
	switch t {
	case 0:
		key = splash.VertexKey(vlo)
	case 1:
		key = splash.VertexKey(cell.Add(mcCorners[hi]))
	default:
		key = splash.EdgeKey{Lo: vlo, Axis: axis}
	}
	if i, ok := e.index[key]; ok {
		return i
	}
	p := e.grid.Position(key.Lo)
	if key.Axis != splash.OnVertex {
		d := t * e.grid.CellSize
		switch axis {
		case splash.AxisX:
			p.X += d
		case splash.AxisY:
			p.Y += d
		case splash.AxisZ:
			p.Z += d
		}
	}
	i := len(e.out.Vertices)
	e.index[key] = i
	e.out.Vertices = append(e.out.Vertices, p)
	e.out.Keys = append(e.out.Keys, key)
	return i
}
