package splash

import (
	"math"

	"github.com/soypat/splash/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mesh is an indexed triangle mesh. Vertices are unique: two triangles that
// meet at a point reference it through the same index.
type Mesh struct {
	Vertices  []r3.Vec
	Triangles [][3]int
	// Attributes holds optional per vertex data, one value per vertex.
	Attributes []Attribute
}

// Empty reports whether the mesh has no triangles.
func (m *Mesh) Empty() bool { return len(m.Triangles) == 0 }

// Bounds returns the bounding box of the mesh vertices.
func (m *Mesh) Bounds() r3.Box {
	return r3.Box(d3.Bounds(m.Vertices))
}

// Triangle returns the corner positions of triangle i.
func (m *Mesh) Triangle(i int) [3]r3.Vec {
	t := m.Triangles[i]
	return [3]r3.Vec{m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]]}
}

// Normal returns the unit normal of triangle i following the right hand rule.
// Zero area triangles return the zero vector.
func (m *Mesh) Normal(i int) r3.Vec {
	c := m.Triangle(i)
	n := r3.Cross(r3.Sub(c[1], c[0]), r3.Sub(c[2], c[0]))
	l := r3.Norm(n)
	if l == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/l, n)
}

// Area returns the total surface area.
func (m *Mesh) Area() float64 {
	var a float64
	for i := range m.Triangles {
		c := m.Triangle(i)
		a += 0.5 * r3.Norm(r3.Cross(r3.Sub(c[1], c[0]), r3.Sub(c[2], c[0])))
	}
	return a
}

// Volume returns the signed enclosed volume. It is positive for closed meshes
// with outward facing triangles.
func (m *Mesh) Volume() float64 {
	var v float64
	for i := range m.Triangles {
		c := m.Triangle(i)
		v += r3.Dot(c[0], r3.Cross(c[1], c[2]))
	}
	return v / 6
}

// VertexNormals returns area weighted vertex normals.
func (m *Mesh) VertexNormals() []r3.Vec {
	normals := make([]r3.Vec, len(m.Vertices))
	for i, t := range m.Triangles {
		c := m.Triangle(i)
		n := r3.Cross(r3.Sub(c[1], c[0]), r3.Sub(c[2], c[0]))
		for _, v := range t {
			normals[v] = r3.Add(normals[v], n)
		}
	}
	for i, n := range normals {
		if l := r3.Norm(n); l > 0 {
			normals[i] = r3.Scale(1/l, n)
		}
	}
	return normals
}

// MeshEdge is an undirected mesh edge with V[0] < V[1].
type MeshEdge struct{ V [2]int }

func newMeshEdge(a, b int) MeshEdge {
	if a > b {
		a, b = b, a
	}
	return MeshEdge{V: [2]int{a, b}}
}

// EdgeCounts returns how many triangles use each edge of the mesh.
func (m *Mesh) EdgeCounts() map[MeshEdge]int {
	counts := make(map[MeshEdge]int, 3*len(m.Triangles)/2)
	for _, t := range m.Triangles {
		counts[newMeshEdge(t[0], t[1])]++
		counts[newMeshEdge(t[1], t[2])]++
		counts[newMeshEdge(t[2], t[0])]++
	}
	return counts
}

// IsClosed reports whether every edge is shared by exactly two triangles.
func (m *Mesh) IsClosed() bool {
	if len(m.Triangles) == 0 {
		return false
	}
	for _, c := range m.EdgeCounts() {
		if c != 2 {
			return false
		}
	}
	return true
}

// Components splits the mesh into connected components. Triangles are
// connected when they share a vertex. Components are ordered by their
// first triangle.
func (m *Mesh) Components() []*Mesh {
	parent := make([]int, len(m.Vertices))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for _, t := range m.Triangles {
		a := find(t[0])
		for _, v := range t[1:] {
			if b := find(v); b != a {
				parent[b] = a
			}
		}
	}
	var comps []*Mesh
	compOf := make(map[int]int)
	remap := make([]int, len(m.Vertices))
	for i := range remap {
		remap[i] = -1
	}
	for _, t := range m.Triangles {
		root := find(t[0])
		ci, ok := compOf[root]
		if !ok {
			ci = len(comps)
			compOf[root] = ci
			comps = append(comps, &Mesh{})
		}
		c := comps[ci]
		var nt [3]int
		for k, v := range t {
			if remap[v] < 0 {
				remap[v] = len(c.Vertices)
				c.Vertices = append(c.Vertices, m.Vertices[v])
			}
			nt[k] = remap[v]
		}
		c.Triangles = append(c.Triangles, nt)
	}
	return comps
}

// Degenerate reports whether any triangle references a vertex index twice.
func (m *Mesh) Degenerate() bool {
	for _, t := range m.Triangles {
		if t[0] == t[1] || t[1] == t[2] || t[0] == t[2] {
			return true
		}
	}
	return false
}

// Contains reports whether p lies inside the closed mesh by counting ray crossings
// along +X. The result is meaningless for open meshes.
func (m *Mesh) Contains(p r3.Vec) bool {
	// Slightly skewed ray to avoid hitting edges of grid aligned meshes.
	dir := r3.Unit(r3.Vec{X: 1, Y: 1e-3 * math.Sqrt2, Z: 1e-3 * math.Pi})
	crossings := 0
	for i := range m.Triangles {
		if rayHitsTriangle(p, dir, m.Triangle(i)) {
			crossings++
		}
	}
	return crossings%2 == 1
}

// rayHitsTriangle implements the Möller-Trumbore intersection test.
func rayHitsTriangle(orig, dir r3.Vec, tri [3]r3.Vec) bool {
	const eps = 1e-12
	e1 := r3.Sub(tri[1], tri[0])
	e2 := r3.Sub(tri[2], tri[0])
	h := r3.Cross(dir, e2)
	a := r3.Dot(e1, h)
	if math.Abs(a) < eps {
		return false
	}
	f := 1 / a
	s := r3.Sub(orig, tri[0])
	u := f * r3.Dot(s, h)
	if u < 0 || u > 1 {
		return false
	}
	q := r3.Cross(s, e1)
	v := f * r3.Dot(dir, q)
	if v < 0 || u+v > 1 {
		return false
	}
	return f*r3.Dot(e2, q) > eps
}
