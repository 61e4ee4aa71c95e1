// Package render extracts triangle meshes from sparse density fields and
// encodes meshes to disk formats.
package render

import (
	"io"

	"github.com/soypat/splash"
	"gonum.org/v1/gonum/spatial/r3"
)

// Triangle3 is a 3D triangle given by its corners.
type Triangle3 struct {
	V [3]r3.Vec
}

// Normal returns the unit normal of the triangle following the right hand rule.
func (t Triangle3) Normal() r3.Vec {
	e1 := r3.Sub(t.V[1], t.V[0])
	e2 := r3.Sub(t.V[2], t.V[0])
	n := r3.Cross(e1, e2)
	if l := r3.Norm(n); l > 0 {
		return r3.Scale(1/l, n)
	}
	return r3.Vec{}
}

// Degenerate returns true if two vertices of the triangle are within tol of each other.
func (t Triangle3) Degenerate(tol float64) bool {
	return equalWithin(t.V[0], t.V[1], tol) ||
		equalWithin(t.V[1], t.V[2], tol) ||
		equalWithin(t.V[2], t.V[0], tol)
}

func equalWithin(a, b r3.Vec, tol float64) bool {
	d := r3.Sub(a, b)
	return d.X <= tol && d.X >= -tol && d.Y <= tol && d.Y >= -tol && d.Z <= tol && d.Z >= -tol
}

// Renderer streams triangles. ReadTriangles fills dst and returns the number of
// triangles written. It returns io.EOF once no triangles remain.
type Renderer interface {
	ReadTriangles(dst []Triangle3) (int, error)
}

// meshRenderer streams the triangles of an indexed mesh.
type meshRenderer struct {
	m    *splash.Mesh
	next int
}

// NewMeshRenderer returns a Renderer over the triangles of m.
func NewMeshRenderer(m *splash.Mesh) Renderer {
	return &meshRenderer{m: m}
}

func (mr *meshRenderer) ReadTriangles(dst []Triangle3) (n int, err error) {
	if len(dst) == 0 {
		panic("cannot write to empty triangle slice")
	}
	for n < len(dst) && mr.next < len(mr.m.Triangles) {
		dst[n] = Triangle3{V: mr.m.Triangle(mr.next)}
		mr.next++
		n++
	}
	if mr.next == len(mr.m.Triangles) {
		err = io.EOF
	}
	return n, err
}

// Triangles returns the triangle soup of m.
func Triangles(m *splash.Mesh) []Triangle3 {
	out := make([]Triangle3, len(m.Triangles))
	for i := range out {
		out[i] = Triangle3{V: m.Triangle(i)}
	}
	return out
}

// FromTriangles builds an indexed mesh from a triangle soup. Corners with
// identical coordinates become one vertex. Degenerate triangles are dropped.
func FromTriangles(soup []Triangle3) *splash.Mesh {
	m := &splash.Mesh{}
	index := make(map[r3.Vec]int, len(soup))
	for _, t := range soup {
		var tri [3]int
		for k, v := range t.V {
			i, ok := index[v]
			if !ok {
				i = len(m.Vertices)
				index[v] = i
				m.Vertices = append(m.Vertices, v)
			}
			tri[k] = i
		}
		if tri[0] == tri[1] || tri[1] == tri[2] || tri[0] == tri[2] {
			continue
		}
		m.Triangles = append(m.Triangles, tri)
	}
	return m
}
