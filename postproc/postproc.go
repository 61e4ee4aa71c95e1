// Package postproc applies optional smoothing and simplification passes to
// reconstructed meshes. The passes run on github.com/unixpickle/model3d meshes.
package postproc

import (
	"sort"

	"github.com/soypat/splash"
	"github.com/soypat/splash/render"
	"github.com/unixpickle/model3d/model3d"
	"gonum.org/v1/gonum/spatial/r3"
)

// Options selects the passes run by Apply. Zero values disable a pass.
type Options struct {
	// SmoothIterations is the number of area minimizing smoothing steps.
	SmoothIterations int
	// SmoothStep is the gradient descent step size of each smoothing iteration.
	SmoothStep float64
	// CoplanarEpsilon merges triangles whose normals differ by less than
	// this amount. Zero disables simplification.
	CoplanarEpsilon float64
}

// Apply runs the passes selected by opts on m and returns the new mesh.
// Vertex attributes are dropped since vertices move or disappear.
func Apply(m *splash.Mesh, opts Options) *splash.Mesh {
	if m.Empty() || (opts.SmoothIterations <= 0 && opts.CoplanarEpsilon <= 0) {
		return m
	}
	mm := toModel3d(m)
	if opts.SmoothIterations > 0 && opts.SmoothStep > 0 {
		mm = mm.SmoothAreas(opts.SmoothStep, opts.SmoothIterations)
	}
	if opts.CoplanarEpsilon > 0 {
		mm = mm.EliminateCoplanar(opts.CoplanarEpsilon)
	}
	return fromModel3d(mm)
}

// Smooth moves vertices to reduce the surface area of m.
func Smooth(m *splash.Mesh, step float64, iterations int) *splash.Mesh {
	return Apply(m, Options{SmoothIterations: iterations, SmoothStep: step})
}

// Simplify removes vertices surrounded by coplanar triangles.
func Simplify(m *splash.Mesh, epsilon float64) *splash.Mesh {
	return Apply(m, Options{CoplanarEpsilon: epsilon})
}

// Report summarizes topological defects found by model3d.
type Report struct {
	NeedsRepair      bool
	SingularVertices int
}

// Check inspects m for edges not shared by exactly two consistently
// oriented triangles and for singular vertices.
func Check(m *splash.Mesh) Report {
	mm := toModel3d(m)
	return Report{
		NeedsRepair:      mm.NeedsRepair(),
		SingularVertices: len(mm.SingularVertices()),
	}
}

func toModel3d(m *splash.Mesh) *model3d.Mesh {
	tris := make([]*model3d.Triangle, len(m.Triangles))
	for i := range m.Triangles {
		c := m.Triangle(i)
		tris[i] = &model3d.Triangle{toCoord(c[0]), toCoord(c[1]), toCoord(c[2])}
	}
	return model3d.NewMeshTriangles(tris)
}

func toCoord(v r3.Vec) model3d.Coord3D { return model3d.XYZ(v.X, v.Y, v.Z) }

func toVec(c model3d.Coord3D) r3.Vec { return r3.Vec{X: c.X, Y: c.Y, Z: c.Z} }

// fromModel3d converts back to an indexed mesh. model3d does not keep
// triangle order so triangles are sorted by their corners.
func fromModel3d(mm *model3d.Mesh) *splash.Mesh {
	soup := make([]render.Triangle3, 0)
	mm.Iterate(func(t *model3d.Triangle) {
		soup = append(soup, render.Triangle3{V: [3]r3.Vec{toVec(t[0]), toVec(t[1]), toVec(t[2])}})
	})
	sort.Slice(soup, func(i, j int) bool { return lessTriangle(soup[i], soup[j]) })
	return render.FromTriangles(soup)
}

func lessTriangle(a, b render.Triangle3) bool {
	for k := range a.V {
		if a.V[k] != b.V[k] {
			return lessVec(a.V[k], b.V[k])
		}
	}
	return false
}

func lessVec(a, b r3.Vec) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}
