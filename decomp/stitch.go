package decomp

import (
	"github.com/soypat/splash"
	"github.com/soypat/splash/density"
	"github.com/soypat/splash/render"
	"gonum.org/v1/gonum/spatial/r3"
)

// Stitch merges the meshes extracted from each subdomain into one mesh.
// Parts are visited in order. Vertices are identified across parts by their
// EdgeKey and the first occurrence of a key provides the merged vertex, so the
// result only depends on the parts and their order.
func Stitch(parts []*render.LocalMesh) *render.LocalMesh {
	var nv, nt int
	for _, p := range parts {
		nv += len(p.Vertices)
		nt += len(p.Triangles)
	}
	out := &render.LocalMesh{
		Vertices:  make([]r3.Vec, 0, nv),
		Keys:      make([]splash.EdgeKey, 0, nv),
		Triangles: make([][3]int, 0, nt),
	}
	global := make(map[splash.EdgeKey]int, nv)
	remap := make([]int, 0)
	for _, p := range parts {
		remap = remap[:0]
		for i, k := range p.Keys {
			g, ok := global[k]
			if !ok {
				g = len(out.Vertices)
				global[k] = g
				out.Vertices = append(out.Vertices, p.Vertices[i])
				out.Keys = append(out.Keys, k)
			}
			remap = append(remap, g)
		}
		for _, t := range p.Triangles {
			out.Triangles = append(out.Triangles, [3]int{remap[t[0]], remap[t[1]], remap[t[2]]})
		}
	}
	return out
}

// MergeFields joins per subdomain fields into one field over the grid. Each
// vertex is taken from the one subdomain that owns it: the subdomain whose
// cells start at the vertex, or the last subdomain along an axis for vertices
// on the upper grid face. Fields are indexed like subs.
func MergeFields(grid splash.UniformGrid, subs []Subdomain, fields []*density.Field) *density.Field {
	var n int
	for _, f := range fields {
		n += f.Len()
	}
	out := density.NewField(n)
	for i, f := range fields {
		// Closed range of the vertices owned by subdomain i.
		owner := subs[i].Cells
		for a := range owner.Hi {
			if owner.Hi[a] != grid.Cells[a] {
				owner.Hi[a]--
			}
		}
		f.Restrict(owner).Range(func(v splash.V3i, d float64) bool {
			out.Add(v, d)
			return true
		})
	}
	return out
}
