package render

import (
	"fmt"
	"math"
	"sort"

	"github.com/soypat/splash"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the quality of a triangle mesh.
type Stats struct {
	Vertices, Triangles int
	// BoundaryEdges are used by one triangle, NonManifoldEdges by more than two.
	BoundaryEdges, NonManifoldEdges int
	Components                      int
	Area, Volume                    float64
	EdgeMean, EdgeStdDev            float64
	// AspectMean is the mean ratio of longest edge to shortest altitude
	// scaled so an equilateral triangle reads 1.
	AspectMean, AspectMax float64
}

// MeshStats computes quality statistics of m.
func MeshStats(m *splash.Mesh) Stats {
	s := Stats{
		Vertices:  len(m.Vertices),
		Triangles: len(m.Triangles),
		Area:      m.Area(),
		Volume:    m.Volume(),
	}
	if len(m.Triangles) == 0 {
		return s
	}
	edges := m.EdgeCounts()
	lengths := make([]float64, 0, len(edges))
	for e, c := range edges {
		switch {
		case c == 1:
			s.BoundaryEdges++
		case c > 2:
			s.NonManifoldEdges++
		}
		lengths = append(lengths, r3.Norm(r3.Sub(m.Vertices[e.V[0]], m.Vertices[e.V[1]])))
	}
	sort.Float64s(lengths)
	s.EdgeMean, s.EdgeStdDev = stat.MeanStdDev(lengths, nil)
	aspects := make([]float64, len(m.Triangles))
	for i := range m.Triangles {
		aspects[i] = aspectRatio(m.Triangle(i))
		s.AspectMax = math.Max(s.AspectMax, aspects[i])
	}
	s.AspectMean = stat.Mean(aspects, nil)
	s.Components = len(m.Components())
	return s
}

// aspectRatio returns longest edge over shortest altitude normalized to
// one for an equilateral triangle. Degenerate triangles give +Inf.
func aspectRatio(c [3]r3.Vec) float64 {
	var longest float64
	for k := 0; k < 3; k++ {
		longest = math.Max(longest, r3.Norm(r3.Sub(c[(k+1)%3], c[k])))
	}
	area2 := r3.Norm(r3.Cross(r3.Sub(c[1], c[0]), r3.Sub(c[2], c[0])))
	if area2 == 0 {
		return math.Inf(1)
	}
	// shortest altitude is twice the area over the longest edge.
	alt := area2 / longest
	return longest / alt * math.Sqrt(3) / 2
}

func (s Stats) String() string {
	return fmt.Sprintf("%d vertices, %d triangles, %d components, %d boundary edges, %d non-manifold edges, area %.4g, volume %.4g, edge length %.4g±%.4g, aspect mean %.3g max %.3g",
		s.Vertices, s.Triangles, s.Components, s.BoundaryEdges, s.NonManifoldEdges, s.Area, s.Volume, s.EdgeMean, s.EdgeStdDev, s.AspectMean, s.AspectMax)
}
