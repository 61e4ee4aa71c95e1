package surface

import (
	"fmt"
	"math"

	"github.com/soypat/splash"
	"github.com/soypat/splash/internal/parallel"
	"github.com/soypat/splash/kernel"
	"github.com/soypat/splash/neighbor"
	"gonum.org/v1/gonum/spatial/r3"
)

// InterpolateAttributes sets m.Attributes to the particle attributes
// interpolated onto the mesh vertices with the normalized SPH estimate
//
//	A(x) = Σⱼ Vⱼ Aⱼ W(|x-xⱼ|, Rⱼ) / Σⱼ Vⱼ W(|x-xⱼ|, Rⱼ)
//
// where Vⱼ = mⱼ/ρⱼ. densities holds the density of each particle as returned
// in Reconstruction.Densities; particles with zero density are skipped.
// Vertices no particle reaches get zero values.
func InterpolateAttributes(m *splash.Mesh, p splash.Particles, densities []float64, cfg splash.Config) error {
	if len(densities) != p.Len() {
		return fmt.Errorf("%w: %d densities for %d particles", splash.ErrInvalidParticleConfiguration, len(densities), p.Len())
	}
	if err := p.Validate(cfg.ParticleRadius); err != nil {
		return err
	}
	k, err := kernel.ByName(cfg.Kernel)
	if err != nil {
		return fmt.Errorf("%w: %v", splash.ErrInvalidConfiguration, err)
	}
	attrs := make([]splash.Attribute, len(p.Attributes))
	for a, pa := range p.Attributes {
		attrs[a].Name = pa.Name
		if pa.Vectors != nil {
			attrs[a].Vectors = make([]r3.Vec, len(m.Vertices))
		} else {
			attrs[a].Scalars = make([]float64, len(m.Vertices))
		}
	}
	if len(attrs) == 0 || len(m.Vertices) == 0 {
		m.Attributes = attrs
		return nil
	}
	supports := make([]float64, p.Len())
	volumes := make([]float64, p.Len())
	var maxSupport float64
	for i := range supports {
		r := p.Radius(i, cfg.ParticleRadius)
		supports[i] = cfg.Support(r)
		if densities[i] > 0 {
			volumes[i] = cfg.Mass(r) / densities[i]
		}
		maxSupport = math.Max(maxSupport, supports[i])
	}
	idx := neighbor.NewKDTree(p.Positions)
	parallel.ForEach(cfg.WorkerCount(), len(m.Vertices), func() func(int) error {
		var nbs []int
		return func(v int) error {
			x := m.Vertices[v]
			nbs = idx.NeighborsWithin(x, maxSupport, nbs)
			var norm float64
			for _, j := range nbs {
				w := volumes[j] * k.Weight(r3.Norm(r3.Sub(x, p.Positions[j])), supports[j])
				if w <= 0 {
					continue
				}
				norm += w
				for a, pa := range p.Attributes {
					if pa.Vectors != nil {
						attrs[a].Vectors[v] = r3.Add(attrs[a].Vectors[v], r3.Scale(w, pa.Vectors[j]))
					} else {
						attrs[a].Scalars[v] += w * pa.Scalars[j]
					}
				}
			}
			if norm == 0 {
				return nil
			}
			for a := range attrs {
				if attrs[a].Vectors != nil {
					attrs[a].Vectors[v] = r3.Scale(1/norm, attrs[a].Vectors[v])
				} else {
					attrs[a].Scalars[v] /= norm
				}
			}
			return nil
		}
	})
	m.Attributes = attrs
	return nil
}
