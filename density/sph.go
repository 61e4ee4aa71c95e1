package density

import (
	"fmt"
	"math"

	"github.com/soypat/splash"
	"github.com/soypat/splash/internal/parallel"
	"github.com/soypat/splash/kernel"
	"github.com/soypat/splash/neighbor"
	"gonum.org/v1/gonum/spatial/r3"
)

// ParticleDensities returns the SPH density of every particle,
//
//	ρᵢ = Σⱼ mⱼ W(|xᵢ-xⱼ|, (Rᵢ+Rⱼ)/2)
//
// where the sum runs over all particles including i itself in ascending id
// order. supports holds the kernel support radius Rᵢ and masses the mass mᵢ
// of each particle. A non-positive or non-finite density is reported with an
// error wrapping splash.ErrNumericalDegeneracy.
func ParticleDensities(positions []r3.Vec, supports, masses []float64, k kernel.Kernel, idx neighbor.Index, workers int) ([]float64, error) {
	n := len(positions)
	if len(supports) != n || len(masses) != n {
		return nil, fmt.Errorf("%w: %d positions, %d supports, %d masses", splash.ErrInvalidParticleConfiguration, n, len(supports), len(masses))
	}
	maxSupport := 0.0
	for _, r := range supports {
		maxSupport = math.Max(maxSupport, r)
	}
	rho := make([]float64, n)
	err := parallel.ForEach(workers, n, func() func(int) error {
		var nbs []int
		return func(i int) error {
			nbs = idx.NeighborsWithin(positions[i], maxSupport, nbs)
			var sum float64
			for _, j := range nbs {
				r := r3.Norm(r3.Sub(positions[i], positions[j]))
				sum += masses[j] * k.Weight(r, 0.5*(supports[i]+supports[j]))
			}
			if !(sum > 0) || math.IsInf(sum, 0) {
				return fmt.Errorf("%w: particle %d has density %g", splash.ErrNumericalDegeneracy, i, sum)
			}
			rho[i] = sum
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	return rho, nil
}

// Volumes returns mᵢ/ρᵢ for every particle.
func Volumes(masses, densities []float64) []float64 {
	v := make([]float64, len(masses))
	for i := range v {
		v[i] = masses[i] / densities[i]
	}
	return v
}

// Splat adds the contribution Vᵢ W(|v-xᵢ|, Rᵢ) of every particle in ids to the
// grid vertices v of the closed box that lie strictly within Rᵢ of the particle.
// Particles are processed in the order of ids, which callers keep ascending so
// that every vertex accumulates its terms in the same order no matter which
// subset of particles is splatted. Only positive contributions create entries.
func Splat(grid splash.UniformGrid, box splash.Box3i, ids []int, positions []r3.Vec, supports, volumes []float64, k kernel.Kernel, field *Field) error {
	for _, id := range ids {
		x, support := positions[id], supports[id]
		if !(support > 0) || math.IsInf(support, 0) {
			return fmt.Errorf("%w: particle %d has support radius %g", splash.ErrInvalidParticleConfiguration, id, support)
		}
		vb := grid.VerticesAround(x, support).Intersect(box)
		if vb.Hi[0] < vb.Lo[0] || vb.Hi[1] < vb.Lo[1] || vb.Hi[2] < vb.Lo[2] {
			continue
		}
		vol := volumes[id]
		for z := vb.Lo[2]; z <= vb.Hi[2]; z++ {
			for y := vb.Lo[1]; y <= vb.Hi[1]; y++ {
				for xi := vb.Lo[0]; xi <= vb.Hi[0]; xi++ {
					v := splash.V3i{xi, y, z}
					r := r3.Norm(r3.Sub(grid.Position(v), x))
					if !(r < support) {
						continue
					}
					w := vol * k.Weight(r, support)
					if w > 0 {
						if math.IsInf(w, 0) {
							return fmt.Errorf("%w: particle %d contributes %g to vertex %v", splash.ErrNumericalDegeneracy, id, w, v)
						}
						field.Add(v, w)
					} else if math.IsNaN(w) {
						return fmt.Errorf("%w: particle %d contributes NaN to vertex %v", splash.ErrNumericalDegeneracy, id, v)
					}
				}
			}
		}
	}
	return nil
}

// Build splats the particles ids into a new field restricted to the closed vertex box.
func Build(grid splash.UniformGrid, box splash.Box3i, ids []int, positions []r3.Vec, supports, volumes []float64, k kernel.Kernel) (*Field, error) {
	f := NewField(len(ids) * 8)
	if err := Splat(grid, box, ids, positions, supports, volumes, k, f); err != nil {
		return nil, err
	}
	return f, nil
}

// BuildPartial splits ids into chunks that are splatted concurrently into
// separate fields covering the whole box, then summed in chunk order.
func BuildPartial(grid splash.UniformGrid, box splash.Box3i, ids []int, positions []r3.Vec, supports, volumes []float64, k kernel.Kernel, workers int) (*Field, error) {
	if workers < 1 {
		workers = 1
	}
	chunks := parallel.Split1D(len(ids), workers)
	parts := make([]*Field, len(chunks))
	err := parallel.Map(workers, len(chunks), func(c int) (err error) {
		parts[c], err = Build(grid, box, ids[chunks[c][0]:chunks[c][1]], positions, supports, volumes, k)
		return err
	})
	if err != nil {
		return nil, err
	}
	total := parts[0]
	for _, p := range parts[1:] {
		total.Merge(p)
	}
	return total, nil
}
