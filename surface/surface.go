// Package surface reconstructs triangle meshes from SPH particle data.
//
// A reconstruction runs in stages separated by join points: particle
// filtering and spatial indexing, per particle densities, domain
// decomposition, per subdomain density fields and extraction, and the final
// stitch. Within a stage work is spread over a fixed pool of workers.
package surface

import (
	"fmt"
	"math"
	"time"

	"github.com/soypat/splash"
	"github.com/soypat/splash/decomp"
	"github.com/soypat/splash/density"
	"github.com/soypat/splash/internal/d3"
	"github.com/soypat/splash/internal/parallel"
	"github.com/soypat/splash/kernel"
	"github.com/soypat/splash/neighbor"
	"github.com/soypat/splash/render"
	"gonum.org/v1/gonum/spatial/r3"
)

// kernelTableSize is the number of intervals of tabulated kernels.
const kernelTableSize = 1 << 12

// Timings holds the wall time spent in each stage of a reconstruction.
type Timings struct {
	Index         time.Duration
	Densities     time.Duration
	Decomposition time.Duration
	// Field includes extraction, which runs in the same task
	// as the field build of each subdomain.
	Field  time.Duration
	Stitch time.Duration
	Total  time.Duration
}

// Reconstruction is the detailed result of a reconstruction.
type Reconstruction struct {
	Mesh *splash.Mesh
	// Keys identifies every mesh vertex by the grid edge it lies on.
	Keys []splash.EdgeKey
	Grid splash.UniformGrid
	// Field is the global density field. It is only set
	// when Config.KeepDensityField is true.
	Field *density.Field
	// Subdomains lists the non-empty subdomains. Their particle
	// ids refer to the input particles.
	Subdomains []decomp.Subdomain
	// Used lists the ids of the input particles that survived domain and
	// splash filtering, ascending.
	Used []int
	// Densities holds the SPH density of every input particle.
	// Filtered particles have density zero.
	Densities []float64
	Timings   Timings
}

// Reconstruct returns the surface mesh of the particles.
func Reconstruct(p splash.Particles, cfg splash.Config) (*splash.Mesh, error) {
	rec, err := ReconstructDetailed(p, cfg)
	if err != nil {
		return nil, err
	}
	return rec.Mesh, nil
}

// ReconstructDetailed reconstructs the surface of the particles and returns
// the intermediate products along with the mesh. Configuration errors are
// reported before any work is done. On error no partial result is returned.
func ReconstructDetailed(p splash.Particles, cfg splash.Config) (*Reconstruction, error) {
	start := time.Now()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if p.Radii == nil && !(cfg.ParticleRadius > 0) {
		return nil, splash.ErrMsg(splash.ErrInvalidConfiguration, "particle radius required when particles carry no radii")
	}
	if err := p.Validate(cfg.ParticleRadius); err != nil {
		return nil, err
	}
	k, err := kernel.ByName(cfg.Kernel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", splash.ErrInvalidConfiguration, err)
	}
	rec := &Reconstruction{Mesh: &splash.Mesh{}, Densities: make([]float64, p.Len())}
	if p.Len() == 0 {
		return rec, nil
	}
	s, err := newState(p, cfg, k)
	if err != nil {
		return nil, err
	}
	workers := cfg.WorkerCount()

	// Filtering and indexing.
	tstage := time.Now()
	s.filterDomain(cfg.Domain)
	if r := cfg.SplashDetectionRadius; r > 0 && len(s.ids) > 0 {
		before := len(s.ids)
		s.filterSplashes(r, workers)
		cfg.Logf("splash detection removed %d of %d particles", before-len(s.ids), before)
	}
	rec.Used = s.ids
	if len(s.ids) == 0 {
		cfg.Logf("no particles left after filtering")
		rec.Timings.Total = time.Since(start)
		return rec, nil
	}
	idx := s.index()
	rec.Timings.Index = time.Since(tstage)
	cfg.Logf("indexed %d particles in %s", len(s.ids), rec.Timings.Index)

	// Particle densities.
	tstage = time.Now()
	rho, err := density.ParticleDensities(s.positions, s.supports, s.masses, s.kernel, idx, workers)
	if err != nil {
		return nil, err
	}
	for i, id := range s.ids {
		rec.Densities[id] = rho[i]
	}
	s.volumes = density.Volumes(s.masses, rho)
	rec.Timings.Densities = time.Since(tstage)
	cfg.Logf("computed particle densities in %s", rec.Timings.Densities)

	rec.Grid, err = s.grid(cfg)
	if err != nil {
		return nil, err
	}
	cfg.Logf("background grid of %v cells with cell size %g", rec.Grid.Cells, rec.Grid.CellSize)

	var lm *render.LocalMesh
	if cfg.Sequential {
		lm, err = s.sequential(rec, cfg, workers)
	} else {
		lm, err = s.decomposed(rec, cfg, idx, workers)
	}
	if err != nil {
		return nil, err
	}
	rec.Mesh = lm.Mesh()
	rec.Keys = lm.Keys
	rec.Timings.Total = time.Since(start)
	cfg.Logf("surface has %d vertices and %d triangles, took %s", len(rec.Mesh.Vertices), len(rec.Mesh.Triangles), rec.Timings.Total)
	return rec, nil
}

// state holds the per particle arrays of the particles in use.
// Local particle i is input particle ids[i].
type state struct {
	ids       []int
	positions []r3.Vec
	supports  []float64
	masses    []float64
	volumes   []float64
	kernel    kernel.Kernel
	// uniform is true when every particle has the same radius.
	uniform    bool
	maxSupport float64
}

func newState(p splash.Particles, cfg splash.Config, k kernel.Kernel) (*state, error) {
	n := p.Len()
	s := &state{
		ids:       make([]int, n),
		positions: p.Positions,
		supports:  make([]float64, n),
		masses:    make([]float64, n),
		uniform:   p.Radii == nil,
		kernel:    k,
	}
	for i := range s.ids {
		r := p.Radius(i, cfg.ParticleRadius)
		s.ids[i] = i
		s.supports[i] = cfg.Support(r)
		s.masses[i] = cfg.Mass(r)
		if math.IsInf(s.supports[i], 0) || !(s.supports[i] > 0) {
			return nil, splash.ErrMsg(splash.ErrInvalidConfiguration, fmt.Sprintf("support radius %g of particle %d", s.supports[i], i))
		}
		if math.IsInf(s.masses[i], 0) || !(s.masses[i] > 0) {
			return nil, fmt.Errorf("%w: particle %d has mass %g", splash.ErrNumericalDegeneracy, i, s.masses[i])
		}
		s.maxSupport = math.Max(s.maxSupport, s.supports[i])
	}
	if s.uniform {
		s.kernel = kernel.NewTable(k, s.supports[0], kernelTableSize)
	}
	return s, nil
}

// keep restricts the state to the local particles listed in local, ascending.
func (s *state) keep(local []int) {
	if len(local) == len(s.ids) {
		return
	}
	ids := make([]int, len(local))
	positions := make([]r3.Vec, len(local))
	supports := make([]float64, len(local))
	masses := make([]float64, len(local))
	for i, l := range local {
		ids[i] = s.ids[l]
		positions[i] = s.positions[l]
		supports[i] = s.supports[l]
		masses[i] = s.masses[l]
	}
	s.ids, s.positions, s.supports, s.masses = ids, positions, supports, masses
}

func (s *state) filterDomain(domain *r3.Box) {
	if domain == nil {
		return
	}
	box := d3.Box(*domain)
	var local []int
	for i, p := range s.positions {
		if box.Contains(p) {
			local = append(local, i)
		}
	}
	s.keep(local)
}

// filterSplashes drops particles without any neighbour within radius.
func (s *state) filterSplashes(radius float64, workers int) {
	lists := neighbor.Lists(neighbor.NewGrid(s.positions, radius), s.positions, radius, workers)
	var local []int
	for i, l := range lists {
		if len(l) > 0 {
			local = append(local, i)
		}
	}
	s.keep(local)
}

// index returns the spatial index of the particles in use. Uniform radii
// suit the grid hash bucketed at the support radius. Mixed radii use a kd-tree.
func (s *state) index() neighbor.Index {
	if s.uniform {
		return neighbor.NewGrid(s.positions, s.maxSupport)
	}
	return neighbor.NewKDTree(s.positions)
}

// grid returns the background grid. Without a configured domain it covers the
// particles grown by the largest support radius and one cell, so every
// vertex touched by a particle has an untouched vertex beyond it.
func (s *state) grid(cfg splash.Config) (splash.UniformGrid, error) {
	if cfg.Domain != nil {
		return splash.NewUniformGrid(*cfg.Domain, cfg.CellSize)
	}
	bounds := d3.Bounds(s.positions).Grow(s.maxSupport + cfg.CellSize)
	return splash.NewUniformGrid(r3.Box(bounds), cfg.CellSize)
}

func (s *state) allLocal() []int {
	ids := make([]int, len(s.positions))
	for i := range ids {
		ids[i] = i
	}
	return ids
}

// sequential builds one global field from particle chunks and extracts it
// in a single pass.
func (s *state) sequential(rec *Reconstruction, cfg splash.Config, workers int) (*render.LocalMesh, error) {
	grid := rec.Grid
	tstage := time.Now()
	field, err := density.BuildPartial(grid, grid.VertexBox(), s.allLocal(), s.positions, s.supports, s.volumes, s.kernel, workers)
	if err == nil {
		err = field.Check()
	}
	if err != nil {
		return nil, err
	}
	lm := render.ExtractCells(grid, field, cfg.IsoValue, grid.CellBox())
	rec.Timings.Field = time.Since(tstage)
	rec.Subdomains = []decomp.Subdomain{{Cells: grid.CellBox(), Particles: append([]int(nil), s.ids...), Owned: len(s.ids)}}
	if cfg.KeepDensityField {
		rec.Field = field
	}
	cfg.Logf("built field of %d vertices peaking at %.3g and extracted surface in %s", field.Len(), field.Max(), rec.Timings.Field)
	return lm, nil
}

// decomposed builds the field and extracts the surface of every subdomain
// independently, then stitches the pieces.
func (s *state) decomposed(rec *Reconstruction, cfg splash.Config, idx neighbor.Index, workers int) (*render.LocalMesh, error) {
	grid := rec.Grid
	tstage := time.Now()
	var subs []decomp.Subdomain
	if cfg.MaxSubdomainParticles > 0 {
		subs = decomp.Octree(grid.CellBox(), grid, s.positions, cfg.MaxSubdomainParticles, 2)
	} else {
		block := cfg.BlockCells
		if block == 0 {
			block = decomp.AutoBlockCells(grid.Cells, workers)
		}
		subs = decomp.Blocks(grid, block, s.positions, s.supports)
	}
	decomp.AssignParticles(subs, grid, s.positions, s.supports, idx, workers)
	// Subdomains no particle reaches have an empty field.
	busy := subs[:0]
	for _, sd := range subs {
		if len(sd.Particles) > 0 {
			busy = append(busy, sd)
		}
	}
	subs = busy
	rec.Subdomains = subs
	rec.Timings.Decomposition = time.Since(tstage)
	cfg.Logf("decomposed grid into %d non-empty subdomains in %s", len(subs), rec.Timings.Decomposition)

	tstage = time.Now()
	parts := make([]*render.LocalMesh, len(subs))
	var fields []*density.Field
	if cfg.KeepDensityField {
		fields = make([]*density.Field, len(subs))
	}
	err := parallel.Map(workers, len(subs), func(i int) error {
		sd := &subs[i]
		field, err := density.Build(grid, sd.Vertices(), sd.Particles, s.positions, s.supports, s.volumes, s.kernel)
		if err != nil {
			return fmt.Errorf("subdomain %v: %w", sd.Cells, err)
		}
		if err := field.Check(); err != nil {
			return fmt.Errorf("subdomain %v: %w", sd.Cells, err)
		}
		parts[i] = render.ExtractCells(grid, field, cfg.IsoValue, sd.Cells)
		if fields != nil {
			fields[i] = field
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	rec.Timings.Field = time.Since(tstage)
	cfg.Logf("built fields and extracted %d subdomains in %s", len(subs), rec.Timings.Field)

	tstage = time.Now()
	lm := decomp.Stitch(parts)
	if fields != nil {
		rec.Field = decomp.MergeFields(grid, subs, fields)
	}
	rec.Timings.Stitch = time.Since(tstage)
	for i := range subs {
		for j, l := range subs[i].Particles {
			subs[i].Particles[j] = s.ids[l]
		}
	}
	cfg.Logf("stitched %d subdomain meshes in %s", len(parts), rec.Timings.Stitch)
	return lm, nil
}
