package surface

import (
	"bytes"
	"errors"
	"log"
	"math"
	"math/rand"
	"testing"

	"github.com/soypat/splash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// fluidBlock returns particles of radius r on a jittered lattice of n³
// particles with spacing 2r.
func fluidBlock(n int, r float64, origin r3.Vec, seed int64) []r3.Vec {
	rng := rand.New(rand.NewSource(seed))
	pos := make([]r3.Vec, 0, n*n*n)
	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				jitter := r3.Vec{X: rng.Float64() - 0.5, Y: rng.Float64() - 0.5, Z: rng.Float64() - 0.5}
				p := r3.Add(origin, r3.Scale(2*r, r3.Vec{X: float64(x), Y: float64(y), Z: float64(z)}))
				pos = append(pos, r3.Add(p, r3.Scale(0.2*r, jitter)))
			}
		}
	}
	return pos
}

func blockConfig() splash.Config {
	cfg := splash.DefaultConfig(0.05, 0.05)
	cfg.IsoValue = 0.6
	cfg.Workers = 4
	return cfg
}

// keyedTriangles expresses the triangles of a reconstruction through vertex keys.
func keyedTriangles(rec *Reconstruction) map[[3]splash.EdgeKey]int {
	out := make(map[[3]splash.EdgeKey]int)
	for _, t := range rec.Mesh.Triangles {
		out[[3]splash.EdgeKey{rec.Keys[t[0]], rec.Keys[t[1]], rec.Keys[t[2]]}]++
	}
	return out
}

func keyedVertices(rec *Reconstruction) map[splash.EdgeKey]r3.Vec {
	out := make(map[splash.EdgeKey]r3.Vec)
	for i, k := range rec.Keys {
		out[k] = rec.Mesh.Vertices[i]
	}
	return out
}

func TestReconstructEmpty(t *testing.T) {
	m, err := Reconstruct(splash.Particles{}, splash.DefaultConfig(0.1, 0.1))
	require.NoError(t, err)
	assert.Empty(t, m.Vertices)
	assert.Empty(t, m.Triangles)
}

func TestReconstructErrors(t *testing.T) {
	good := splash.Particles{Positions: []r3.Vec{{}, {X: 0.1}}}
	for _, test := range []struct {
		name string
		p    splash.Particles
		cfg  func(*splash.Config)
		want error
	}{
		{"zero cell size", good, func(c *splash.Config) { c.CellSize = 0 }, splash.ErrInvalidConfiguration},
		{"negative cell size", good, func(c *splash.Config) { c.CellSize = -1 }, splash.ErrInvalidConfiguration},
		{"zero support", good, func(c *splash.Config) { c.SupportMultiplier = 0 }, splash.ErrInvalidConfiguration},
		{"negative iso", good, func(c *splash.Config) { c.IsoValue = -0.1 }, splash.ErrInvalidConfiguration},
		{"nan iso", good, func(c *splash.Config) { c.IsoValue = math.NaN() }, splash.ErrInvalidConfiguration},
		{"unknown kernel", good, func(c *splash.Config) { c.Kernel = "gaussian" }, splash.ErrInvalidConfiguration},
		{"no radius", good, func(c *splash.Config) { c.ParticleRadius = 0 }, splash.ErrInvalidConfiguration},
		{"grid too fine", good, func(c *splash.Config) { c.CellSize = 1e-12 }, splash.ErrInvalidConfiguration},
		{"support overflow", good, func(c *splash.Config) { c.SupportMultiplier, c.ParticleRadius = math.MaxFloat64, 10 }, splash.ErrInvalidConfiguration},
		{"config before particles", splash.Particles{Positions: []r3.Vec{{X: math.NaN()}}}, func(c *splash.Config) { c.CellSize = 0 }, splash.ErrInvalidConfiguration},
		{"nan position", splash.Particles{Positions: []r3.Vec{{X: math.NaN()}}}, func(*splash.Config) {}, splash.ErrInvalidParticleConfiguration},
		{"negative radius", splash.Particles{Positions: []r3.Vec{{}}, Radii: []float64{-1}}, func(*splash.Config) {}, splash.ErrInvalidParticleConfiguration},
		{"zero radius", splash.Particles{Positions: []r3.Vec{{}}, Radii: []float64{0}}, func(*splash.Config) {}, splash.ErrInvalidParticleConfiguration},
		{"vanishing mass", good, func(c *splash.Config) { c.RestDensity = math.SmallestNonzeroFloat64 }, splash.ErrNumericalDegeneracy},
	} {
		t.Run(test.name, func(t *testing.T) {
			cfg := splash.DefaultConfig(0.05, 0.05)
			test.cfg(&cfg)
			m, err := Reconstruct(test.p, cfg)
			assert.Nil(t, m)
			assert.True(t, errors.Is(err, test.want), "got %v, want %v", err, test.want)
		})
	}
}

func TestSingleParticleBlob(t *testing.T) {
	center := r3.Vec{X: 0.3, Y: -0.2, Z: 1.1}
	for _, sequential := range []bool{false, true} {
		cfg := splash.DefaultConfig(0.02, 0.1)
		cfg.IsoValue = 0.5
		cfg.Sequential = sequential
		m, err := Reconstruct(splash.Particles{Positions: []r3.Vec{center}}, cfg)
		require.NoError(t, err)
		require.False(t, m.Empty())
		assert.False(t, m.Degenerate())
		assert.True(t, m.IsClosed())
		assert.Len(t, m.Components(), 1)
		assert.True(t, m.Contains(center))
		assert.Greater(t, m.Volume(), 0.0)
		support := cfg.Support(cfg.ParticleRadius)
		for _, v := range m.Vertices {
			assert.Less(t, r3.Norm(r3.Sub(v, center)), support)
		}
	}
}

func TestPerParticleRadii(t *testing.T) {
	p := splash.Particles{
		Positions: []r3.Vec{{}, {X: 3}},
		Radii:     []float64{0.1, 0.15},
	}
	cfg := splash.DefaultConfig(0.02, 0)
	cfg.IsoValue = 0.5
	m, err := Reconstruct(p, cfg)
	require.NoError(t, err)
	comps := m.Components()
	require.Len(t, comps, 2)
	var volumes [2]float64
	for _, c := range comps {
		for i, x := range p.Positions {
			if c.Contains(x) {
				volumes[i] = c.Volume()
			}
		}
	}
	// The larger particle gives the larger blob.
	assert.Greater(t, volumes[0], 0.0)
	assert.Greater(t, volumes[1], volumes[0])
}

func TestTwoDistantParticles(t *testing.T) {
	cfg := splash.DefaultConfig(0.02, 0.1)
	cfg.IsoValue = 0.5
	support := cfg.Support(cfg.ParticleRadius)
	pos := []r3.Vec{{X: 1, Y: 1, Z: 1}, {X: 1 + 2.5*support, Y: 1, Z: 1}}
	m, err := Reconstruct(splash.Particles{Positions: pos}, cfg)
	require.NoError(t, err)
	comps := m.Components()
	require.Len(t, comps, 2)
	for _, c := range comps {
		assert.True(t, c.IsClosed())
		inside := 0
		for _, p := range pos {
			if c.Contains(p) {
				inside++
			}
		}
		assert.Equal(t, 1, inside)
	}
}

func TestFarApartParticles(t *testing.T) {
	p := splash.Particles{Positions: []r3.Vec{{}, {X: 1500, Y: 1500, Z: 1500}}}
	cfg := splash.DefaultConfig(0.05, 0.05)
	cfg.IsoValue = 0.5
	cfg.Workers = 4
	rec, err := ReconstructDetailed(p, cfg)
	require.NoError(t, err)
	require.Greater(t, rec.Grid.Cells[0], 30000)
	require.Len(t, rec.Subdomains, 2)
	require.False(t, rec.Mesh.Empty())
	assert.Len(t, rec.Mesh.Components(), 2)

	cfg.Sequential = true
	seq, err := ReconstructDetailed(p, cfg)
	require.NoError(t, err)
	assert.Equal(t, keyedTriangles(seq), keyedTriangles(rec))
	assert.Equal(t, keyedVertices(seq), keyedVertices(rec))
}

func TestDeterminism(t *testing.T) {
	p := splash.Particles{Positions: fluidBlock(7, 0.05, r3.Vec{}, 1)}
	cfg := blockConfig()
	cfg.BlockCells = 4
	a, err := ReconstructDetailed(p, cfg)
	require.NoError(t, err)
	b, err := ReconstructDetailed(p, cfg)
	require.NoError(t, err)
	require.False(t, a.Mesh.Empty())
	assert.Equal(t, a.Mesh.Vertices, b.Mesh.Vertices)
	assert.Equal(t, a.Mesh.Triangles, b.Mesh.Triangles)
	assert.Equal(t, a.Keys, b.Keys)
}

func TestVertexExactness(t *testing.T) {
	p := splash.Particles{Positions: fluidBlock(6, 0.05, r3.Vec{X: -1}, 2)}
	cfg := blockConfig()
	cfg.BlockCells = 3
	rec, err := ReconstructDetailed(p, cfg)
	require.NoError(t, err)
	m := rec.Mesh
	assert.False(t, m.Degenerate())
	require.Len(t, rec.Keys, len(m.Vertices))
	keys := make(map[splash.EdgeKey]bool)
	positions := make(map[r3.Vec]bool)
	for i, v := range m.Vertices {
		require.False(t, keys[rec.Keys[i]], "key %v repeated", rec.Keys[i])
		require.False(t, positions[v], "position %v repeated", v)
		keys[rec.Keys[i]] = true
		positions[v] = true
	}
	// Triangles only reference vertices that exist.
	for _, tri := range m.Triangles {
		for _, v := range tri {
			require.True(t, v >= 0 && v < len(m.Vertices))
		}
	}
}

func TestPartitionInvariance(t *testing.T) {
	p := splash.Particles{Positions: fluidBlock(7, 0.05, r3.Vec{X: 0.5, Y: 0.25}, 3)}
	configs := map[string]func(*splash.Config){
		"single subdomain": func(c *splash.Config) { c.BlockCells = 1 << 20 },
		"small blocks":     func(c *splash.Config) { c.BlockCells = 3 },
		"auto blocks":      func(*splash.Config) {},
		"octree":           func(c *splash.Config) { c.MaxSubdomainParticles = 30 },
		"sequential":       func(c *splash.Config) { c.Sequential, c.Workers = true, 1 },
	}
	var ref *Reconstruction
	for _, name := range []string{"single subdomain", "small blocks", "auto blocks", "octree", "sequential"} {
		cfg := blockConfig()
		configs[name](&cfg)
		rec, err := ReconstructDetailed(p, cfg)
		require.NoError(t, err, name)
		if ref == nil {
			ref = rec
			require.Len(t, rec.Subdomains, 1)
			continue
		}
		assert.Equal(t, keyedTriangles(ref), keyedTriangles(rec), name)
		assert.Equal(t, keyedVertices(ref), keyedVertices(rec), name)
	}
}

func TestDensityField(t *testing.T) {
	p := splash.Particles{Positions: fluidBlock(5, 0.05, r3.Vec{}, 4)}
	cfg := blockConfig()
	cfg.KeepDensityField = true
	cfg.BlockCells = 4
	rec, err := ReconstructDetailed(p, cfg)
	require.NoError(t, err)
	require.NotNil(t, rec.Field)
	assert.NoError(t, rec.Field.Check())
	for _, d := range rec.Field.Values() {
		require.GreaterOrEqual(t, d, 0.0)
	}
	for _, v := range rec.Field.Keys() {
		require.True(t, rec.Grid.VertexBox().ContainsVertex(v))
	}
	for _, rho := range rec.Densities {
		assert.Greater(t, rho, 0.0)
	}

	cfg.Sequential, cfg.Workers = true, 1
	seq, err := ReconstructDetailed(p, cfg)
	require.NoError(t, err)
	assert.Equal(t, seq.Field.Keys(), rec.Field.Keys())
	assert.Equal(t, seq.Field.Values(), rec.Field.Values())

	cfg.KeepDensityField = false
	rec, err = ReconstructDetailed(p, cfg)
	require.NoError(t, err)
	assert.Nil(t, rec.Field)
}

func TestDomainAndSplashFiltering(t *testing.T) {
	cfg := blockConfig()
	block := fluidBlock(5, 0.05, r3.Vec{}, 5)
	stray := r3.Vec{X: 2, Y: 2, Z: 2}
	p := splash.Particles{Positions: append(block, stray)}

	rec, err := ReconstructDetailed(p, cfg)
	require.NoError(t, err)
	withStray := len(rec.Mesh.Components())

	cfg.SplashDetectionRadius = 0.15
	rec, err = ReconstructDetailed(p, cfg)
	require.NoError(t, err)
	assert.Len(t, rec.Used, len(block))
	assert.Zero(t, rec.Densities[len(block)])
	assert.Equal(t, withStray-1, len(rec.Mesh.Components()))

	cfg.SplashDetectionRadius = 0
	cfg.Domain = &r3.Box{Min: r3.Vec{X: 1.5, Y: 1.5, Z: 1.5}, Max: r3.Vec{X: 2.5, Y: 2.5, Z: 2.5}}
	rec, err = ReconstructDetailed(p, cfg)
	require.NoError(t, err)
	assert.Equal(t, []int{len(block)}, rec.Used)
	assert.Len(t, rec.Mesh.Components(), 1)
	assert.True(t, rec.Mesh.Contains(stray))

	cfg.Domain = &r3.Box{Min: r3.Vec{X: 5, Y: 5, Z: 5}, Max: r3.Vec{X: 6, Y: 6, Z: 6}}
	rec, err = ReconstructDetailed(p, cfg)
	require.NoError(t, err)
	assert.True(t, rec.Mesh.Empty())
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := blockConfig()
	cfg.Logger = log.New(&buf, "", 0)
	_, err := Reconstruct(splash.Particles{Positions: fluidBlock(3, 0.05, r3.Vec{}, 6)}, cfg)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "triangles")

	buf.Reset()
	cfg.Sequential = true
	_, err = Reconstruct(splash.Particles{Positions: []r3.Vec{{}}}, cfg)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "peaking at")
}

func TestInterpolateAttributes(t *testing.T) {
	pos := fluidBlock(5, 0.05, r3.Vec{}, 7)
	speed := make([]float64, len(pos))
	vel := make([]r3.Vec, len(pos))
	for i, x := range pos {
		speed[i] = 2.5
		vel[i] = r3.Vec{X: x.X, Y: 1, Z: -1}
	}
	p := splash.Particles{
		Positions: pos,
		Attributes: []splash.Attribute{
			{Name: "speed", Scalars: speed},
			{Name: "velocity", Vectors: vel},
		},
	}
	cfg := blockConfig()
	rec, err := ReconstructDetailed(p, cfg)
	require.NoError(t, err)
	m := rec.Mesh
	require.NoError(t, InterpolateAttributes(m, p, rec.Densities, cfg))
	require.Len(t, m.Attributes, 2)
	b := m.Bounds()
	for i := range m.Vertices {
		assert.InDelta(t, 2.5, m.Attributes[0].Scalars[i], 1e-12)
		v := m.Attributes[1].Vectors[i]
		assert.InDelta(t, 1, v.Y, 1e-12)
		assert.InDelta(t, -1, v.Z, 1e-12)
		// Interpolated X stays within the range of the particle values.
		assert.True(t, v.X >= b.Min.X-0.1 && v.X <= b.Max.X)
	}
	assert.Error(t, InterpolateAttributes(m, p, rec.Densities[1:], cfg))
}
