package density

import (
	"math"
	"math/rand"
	"testing"

	"github.com/soypat/splash"
	"github.com/soypat/splash/kernel"
	"github.com/soypat/splash/neighbor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

type testSetup struct {
	grid      splash.UniformGrid
	positions []r3.Vec
	supports  []float64
	masses    []float64
	volumes   []float64
}

func newSetup(t testing.TB, n int, seed int64) testSetup {
	rng := rand.New(rand.NewSource(seed))
	s := testSetup{
		positions: make([]r3.Vec, n),
		supports:  make([]float64, n),
		masses:    make([]float64, n),
	}
	cfg := splash.DefaultConfig(0.05, 0.025)
	for i := range s.positions {
		s.positions[i] = r3.Vec{X: rng.Float64() * 0.5, Y: rng.Float64() * 0.5, Z: rng.Float64() * 0.5}
		r := cfg.ParticleRadius * (0.8 + 0.4*rng.Float64())
		s.supports[i] = cfg.Support(r)
		s.masses[i] = cfg.Mass(r)
	}
	grid, err := splash.NewUniformGrid(r3.Box{Min: r3.Vec{X: -0.2, Y: -0.2, Z: -0.2}, Max: r3.Vec{X: 0.7, Y: 0.7, Z: 0.7}}, cfg.CellSize)
	require.NoError(t, err)
	s.grid = grid
	rho, err := ParticleDensities(s.positions, s.supports, s.masses, kernel.CubicSpline{}, neighbor.NewGrid(s.positions, 0.1), 4)
	require.NoError(t, err)
	s.volumes = Volumes(s.masses, rho)
	return s
}

func allIDs(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}
	return ids
}

func TestParticleDensitiesSingle(t *testing.T) {
	pos := []r3.Vec{{X: 1, Y: 2, Z: 3}}
	k := kernel.CubicSpline{}
	rho, err := ParticleDensities(pos, []float64{0.4}, []float64{2}, k, neighbor.NewKDTree(pos), 1)
	require.NoError(t, err)
	assert.InDelta(t, 2*k.Weight(0, 0.4), rho[0], 1e-12)
	// A lone particle has unit field value at its own position.
	vol := Volumes([]float64{2}, rho)
	assert.InDelta(t, 1, vol[0]*k.Weight(0, 0.4), 1e-12)
}

func TestParticleDensitiesIndependentOfIndex(t *testing.T) {
	s := newSetup(t, 300, 1)
	k := kernel.CubicSpline{}
	a, err := ParticleDensities(s.positions, s.supports, s.masses, k, neighbor.NewKDTree(s.positions), 3)
	require.NoError(t, err)
	b, err := ParticleDensities(s.positions, s.supports, s.masses, k, neighbor.NewGrid(s.positions, 0.03), 1)
	require.NoError(t, err)
	// Same neighbor order gives bit identical sums.
	assert.Equal(t, a, b)
}

func TestParticleDensitiesDegenerate(t *testing.T) {
	pos := []r3.Vec{{}, {X: 0.01}}
	cfg := splash.DefaultConfig(0.01, 0.01)
	cfg.RestDensity = math.SmallestNonzeroFloat64
	m := cfg.Mass(0.01)
	_, err := ParticleDensities(pos, []float64{0.04, 0.04}, []float64{m, m}, kernel.CubicSpline{}, neighbor.NewKDTree(pos), 2)
	assert.ErrorIs(t, err, splash.ErrNumericalDegeneracy)

	_, err = ParticleDensities(pos, []float64{0.04}, []float64{m, m}, kernel.CubicSpline{}, neighbor.NewKDTree(pos), 2)
	assert.ErrorIs(t, err, splash.ErrInvalidParticleConfiguration)
}

func TestSplatNonNegativeAndSupported(t *testing.T) {
	s := newSetup(t, 200, 2)
	f, err := Build(s.grid, s.grid.VertexBox(), allIDs(len(s.positions)), s.positions, s.supports, s.volumes, kernel.WendlandC2{})
	require.NoError(t, err)
	require.NoError(t, f.Check())
	require.NotZero(t, f.Len())
	f.Range(func(v splash.V3i, d float64) bool {
		assert.Greater(t, d, 0.0)
		// Every entry lies strictly inside the support of some particle.
		p := s.grid.Position(v)
		found := false
		for i, x := range s.positions {
			if r3.Norm(r3.Sub(p, x)) < s.supports[i] {
				found = true
				break
			}
		}
		assert.True(t, found, "vertex %v has no supporting particle", v)
		return true
	})
}

func TestSplatSubsetsAreBitIdentical(t *testing.T) {
	s := newSetup(t, 250, 3)
	k := kernel.CubicSpline{}
	full, err := Build(s.grid, s.grid.VertexBox(), allIDs(len(s.positions)), s.positions, s.supports, s.volumes, k)
	require.NoError(t, err)

	// Restricting to a sub box while splatting only the particles near it
	// reproduces the full field exactly on that box.
	box := splash.Box3i{Lo: splash.V3i{3, 4, 5}, Hi: splash.V3i{9, 10, 8}}
	lo := s.grid.Position(box.Lo)
	hi := s.grid.Position(box.Hi)
	var ids []int
	for i, x := range s.positions {
		m := s.supports[i]
		if x.X > lo.X-m && x.X < hi.X+m && x.Y > lo.Y-m && x.Y < hi.Y+m && x.Z > lo.Z-m && x.Z < hi.Z+m {
			ids = append(ids, i)
		}
	}
	part, err := Build(s.grid, box, ids, s.positions, s.supports, s.volumes, k)
	require.NoError(t, err)
	want := full.Restrict(box)
	require.Equal(t, want.Len(), part.Len())
	for _, v := range want.Keys() {
		got, ok := part.Get(v)
		require.True(t, ok)
		if got != want.At(v) {
			t.Fatalf("vertex %v: got %v want %v", v, got, want.At(v))
		}
	}
}

func TestBuildPartialMatchesFull(t *testing.T) {
	s := newSetup(t, 300, 4)
	k := kernel.CubicSpline{}
	ids := allIDs(len(s.positions))
	full, err := Build(s.grid, s.grid.VertexBox(), ids, s.positions, s.supports, s.volumes, k)
	require.NoError(t, err)
	merged, err := BuildPartial(s.grid, s.grid.VertexBox(), ids, s.positions, s.supports, s.volumes, k, 5)
	require.NoError(t, err)
	require.Equal(t, full.Len(), merged.Len())
	for _, v := range full.Keys() {
		assert.InEpsilon(t, full.At(v), merged.At(v), 1e-12)
	}
}

func TestSplatRejectsBadSupport(t *testing.T) {
	grid := splash.UniformGrid{CellSize: 0.1, Cells: splash.V3i{4, 4, 4}}
	pos := []r3.Vec{{X: 0.2, Y: 0.2, Z: 0.2}}
	for _, sup := range []float64{0, -1, math.Inf(1)} {
		_, err := Build(grid, grid.VertexBox(), []int{0}, pos, []float64{sup}, []float64{1}, kernel.CubicSpline{})
		assert.ErrorIs(t, err, splash.ErrInvalidParticleConfiguration)
	}
}

func TestFieldOps(t *testing.T) {
	a := NewField(0)
	a.Add(splash.V3i{1, 0, 0}, 1)
	a.Add(splash.V3i{0, 0, 1}, 2)
	a.Add(splash.V3i{1, 0, 0}, 0.5)
	b := NewField(0)
	b.Add(splash.V3i{1, 0, 0}, 0.25)
	b.Add(splash.V3i{0, 1, 0}, 4)
	a.Merge(b)
	assert.Equal(t, 3, a.Len())
	assert.Equal(t, 1.75, a.At(splash.V3i{1, 0, 0}))
	assert.Equal(t, []splash.V3i{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, a.Keys())
	assert.Equal(t, []float64{1.75, 4, 2}, a.Values())
	assert.Equal(t, 4.0, a.Max())
	_, ok := a.Get(splash.V3i{5, 5, 5})
	assert.False(t, ok)
	r := a.Restrict(splash.Box3i{Hi: splash.V3i{1, 1, 0}})
	assert.Equal(t, 2, r.Len())
	assert.NoError(t, a.Check())
	a.Add(splash.V3i{2, 2, 2}, math.NaN())
	assert.ErrorIs(t, a.Check(), splash.ErrNumericalDegeneracy)
}
