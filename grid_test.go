package splash

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestNewUniformGrid(t *testing.T) {
	box := r3.Box{Min: r3.Vec{X: -1, Y: 0, Z: 2}, Max: r3.Vec{X: 1, Y: 0.3, Z: 2.5}}
	g, err := NewUniformGrid(box, 0.25)
	require.NoError(t, err)
	assert.Equal(t, V3i{8, 2, 2}, g.Cells)
	assert.Equal(t, box.Min, g.Origin)
	// The last vertex covers the box maximum.
	last := g.Position(g.Cells)
	assert.GreaterOrEqual(t, last.X, box.Max.X-1e-12)
	assert.GreaterOrEqual(t, last.Y, box.Max.Y)
	assert.GreaterOrEqual(t, last.Z, box.Max.Z-1e-12)

	for _, h := range []float64{0, -1} {
		_, err = NewUniformGrid(box, h)
		assert.True(t, errors.Is(err, ErrInvalidConfiguration), "cell size %g", h)
	}
	_, err = NewUniformGrid(r3.Box{Max: r3.Vec{X: 1e300, Y: 1, Z: 1}}, 1e-10)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestGridCellOf(t *testing.T) {
	g := UniformGrid{Origin: r3.Vec{X: 1, Y: 1, Z: 1}, CellSize: 0.5, Cells: V3i{10, 10, 10}}
	for _, test := range []struct {
		p    r3.Vec
		want V3i
	}{
		{r3.Vec{X: 1, Y: 1, Z: 1}, V3i{0, 0, 0}},
		{r3.Vec{X: 1.49, Y: 1.5, Z: 2.1}, V3i{0, 1, 2}},
		{r3.Vec{X: 0.9, Y: 1, Z: 1}, V3i{-1, 0, 0}},
	} {
		assert.Equal(t, test.want, g.CellOf(test.p), "point %v", test.p)
	}
	// Vertex positions map back to their own cell.
	v := V3i{3, 7, 2}
	assert.Equal(t, v, g.CellOf(g.Position(v)))
}

func TestVerticesAround(t *testing.T) {
	g := UniformGrid{CellSize: 1, Cells: V3i{10, 10, 10}}
	b := g.VerticesAround(r3.Vec{X: 5.5, Y: 5.5, Z: 5.5}, 1)
	assert.Equal(t, Box3i{Lo: V3i{4, 4, 4}, Hi: V3i{7, 7, 7}}, b)
	// Clipped at grid bounds.
	b = g.VerticesAround(r3.Vec{X: 0.2, Y: 9.9, Z: 5}, 2)
	assert.Equal(t, 0, b.Lo[0])
	assert.Equal(t, 10, b.Hi[1])
}

func TestEdgeKeyCanonical(t *testing.T) {
	a, b := V3i{1, 2, 3}, V3i{1, 3, 3}
	k1 := NewEdgeKey(a, b)
	k2 := NewEdgeKey(b, a)
	assert.Equal(t, k1, k2)
	assert.Equal(t, EdgeKey{Lo: a, Axis: AxisY}, k1)
	assert.Equal(t, b, k1.Hi())
	vk := VertexKey(a)
	assert.Equal(t, a, vk.Hi())
	assert.NotEqual(t, vk, k1)
	assert.True(t, k1.Less(vk))
	assert.Panics(t, func() { NewEdgeKey(a, V3i{2, 3, 3}) })
}

func TestBox3i(t *testing.T) {
	b := Box3i{Lo: V3i{0, 0, 0}, Hi: V3i{2, 3, 4}}
	assert.Equal(t, 24, b.Count())
	assert.True(t, b.ContainsCell(V3i{1, 2, 3}))
	assert.False(t, b.ContainsCell(V3i{2, 2, 3}))
	assert.True(t, b.ContainsVertex(V3i{2, 3, 4}))
	c := b.Intersect(Box3i{Lo: V3i{1, 1, 1}, Hi: V3i{5, 5, 5}})
	assert.Equal(t, Box3i{Lo: V3i{1, 1, 1}, Hi: V3i{2, 3, 4}}, c)
	assert.True(t, b.Intersect(Box3i{Lo: V3i{3, 0, 0}, Hi: V3i{4, 1, 1}}).Empty())
	assert.True(t, V3i{5, 0, 0}.Less(V3i{0, 1, 0}))
	assert.True(t, V3i{5, 5, 0}.Less(V3i{0, 0, 1}))
}
