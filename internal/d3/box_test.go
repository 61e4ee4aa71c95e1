package d3

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestBounds(t *testing.T) {
	pts := []r3.Vec{{X: 1, Y: -2, Z: 3}, {X: -1, Y: 5, Z: 0}, {X: 0, Y: 0, Z: 7}}
	b := Bounds(pts)
	want := Box{Min: r3.Vec{X: -1, Y: -2, Z: 0}, Max: r3.Vec{X: 1, Y: 5, Z: 7}}
	if !b.Equals(want, 0) {
		t.Errorf("got %v, want %v", b, want)
	}
	for _, p := range pts {
		if !b.Contains(p) {
			t.Errorf("box %v does not contain %v", b, p)
		}
	}
	if !Bounds(nil).Empty() {
		t.Error("bounds of empty set should be empty")
	}
}

func TestBoxDist2(t *testing.T) {
	b := Box{Max: Elem(1)}
	for _, test := range []struct {
		p    r3.Vec
		want float64
	}{
		{r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, 0},
		{r3.Vec{X: 2, Y: 0.5, Z: 0.5}, 1},
		{r3.Vec{X: -1, Y: -1, Z: 0.5}, 2},
		{r3.Vec{X: 2, Y: 2, Z: 2}, 3},
	} {
		got := b.Dist2(test.p)
		if math.Abs(got-test.want) > 1e-12 {
			t.Errorf("Dist2(%v) = %g, want %g", test.p, got, test.want)
		}
	}
}

func TestBoxGrow(t *testing.T) {
	a := Box{Max: Elem(2)}
	g := a.Grow(0.5)
	if !g.Equals(Box{Min: Elem(-0.5), Max: Elem(2.5)}, 1e-15) {
		t.Errorf("unexpected grown box %v", g)
	}
	if !a.Grow(-1.5).Empty() {
		t.Error("box shrunk past its size should be empty")
	}
}
