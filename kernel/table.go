package kernel

import "math"

// Table is a Kernel that looks up precomputed weights of another kernel
// for one fixed support radius. Samples are spaced evenly in squared
// distance so the hot path needs no square root.
type Table struct {
	k       Kernel
	support float64
	// r2Step is the squared distance between samples.
	r2Step  float64
	invStep float64
	samples []float64
}

var _ Kernel = (*Table)(nil)

// NewTable tabulates k for support with n intervals. n below 2 is raised to 2.
func NewTable(k Kernel, support float64, n int) *Table {
	if n < 2 {
		n = 2
	}
	t := &Table{
		k:       k,
		support: support,
		r2Step:  support * support / float64(n),
		samples: make([]float64, n+1),
	}
	t.invStep = 1 / t.r2Step
	for i := range t.samples {
		t.samples[i] = k.Weight(math.Sqrt(float64(i)*t.r2Step), support)
	}
	// The last sample sits on the support radius.
	t.samples[n] = 0
	return t
}

// Support returns the support radius the table was built for.
func (t *Table) Support() float64 { return t.support }

// Weight2 returns the interpolated weight at squared distance r2.
func (t *Table) Weight2(r2 float64) float64 {
	x := r2 * t.invStep
	if !(x < float64(len(t.samples)-1)) || x < 0 {
		return 0
	}
	i := int(x)
	frac := x - float64(i)
	return t.samples[i] + frac*(t.samples[i+1]-t.samples[i])
}

// Weight implements the Kernel interface. Supports other than the tabulated one
// fall back to direct evaluation.
func (t *Table) Weight(r, support float64) float64 {
	if support != t.support {
		return t.k.Weight(r, support)
	}
	return t.Weight2(r * r)
}
