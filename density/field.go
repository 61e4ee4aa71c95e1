// Package density builds the sparse SPH density field that the surface is
// extracted from.
package density

import (
	"fmt"
	"math"
	"sort"

	"github.com/soypat/splash"
	"golang.org/x/exp/maps"
)

// Field is a sparse scalar field over grid vertices. A vertex without an
// entry has value zero. The zero value is not usable, use NewField.
// A Field is not safe for concurrent mutation.
type Field struct {
	m map[splash.V3i]float64
}

// NewField returns an empty field with room for sizeHint vertices.
func NewField(sizeHint int) *Field {
	return &Field{m: make(map[splash.V3i]float64, sizeHint)}
}

// Get returns the value at vertex v and whether v has an entry.
func (f *Field) Get(v splash.V3i) (float64, bool) {
	d, ok := f.m[v]
	return d, ok
}

// At returns the value at vertex v, zero if absent.
func (f *Field) At(v splash.V3i) float64 { return f.m[v] }

// Add accumulates d into vertex v, creating the entry if needed.
func (f *Field) Add(v splash.V3i, d float64) { f.m[v] += d }

// Len returns the number of vertices with an entry.
func (f *Field) Len() int { return len(f.m) }

// Keys returns the vertices with an entry in grid order.
func (f *Field) Keys() []splash.V3i {
	keys := maps.Keys(f.m)
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// Merge adds every entry of o into f. Entries present in both are summed,
// never overwritten, so partial fields of one region combine into the full one.
func (f *Field) Merge(o *Field) {
	for _, v := range o.Keys() {
		f.m[v] += o.m[v]
	}
}

// Restrict returns a new field with the entries of f inside the closed vertex box.
func (f *Field) Restrict(box splash.Box3i) *Field {
	out := NewField(0)
	for v, d := range f.m {
		if box.ContainsVertex(v) {
			out.m[v] = d
		}
	}
	return out
}

// Range calls fn for every entry in grid order until fn returns false.
func (f *Field) Range(fn func(v splash.V3i, d float64) bool) {
	for _, v := range f.Keys() {
		if !fn(v, f.m[v]) {
			return
		}
	}
}

// Check reports an error wrapping splash.ErrNumericalDegeneracy if any entry is
// NaN, infinite or negative.
func (f *Field) Check() error {
	for _, v := range f.Keys() {
		if d := f.m[v]; math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
			return fmt.Errorf("%w: density %g at grid vertex %v", splash.ErrNumericalDegeneracy, d, v)
		}
	}
	return nil
}

// Max returns the largest value in the field, zero for an empty field.
func (f *Field) Max() float64 {
	var mx float64
	for _, d := range f.m {
		mx = math.Max(mx, d)
	}
	return mx
}

// Values returns the field values in grid order.
func (f *Field) Values() []float64 {
	keys := f.Keys()
	vals := make([]float64, len(keys))
	for i, v := range keys {
		vals[i] = f.m[v]
	}
	return vals
}
