package splash

import (
	"fmt"
	"math"

	"github.com/soypat/splash/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Attribute is a named per-item payload. Exactly one of Scalars or Vectors
// is set and its length matches the number of items it annotates.
type Attribute struct {
	Name    string
	Scalars []float64
	Vectors []r3.Vec
}

// Len returns the number of values held by the attribute.
func (a Attribute) Len() int {
	if a.Vectors != nil {
		return len(a.Vectors)
	}
	return len(a.Scalars)
}

// Particles is a borrowed, read-only view of the particle samples for one
// reconstruction call.
type Particles struct {
	Positions []r3.Vec
	// Radii holds per particle radii. If nil every particle
	// uses the radius given by the reconstruction configuration.
	Radii      []float64
	Attributes []Attribute
}

// Len returns the number of particles.
func (p Particles) Len() int { return len(p.Positions) }

// Radius returns the radius of particle i, or uniform when Radii is nil.
func (p Particles) Radius(i int, uniform float64) float64 {
	if p.Radii == nil {
		return uniform
	}
	return p.Radii[i]
}

// Bounds returns the axis aligned box enclosing all particle positions.
func (p Particles) Bounds() r3.Box {
	return r3.Box(d3.Bounds(p.Positions))
}

// Validate checks the particle data for non-finite coordinates, non-positive
// radii and mismatched attribute lengths. uniform is the radius used when
// p.Radii is nil.
func (p Particles) Validate(uniform float64) error {
	n := len(p.Positions)
	if p.Radii != nil && len(p.Radii) != n {
		return fmt.Errorf("%w: got %d radii for %d particles", ErrInvalidParticleConfiguration, len(p.Radii), n)
	}
	for i, x := range p.Positions {
		if !d3.IsFinite(x) {
			return fmt.Errorf("%w: particle %d has non-finite position %v", ErrInvalidParticleConfiguration, i, x)
		}
		r := p.Radius(i, uniform)
		if !(r > 0) || math.IsInf(r, 0) {
			return fmt.Errorf("%w: particle %d has radius %g", ErrInvalidParticleConfiguration, i, r)
		}
	}
	for _, a := range p.Attributes {
		if a.Len() != n {
			return fmt.Errorf("%w: attribute %q has %d values for %d particles", ErrInvalidParticleConfiguration, a.Name, a.Len(), n)
		}
	}
	return nil
}

// Subset returns the particles with the given ids, in the order given.
// Attributes are copied along.
func (p Particles) Subset(ids []int) Particles {
	sub := Particles{Positions: make([]r3.Vec, len(ids))}
	for i, id := range ids {
		sub.Positions[i] = p.Positions[id]
	}
	if p.Radii != nil {
		sub.Radii = make([]float64, len(ids))
		for i, id := range ids {
			sub.Radii[i] = p.Radii[id]
		}
	}
	for _, a := range p.Attributes {
		na := Attribute{Name: a.Name}
		if a.Vectors != nil {
			na.Vectors = make([]r3.Vec, len(ids))
			for i, id := range ids {
				na.Vectors[i] = a.Vectors[id]
			}
		} else {
			na.Scalars = make([]float64, len(ids))
			for i, id := range ids {
				na.Scalars[i] = a.Scalars[id]
			}
		}
		sub.Attributes = append(sub.Attributes, na)
	}
	return sub
}
