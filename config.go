package splash

import (
	"log"
	"math"
	"runtime"

	"github.com/soypat/splash/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultRestDensity is the rest density used when Config.RestDensity is zero.
const DefaultRestDensity = 1000.0

// Config holds the parameters of one reconstruction call.
type Config struct {
	// CellSize is the edge length of the background grid cells. Required.
	CellSize float64
	// ParticleRadius is the radius of all particles when
	// Particles.Radii is nil.
	ParticleRadius float64
	// SupportMultiplier scales a particle radius into its kernel
	// support radius. DefaultConfig sets it to 4.
	SupportMultiplier float64
	// IsoValue is the field threshold of the surface. Must be finite and non-negative.
	// The field is normalized so that it reads about 1 inside a well sampled fluid.
	IsoValue float64
	// RestDensity sets the particle mass together with the particle radius.
	// Zero selects DefaultRestDensity.
	RestDensity float64
	// Kernel names the smoothing kernel. Empty selects the cubic spline.
	Kernel string
	// Workers is the size of the worker pool. Zero uses GOMAXPROCS.
	Workers int
	// BlockCells is the edge length in cells of the uniform subdomains.
	// Zero picks a size from the grid extent and worker count.
	BlockCells int
	// MaxSubdomainParticles switches to octree subdivision, splitting
	// subdomains until each owns at most this many particles. Zero disables it.
	MaxSubdomainParticles int
	// Sequential skips the domain decomposition and extracts the
	// whole grid in one piece.
	Sequential bool
	// Domain restricts reconstruction to particles and cells within the box.
	// When nil the domain is the particle bounding box grown by the
	// largest support radius.
	Domain *r3.Box
	// SplashDetectionRadius drops particles that have no neighbor within
	// this distance before the density field is built. Zero disables it.
	SplashDetectionRadius float64
	// KeepDensityField keeps the global density field in the detailed result.
	KeepDensityField bool
	// Logger receives stage progress. Nil disables logging.
	Logger *log.Logger
}

// DefaultConfig returns a configuration with the documented defaults
// for the given cell size and particle radius.
func DefaultConfig(cellSize, particleRadius float64) Config {
	return Config{
		CellSize:          cellSize,
		ParticleRadius:    particleRadius,
		SupportMultiplier: 4,
		RestDensity:       DefaultRestDensity,
		Kernel:            "cubic",
	}
}

// Validate checks the configuration. All errors wrap ErrInvalidConfiguration.
func (c Config) Validate() error {
	switch {
	case !(c.CellSize > 0) || math.IsInf(c.CellSize, 0):
		return ErrMsg(ErrInvalidConfiguration, "cell size must be positive and finite")
	case !(c.SupportMultiplier > 0) || math.IsInf(c.SupportMultiplier, 0):
		return ErrMsg(ErrInvalidConfiguration, "support multiplier must be positive and finite")
	case math.IsNaN(c.ParticleRadius) || c.ParticleRadius < 0 || math.IsInf(c.ParticleRadius, 0):
		return ErrMsg(ErrInvalidConfiguration, "particle radius must be non-negative and finite")
	case !IsFinite(c.IsoValue) || c.IsoValue < 0:
		return ErrMsg(ErrInvalidConfiguration, "isovalue must be non-negative and finite")
	case !IsFinite(c.RestDensity) || c.RestDensity < 0:
		return ErrMsg(ErrInvalidConfiguration, "rest density must be non-negative and finite")
	case c.Workers < 0:
		return ErrMsg(ErrInvalidConfiguration, "negative worker count")
	case c.BlockCells < 0:
		return ErrMsg(ErrInvalidConfiguration, "negative subdomain block size")
	case c.MaxSubdomainParticles < 0:
		return ErrMsg(ErrInvalidConfiguration, "negative subdomain particle limit")
	case !IsFinite(c.SplashDetectionRadius) || c.SplashDetectionRadius < 0:
		return ErrMsg(ErrInvalidConfiguration, "splash detection radius must be non-negative and finite")
	}
	if c.Domain != nil {
		b := d3.Box(*c.Domain)
		if !d3.IsFinite(b.Min) || !d3.IsFinite(b.Max) || b.Empty() {
			return ErrMsg(ErrInvalidConfiguration, "domain box must be finite and non-empty")
		}
	}
	return nil
}

// Support returns the kernel support radius of a particle of radius r.
func (c Config) Support(r float64) float64 {
	return c.SupportMultiplier * r
}

// Density returns the rest density with the default applied.
func (c Config) Density() float64 {
	if c.RestDensity == 0 {
		return DefaultRestDensity
	}
	return c.RestDensity
}

// Mass returns the mass of a particle of radius r at rest density.
func (c Config) Mass(r float64) float64 {
	return c.Density() * 4.0 / 3.0 * math.Pi * r * r * r
}

// WorkerCount returns the effective size of the worker pool.
func (c Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Logf logs through the configured logger, if any.
func (c Config) Logf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}
