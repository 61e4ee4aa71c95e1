package splash

import (
	"errors"
	"fmt"
	"runtime"
)

var (
	// ErrInvalidConfiguration is returned before any computation starts when
	// the reconstruction parameters are unusable (cell size, support radius,
	// isovalue, kernel, grid extent).
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrInvalidParticleConfiguration is returned when particle data is unusable,
	// i.e. non-finite coordinates or non-positive radii.
	ErrInvalidParticleConfiguration = errors.New("invalid particle configuration")
	// ErrNumericalDegeneracy is returned when field evaluation produces
	// NaN, infinite or negative densities.
	ErrNumericalDegeneracy = errors.New("numerical degeneracy")
)

// ErrMsg returns err wrapped with the calling function name and line number.
func ErrMsg(err error, msg string) error {
	pc, _, line, ok := runtime.Caller(1)
	if !ok {
		return fmt.Errorf("?: %s: %w", msg, err)
	}
	fn := runtime.FuncForPC(pc)
	return fmt.Errorf("%s line %d: %s: %w", fn.Name(), line, msg, err)
}
