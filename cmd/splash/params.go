package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ghodss/yaml"
	"github.com/soypat/splash"
	"github.com/soypat/splash/postproc"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/spatial/r3"
)

// InputParameters are read from the YAML parameter file. Lengths other
// than ParticleRadius are relative to the particle radius.
type InputParameters struct {
	Title          string  `json:"Title"`
	ParticleRadius float64 `json:"ParticleRadius"`
	// SupportMultiplier gives the kernel support radius in particle radii.
	SupportMultiplier float64 `json:"SupportMultiplier"`
	CubeSize          float64 `json:"CubeSize"`
	IsoValue          float64 `json:"IsoValue"`
	RestDensity       float64 `json:"RestDensity"`
	Kernel            string  `json:"Kernel"`
	Workers           int     `json:"Workers"`
	BlockCells        int     `json:"BlockCells"`
	// OctreeMaxParticles enables octree subdomains when positive.
	OctreeMaxParticles int     `json:"OctreeMaxParticles"`
	Sequential         bool    `json:"Sequential"`
	SplashRadius       float64 `json:"SplashRadius"`
	// Domain holds the lower then upper corner of the reconstruction box.
	Domain           []float64 `json:"Domain"`
	SmoothIterations int       `json:"SmoothIterations"`
	SmoothStep       float64   `json:"SmoothStep"`
	SimplifyEpsilon  float64   `json:"SimplifyEpsilon"`
}

const exampleParameters = `
########################################
Title: "Dam break"
ParticleRadius: 0.025
SupportMultiplier: 4
CubeSize: 0.5        # cell edge length in particle radii
IsoValue: 0.6
Kernel: cubic        # or wendland
SplashRadius: 0      # drop particles with no neighbor within this many radii
Domain: [-1, -1, -1, 1, 1, 1]
SmoothIterations: 0
########################################
`

// DefaultParameters returns the parameters used when no file sets them.
func DefaultParameters() *InputParameters {
	return &InputParameters{
		SupportMultiplier: 4,
		CubeSize:          0.5,
		IsoValue:          0.6,
		RestDensity:       splash.DefaultRestDensity,
		Kernel:            "cubic",
		SmoothStep:        0.05,
	}
}

func (ip *InputParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

// ReadParameters parses the parameter file at path over the defaults.
func ReadParameters(path string) (*InputParameters, error) {
	ip := DefaultParameters()
	if path == "" {
		return ip, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err = ip.Parse(data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return ip, nil
}

// Override replaces parameters with the values set in v through flags,
// environment or config file.
func (ip *InputParameters) Override(v *viper.Viper) {
	if v.IsSet("radius") {
		ip.ParticleRadius = v.GetFloat64("radius")
	}
	if v.IsSet("support") {
		ip.SupportMultiplier = v.GetFloat64("support")
	}
	if v.IsSet("cube-size") {
		ip.CubeSize = v.GetFloat64("cube-size")
	}
	if v.IsSet("iso") {
		ip.IsoValue = v.GetFloat64("iso")
	}
	if v.IsSet("rest-density") {
		ip.RestDensity = v.GetFloat64("rest-density")
	}
	if v.IsSet("kernel") {
		ip.Kernel = v.GetString("kernel")
	}
	if v.IsSet("workers") {
		ip.Workers = v.GetInt("workers")
	}
	if v.IsSet("block-cells") {
		ip.BlockCells = v.GetInt("block-cells")
	}
	if v.IsSet("octree") {
		ip.OctreeMaxParticles = v.GetInt("octree")
	}
	if v.IsSet("sequential") {
		ip.Sequential = v.GetBool("sequential")
	}
	if v.IsSet("splash-radius") {
		ip.SplashRadius = v.GetFloat64("splash-radius")
	}
	if v.IsSet("smooth") {
		ip.SmoothIterations = v.GetInt("smooth")
	}
	if v.IsSet("simplify") {
		ip.SimplifyEpsilon = v.GetFloat64("simplify")
	}
}

// Config converts the parameters into a reconstruction configuration.
func (ip *InputParameters) Config() (splash.Config, error) {
	if !(ip.ParticleRadius > 0) {
		return splash.Config{}, fmt.Errorf("%w: particle radius must be positive, got %g", splash.ErrInvalidConfiguration, ip.ParticleRadius)
	}
	r := ip.ParticleRadius
	cfg := splash.DefaultConfig(ip.CubeSize*r, r)
	cfg.SupportMultiplier = ip.SupportMultiplier
	cfg.IsoValue = ip.IsoValue
	cfg.RestDensity = ip.RestDensity
	cfg.Kernel = ip.Kernel
	cfg.Workers = ip.Workers
	cfg.BlockCells = ip.BlockCells
	cfg.MaxSubdomainParticles = ip.OctreeMaxParticles
	cfg.Sequential = ip.Sequential
	cfg.SplashDetectionRadius = ip.SplashRadius * r
	switch len(ip.Domain) {
	case 0:
	case 6:
		d := ip.Domain
		cfg.Domain = &r3.Box{
			Min: r3.Vec{X: d[0], Y: d[1], Z: d[2]},
			Max: r3.Vec{X: d[3], Y: d[4], Z: d[5]},
		}
	default:
		return splash.Config{}, fmt.Errorf("%w: domain needs 6 values, got %d", splash.ErrInvalidConfiguration, len(ip.Domain))
	}
	return cfg, cfg.Validate()
}

// PostOptions returns the mesh post-processing passes selected.
func (ip *InputParameters) PostOptions() postproc.Options {
	return postproc.Options{
		SmoothIterations: ip.SmoothIterations,
		SmoothStep:       ip.SmoothStep,
		CoplanarEpsilon:  ip.SimplifyEpsilon,
	}
}

func (ip *InputParameters) Print(w io.Writer) {
	fmt.Fprintf(w, "\"%s\"\t\t= Title\n", ip.Title)
	fmt.Fprintf(w, "%8.5g\t\t= Particle radius\n", ip.ParticleRadius)
	fmt.Fprintf(w, "%8.5g\t\t= Support multiplier\n", ip.SupportMultiplier)
	fmt.Fprintf(w, "%8.5g\t\t= Cube size\n", ip.CubeSize)
	fmt.Fprintf(w, "%8.5g\t\t= Iso value\n", ip.IsoValue)
	fmt.Fprintf(w, "%8.5g\t\t= Rest density\n", ip.RestDensity)
	fmt.Fprintf(w, "[%s]\t\t\t= Kernel\n", ip.Kernel)
	if ip.OctreeMaxParticles > 0 {
		fmt.Fprintf(w, "[%d]\t\t\t= Octree max particles\n", ip.OctreeMaxParticles)
	} else if ip.Sequential {
		fmt.Fprintf(w, "[sequential]\t\t= Decomposition\n")
	} else {
		fmt.Fprintf(w, "[%d]\t\t\t= Block cells\n", ip.BlockCells)
	}
	if len(ip.Domain) == 6 {
		fmt.Fprintf(w, "%v\t= Domain\n", ip.Domain)
	}
}
