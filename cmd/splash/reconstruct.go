package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/profile"
	"github.com/soypat/splash"
	"github.com/soypat/splash/particleio"
	"github.com/soypat/splash/postproc"
	"github.com/soypat/splash/render"
	"github.com/soypat/splash/surface"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type runOptions struct {
	Input, Output string
	// Histogram is the path of the particle density histogram plot, if any.
	Histogram string
	// Attributes interpolates particle attributes onto VTK output.
	Attributes bool
	Verbose    bool
}

// ReconstructCmd represents the reconstruct command
var ReconstructCmd = &cobra.Command{
	Use:   "reconstruct",
	Short: "Reconstruct the surface of a particle file",
	Long: `
Reads particles from a .xyz, .csv or .vtk file and writes the reconstructed
surface mesh as .stl, .obj, .vtk or a .png preview.

splash reconstruct -i particles.csv -o surface.vtk -p params.yaml --radius 0.025`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts runOptions
		opts.Input, _ = cmd.Flags().GetString("input")
		opts.Output, _ = cmd.Flags().GetString("output")
		opts.Histogram, _ = cmd.Flags().GetString("histogram")
		opts.Attributes, _ = cmd.Flags().GetBool("attributes")
		opts.Verbose, _ = cmd.Flags().GetBool("verbose")
		paramFile, _ := cmd.Flags().GetString("params")
		if opts.Input == "" || opts.Output == "" {
			fmt.Printf("Example parameter file:%s\n", exampleParameters)
			return fmt.Errorf("must supply an input particle file (-i, --input) and an output mesh file (-o, --output)")
		}
		ip, err := ReadParameters(paramFile)
		if err != nil {
			return err
		}
		ip.Override(viper.GetViper())

		prof, _ := cmd.Flags().GetString("profile")
		profDir, _ := cmd.Flags().GetString("profileDir")
		switch prof {
		case "":
		case "cpu":
			defer profile.Start(profile.CPUProfile, profile.ProfilePath(profDir)).Stop()
		case "mem":
			defer profile.Start(profile.MemProfile, profile.ProfilePath(profDir)).Stop()
		default:
			return fmt.Errorf("unknown profile mode %q, want cpu or mem", prof)
		}
		return runReconstruct(ip, opts)
	},
}

func init() {
	rootCmd.AddCommand(ReconstructCmd)
	def := DefaultParameters()
	flags := ReconstructCmd.Flags()
	flags.StringP("input", "i", "", "particle file to read (.xyz, .csv, .vtk)")
	flags.StringP("output", "o", "", "mesh file to write (.stl, .obj, .vtk, .png)")
	flags.StringP("params", "p", "", "YAML file of reconstruction parameters")
	flags.Float64P("radius", "r", 0, "particle radius")
	flags.Float64("support", def.SupportMultiplier, "kernel support radius in particle radii")
	flags.Float64P("cube-size", "c", def.CubeSize, "marching cubes cell size in particle radii")
	flags.Float64P("iso", "t", def.IsoValue, "surface threshold of the density field")
	flags.Float64("rest-density", def.RestDensity, "rest density of the fluid")
	flags.StringP("kernel", "k", def.Kernel, "smoothing kernel: cubic or wendland")
	flags.IntP("workers", "w", 0, "worker goroutines, 0 uses all CPUs")
	flags.Int("block-cells", 0, "subdomain edge length in cells, 0 picks one")
	flags.Int("octree", 0, "use octree subdomains with at most this many particles each")
	flags.Bool("sequential", false, "reconstruct without domain decomposition")
	flags.Float64("splash-radius", 0, "drop particles without a neighbor within this many radii")
	flags.Int("smooth", 0, "mesh smoothing iterations")
	flags.Float64("simplify", 0, "merge coplanar triangles whose normals differ less than this")
	flags.BoolP("attributes", "a", true, "interpolate particle attributes onto .vtk output")
	flags.String("histogram", "", "write a plot of the particle densities to this file")
	flags.BoolP("verbose", "v", false, "log reconstruction stages")
	flags.String("profile", "", "profile the run: cpu or mem")
	flags.String("profileDir", ".", "directory of profile output")
	for _, name := range []string{"radius", "support", "cube-size", "iso", "rest-density", "kernel", "workers",
		"block-cells", "octree", "sequential", "splash-radius", "smooth", "simplify"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

func runReconstruct(ip *InputParameters, opts runOptions) error {
	cfg, err := ip.Config()
	if err != nil {
		return err
	}
	if opts.Verbose {
		cfg.Logger = log.Default()
		ip.Print(os.Stdout)
	}
	p, err := particleio.Read(opts.Input)
	if err != nil {
		return err
	}
	log.Printf("read %d particles from %s", p.Len(), opts.Input)

	rec, err := surface.ReconstructDetailed(p, cfg)
	if err != nil {
		return err
	}
	t := rec.Timings
	log.Printf("reconstructed %d triangles from %d particles in %d subdomains in %v (densities %v, field %v, stitch %v)",
		len(rec.Mesh.Triangles), len(rec.Used), len(rec.Subdomains), t.Total, t.Densities, t.Field, t.Stitch)

	mesh := postproc.Apply(rec.Mesh, ip.PostOptions())
	if mesh != rec.Mesh {
		log.Printf("post-processed mesh has %d triangles", len(mesh.Triangles))
	}
	if opts.Attributes && len(p.Attributes) > 0 && strings.EqualFold(filepath.Ext(opts.Output), ".vtk") {
		// Filtered particles carry no density and do not contribute.
		used := p.Subset(rec.Used)
		rho := make([]float64, len(rec.Used))
		for i, id := range rec.Used {
			rho[i] = rec.Densities[id]
		}
		if err = surface.InterpolateAttributes(mesh, used, rho, cfg); err != nil {
			return err
		}
	}
	if opts.Verbose {
		log.Printf("mesh: %v", render.MeshStats(mesh))
	}
	if err = writeMesh(opts.Output, mesh); err != nil {
		return err
	}
	log.Printf("wrote %s", opts.Output)
	if opts.Histogram != "" {
		if err = writeHistogram(opts.Histogram, rec.Densities, cfg.Density()); err != nil {
			return err
		}
	}
	return nil
}

func writeMesh(path string, m *splash.Mesh) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".stl":
		return render.CreateSTL(path, render.NewMeshRenderer(m))
	case ".obj":
		return render.CreateOBJ(path, m)
	case ".vtk":
		return render.CreateVTK(path, m)
	case ".png":
		return render.CreatePNG(path, m, render.DefaultView)
	default:
		return fmt.Errorf("unsupported mesh file extension %q", ext)
	}
}
