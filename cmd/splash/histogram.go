package main

import (
	"errors"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const histogramBins = 40

// writeHistogram plots the distribution of particle densities relative to
// the rest density. Filtered particles, which have zero density, are left out.
// The image format follows the extension of path.
func writeHistogram(path string, densities []float64, rest float64) error {
	vals := make(plotter.Values, 0, len(densities))
	for _, d := range densities {
		if d > 0 {
			vals = append(vals, d/rest)
		}
	}
	if len(vals) == 0 {
		return errors.New("no particle densities to plot")
	}
	p := plot.New()
	p.Title.Text = "Particle densities"
	p.X.Label.Text = "density / rest density"
	p.Y.Label.Text = "particles"
	h, err := plotter.NewHist(vals, histogramBins)
	if err != nil {
		return err
	}
	p.Add(h)
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
