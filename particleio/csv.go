package particleio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/soypat/splash"
	"gonum.org/v1/gonum/spatial/r3"
)

// csvColumns maps header names to column indices.
type csvColumns struct {
	pos    [3]int
	radius int // -1 when absent
	attrs  []csvAttribute
}

type csvAttribute struct {
	name string
	// cols holds one column for scalars and three for vectors.
	cols []int
}

// ReadCSV reads particles from comma separated values. The header row must
// name columns x, y and z. A column named radius sets per particle radii.
// Columns name_x, name_y and name_z form a vector attribute name, every other
// column a scalar attribute.
func ReadCSV(r io.Reader) (splash.Particles, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return splash.Particles{}, fmt.Errorf("%w: missing csv header", ErrFormat)
		}
		return splash.Particles{}, err
	}
	cols, err := parseCSVHeader(header)
	if err != nil {
		return splash.Particles{}, err
	}
	var p splash.Particles
	p.Attributes = make([]splash.Attribute, len(cols.attrs))
	for i, a := range cols.attrs {
		p.Attributes[i].Name = a.name
	}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return splash.Particles{}, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		field := func(col int) (float64, error) {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[col]), 64)
			if err != nil {
				return 0, fmt.Errorf("%w: line %d column %q: %v", ErrFormat, line, header[col], err)
			}
			return v, nil
		}
		var x [3]float64
		for k, col := range cols.pos {
			if x[k], err = field(col); err != nil {
				return splash.Particles{}, err
			}
		}
		p.Positions = append(p.Positions, r3.Vec{X: x[0], Y: x[1], Z: x[2]})
		if cols.radius >= 0 {
			rad, err := field(cols.radius)
			if err != nil {
				return splash.Particles{}, err
			}
			p.Radii = append(p.Radii, rad)
		}
		for i, a := range cols.attrs {
			var v [3]float64
			for k, col := range a.cols {
				if v[k], err = field(col); err != nil {
					return splash.Particles{}, err
				}
			}
			if len(a.cols) == 3 {
				p.Attributes[i].Vectors = append(p.Attributes[i].Vectors, r3.Vec{X: v[0], Y: v[1], Z: v[2]})
			} else {
				p.Attributes[i].Scalars = append(p.Attributes[i].Scalars, v[0])
			}
		}
	}
	return p, nil
}

func parseCSVHeader(header []string) (csvColumns, error) {
	cols := csvColumns{pos: [3]int{-1, -1, -1}, radius: -1}
	names := make([]string, len(header))
	index := make(map[string]int, len(header))
	for i, h := range header {
		names[i] = strings.ToLower(strings.TrimSpace(h))
		if _, dup := index[names[i]]; dup {
			return cols, fmt.Errorf("%w: duplicate csv column %q", ErrFormat, h)
		}
		index[names[i]] = i
	}
	used := make([]bool, len(names))
	for k, axis := range []string{"x", "y", "z"} {
		i, ok := index[axis]
		if !ok {
			return cols, fmt.Errorf("%w: csv header lacks column %q", ErrFormat, axis)
		}
		cols.pos[k] = i
		used[i] = true
	}
	if i, ok := index["radius"]; ok {
		cols.radius = i
		used[i] = true
	}
	for i, name := range names {
		if used[i] {
			continue
		}
		if base, ok := strings.CutSuffix(name, "_x"); ok {
			iy, oky := index[base+"_y"]
			iz, okz := index[base+"_z"]
			if oky && okz && !used[iy] && !used[iz] {
				used[i], used[iy], used[iz] = true, true, true
				cols.attrs = append(cols.attrs, csvAttribute{name: base, cols: []int{i, iy, iz}})
				continue
			}
		}
		used[i] = true
		cols.attrs = append(cols.attrs, csvAttribute{name: name, cols: []int{i}})
	}
	return cols, nil
}

// WriteCSV writes particles as comma separated values readable by ReadCSV.
func WriteCSV(w io.Writer, p splash.Particles) error {
	cw := csv.NewWriter(w)
	header := []string{"x", "y", "z"}
	if p.Radii != nil {
		header = append(header, "radius")
	}
	for _, a := range p.Attributes {
		if a.Vectors != nil {
			header = append(header, a.Name+"_x", a.Name+"_y", a.Name+"_z")
		} else {
			header = append(header, a.Name)
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	rec := make([]string, 0, len(header))
	format := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for i, x := range p.Positions {
		rec = append(rec[:0], format(x.X), format(x.Y), format(x.Z))
		if p.Radii != nil {
			rec = append(rec, format(p.Radii[i]))
		}
		for _, a := range p.Attributes {
			if a.Vectors != nil {
				v := a.Vectors[i]
				rec = append(rec, format(v.X), format(v.Y), format(v.Z))
			} else {
				rec = append(rec, format(a.Scalars[i]))
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
