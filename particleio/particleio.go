// Package particleio reads and writes particle data files.
//
// Supported formats are selected by file extension:
//
//	.xyz  binary little endian float32 x y z triplets
//	.csv  comma separated values with a header row
//	.vtk  legacy VTK unstructured grid or polydata, ASCII or binary
package particleio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/soypat/splash"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrFormat is wrapped by errors caused by malformed or unsupported file contents.
var ErrFormat = errors.New("malformed particle file")

// Read reads the particle file at path. The format follows the file extension.
func Read(path string) (splash.Particles, error) {
	fp, err := os.Open(path)
	if err != nil {
		return splash.Particles{}, err
	}
	defer fp.Close()
	var p splash.Particles
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xyz":
		p.Positions, err = ReadXYZ(fp)
	case ".csv":
		p, err = ReadCSV(fp)
	case ".vtk":
		p, err = ReadVTK(fp)
	default:
		return p, fmt.Errorf("unsupported particle file extension %q", ext)
	}
	if err != nil {
		return splash.Particles{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return p, nil
}

// Write writes the particles to a file at path in the format of its extension.
func Write(path string, p splash.Particles) error {
	var write func(io.Writer, splash.Particles) error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xyz":
		write = func(w io.Writer, p splash.Particles) error { return WriteXYZ(w, p.Positions) }
	case ".csv":
		write = WriteCSV
	case ".vtk":
		write = WriteVTK
	default:
		return fmt.Errorf("unsupported particle file extension %q", ext)
	}
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fp.Close()
	if err = write(fp, p); err != nil {
		return err
	}
	return fp.Close()
}

// ReadXYZ reads positions stored as consecutive little endian float32 triplets.
func ReadXYZ(r io.Reader) ([]r3.Vec, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(b)%12 != 0 {
		return nil, fmt.Errorf("%w: xyz data of %d bytes is not a whole number of float32 triplets", ErrFormat, len(b))
	}
	buf := make([]float32, len(b)/4)
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, buf); err != nil {
		return nil, err
	}
	pos := make([]r3.Vec, len(buf)/3)
	for i := range pos {
		pos[i] = r3.Vec{X: float64(buf[3*i]), Y: float64(buf[3*i+1]), Z: float64(buf[3*i+2])}
	}
	return pos, nil
}

// WriteXYZ writes positions as little endian float32 triplets.
func WriteXYZ(w io.Writer, positions []r3.Vec) error {
	buf := make([]float32, 3*len(positions))
	for i, p := range positions {
		buf[3*i], buf[3*i+1], buf[3*i+2] = float32(p.X), float32(p.Y), float32(p.Z)
	}
	return binary.Write(w, binary.LittleEndian, buf)
}
