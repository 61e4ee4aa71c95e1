package particleio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soypat/splash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// sample has values exactly representable as float32.
func sample() splash.Particles {
	return splash.Particles{
		Positions: []r3.Vec{{X: 1, Y: 2, Z: 3}, {X: -0.5, Y: 0.25, Z: 1e3}, {X: 0.125}},
		Radii:     []float64{0.5, 0.25, 0.75},
		Attributes: []splash.Attribute{
			{Name: "pressure", Scalars: []float64{1, 2.5, -3}},
			{Name: "velocity", Vectors: []r3.Vec{{X: 1}, {Y: 2}, {Z: 3}}},
		},
	}
}

func TestXYZ(t *testing.T) {
	p := sample()
	var b bytes.Buffer
	require.NoError(t, WriteXYZ(&b, p.Positions))
	assert.Equal(t, 12*len(p.Positions), b.Len())
	got, err := ReadXYZ(&b)
	require.NoError(t, err)
	assert.Equal(t, p.Positions, got)

	_, err = ReadXYZ(bytes.NewReader(make([]byte, 13)))
	assert.True(t, errors.Is(err, ErrFormat))
	got, err = ReadXYZ(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCSV(t *testing.T) {
	p := sample()
	var b bytes.Buffer
	require.NoError(t, WriteCSV(&b, p))
	assert.True(t, strings.HasPrefix(b.String(), "x,y,z,radius,pressure,velocity_x,velocity_y,velocity_z\n"))
	got, err := ReadCSV(&b)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	const src = " Z, x ,y, temp\n3, 1, 2, 7\n"
	got, err = ReadCSV(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []r3.Vec{{X: 1, Y: 2, Z: 3}}, got.Positions)
	assert.Nil(t, got.Radii)
	require.Len(t, got.Attributes, 1)
	assert.Equal(t, "temp", got.Attributes[0].Name)
	assert.Equal(t, []float64{7}, got.Attributes[0].Scalars)
}

func TestCSVErrors(t *testing.T) {
	for name, src := range map[string]string{
		"empty":          "",
		"missing column": "x,y\n1,2\n",
		"duplicate":      "x,y,z,x\n1,2,3,4\n",
		"not a number":   "x,y,z\n1,2,a\n",
		"short record":   "x,y,z\n1,2\n",
	} {
		_, err := ReadCSV(strings.NewReader(src))
		assert.True(t, errors.Is(err, ErrFormat), "%s: got %v", name, err)
	}
}

func TestVTKRoundTrip(t *testing.T) {
	p := sample()
	var b bytes.Buffer
	require.NoError(t, WriteVTK(&b, p))
	got, err := ReadVTK(&b)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	b.Reset()
	bare := splash.Particles{Positions: p.Positions}
	require.NoError(t, WriteVTK(&b, bare))
	assert.NotContains(t, b.String(), "POINT_DATA")
	got, err = ReadVTK(&b)
	require.NoError(t, err)
	assert.Equal(t, bare, got)
}

func TestVTKBinary(t *testing.T) {
	var b bytes.Buffer
	b.WriteString("# vtk DataFile Version 3.0\nbinary particles\nBINARY\nDATASET POLYDATA\nPOINTS 2 float\n")
	binary.Write(&b, binary.BigEndian, []float32{1, 2, 3, 4, 5, 6})
	b.WriteString("\nVERTICES 2 4\n")
	binary.Write(&b, binary.BigEndian, []int32{1, 0, 1, 1})
	b.WriteString("\nPOINT_DATA 2\nSCALARS radius double\nLOOKUP_TABLE default\n")
	binary.Write(&b, binary.BigEndian, []float64{0.5, 0.25})
	b.WriteString("\nFIELD FieldData 2\nid 1 2 int\n")
	binary.Write(&b, binary.BigEndian, []int32{7, -8})
	b.WriteString("\nrgba 4 2 unsigned_char\n")
	b.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	b.WriteString("\n")

	got, err := ReadVTK(&b)
	require.NoError(t, err)
	assert.Equal(t, []r3.Vec{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}}, got.Positions)
	assert.Equal(t, []float64{0.5, 0.25}, got.Radii)
	// Four component arrays are dropped.
	require.Len(t, got.Attributes, 1)
	assert.Equal(t, splash.Attribute{Name: "id", Scalars: []float64{7, -8}}, got.Attributes[0])
}

func TestVTKVersion5(t *testing.T) {
	const src = `# vtk DataFile Version 5.1
v5 particles
ASCII
DATASET UNSTRUCTURED_GRID
POINTS 2 double
0 0 0 1 1
1
METADATA
INFORMATION 0

CELLS 3 2
OFFSETS vtktypeint64
0 1 2
CONNECTIVITY vtktypeint64
0 1
CELL_TYPES 2
1 1
POINT_DATA 2
VECTORS v float
1 0 0
0 1 0
CELL_DATA 2
SCALARS ignored float
LOOKUP_TABLE default
1 2
`
	got, err := ReadVTK(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []r3.Vec{{}, {X: 1, Y: 1, Z: 1}}, got.Positions)
	require.Len(t, got.Attributes, 1)
	assert.Equal(t, []r3.Vec{{X: 1}, {Y: 1}}, got.Attributes[0].Vectors)
}

func TestVTKErrors(t *testing.T) {
	const header = "# vtk DataFile Version 3.0\nt\nASCII\n"
	for name, src := range map[string]string{
		"not vtk":        "hello\n",
		"format":         "# vtk DataFile Version 3.0\nt\nXML\nDATASET POLYDATA\n",
		"dataset":        header + "DATASET STRUCTURED_POINTS\n",
		"no points":      header + "DATASET POLYDATA\n",
		"truncated":      header + "DATASET POLYDATA\nPOINTS 2 float\n1 2 3 4\n",
		"bad number":     header + "DATASET POLYDATA\nPOINTS 1 float\n1 2 x\n",
		"bad type":       header + "DATASET POLYDATA\nPOINTS 1 quad\n1 2 3\n",
		"unknown":        header + "DATASET POLYDATA\nPOINTS 1 float\n1 2 3\nBOGUS 1\n",
		"point data len": header + "DATASET POLYDATA\nPOINTS 1 float\n1 2 3\nPOINT_DATA 2\n",
	} {
		_, err := ReadVTK(strings.NewReader(src))
		assert.True(t, errors.Is(err, ErrFormat), "%s: got %v", name, err)
	}
}

func TestReadWriteFile(t *testing.T) {
	dir := t.TempDir()
	p := sample()
	for _, ext := range []string{".csv", ".vtk", ".XYZ"} {
		path := filepath.Join(dir, "particles"+ext)
		require.NoError(t, Write(path, p))
		got, err := Read(path)
		require.NoError(t, err, ext)
		if ext == ".XYZ" {
			assert.Equal(t, p.Positions, got.Positions)
			continue
		}
		assert.Equal(t, p, got, ext)
	}
	assert.Error(t, Write(filepath.Join(dir, "particles.bgeo"), p))
	_, err := Read(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
	_, err = Read(filepath.Join(dir, "particles.bgeo"))
	assert.Error(t, err)
}
