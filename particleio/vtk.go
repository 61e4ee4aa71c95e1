package particleio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/soypat/splash"
	"gonum.org/v1/gonum/spatial/r3"
)

// radiusAttribute is the attribute name read into Particles.Radii.
const radiusAttribute = "radius"

// vtkReader parses legacy VTK files. Keyword lines are read whole while
// data is read as whitespace separated tokens (ASCII) or big endian values (BINARY).
type vtkReader struct {
	br      *bufio.Reader
	binary  bool
	version int // major version
	tok     []byte
}

// ReadVTK reads particles from the points of a legacy VTK file. Point data
// with one or three components is read as attributes and a scalar named
// radius as particle radii. Cells and cell data are ignored.
func ReadVTK(r io.Reader) (splash.Particles, error) {
	vr := &vtkReader{br: bufio.NewReader(r)}
	p, err := vr.read()
	if err != nil && !errors.Is(err, ErrFormat) {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		err = fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return p, err
}

func (vr *vtkReader) read() (p splash.Particles, err error) {
	first, err := vr.br.ReadString('\n')
	if err != nil {
		return p, err
	}
	if _, err := fmt.Sscanf(strings.TrimSpace(first), "# vtk DataFile Version %d.", &vr.version); err != nil {
		return p, fmt.Errorf("%w: not a legacy VTK file", ErrFormat)
	}
	if _, err = vr.br.ReadString('\n'); err != nil { // title
		return p, err
	}
	format, err := vr.br.ReadString('\n')
	if err != nil {
		return p, err
	}
	switch strings.ToUpper(strings.TrimSpace(format)) {
	case "ASCII":
	case "BINARY":
		vr.binary = true
	default:
		return p, fmt.Errorf("%w: unknown VTK data format %q", ErrFormat, strings.TrimSpace(format))
	}
	fields, err := vr.line()
	if err != nil {
		return p, err
	}
	if len(fields) != 2 || fields[0] != "DATASET" || (fields[1] != "UNSTRUCTURED_GRID" && fields[1] != "POLYDATA") {
		return p, fmt.Errorf("%w: unsupported dataset %q", ErrFormat, strings.Join(fields, " "))
	}

	havePoints := false
	for {
		fields, err := vr.line()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return p, err
		}
		switch key := strings.ToUpper(fields[0]); key {
		case "POINTS":
			n, typ, err := countAndType(fields)
			if err != nil {
				return p, err
			}
			v, err := vr.values(3*n, typ)
			if err != nil {
				return p, err
			}
			p.Positions = vectors(v)
			havePoints = true
		case "CELLS", "VERTICES", "LINES", "POLYGONS", "TRIANGLE_STRIPS":
			if err := vr.skipCells(fields); err != nil {
				return p, err
			}
		case "CELL_TYPES":
			n, err := count(fields, 1)
			if err != nil {
				return p, err
			}
			if _, err = vr.values(n, "int"); err != nil {
				return p, err
			}
		case "METADATA":
			if err := vr.skipBlock(); err != nil {
				return p, err
			}
		case "POINT_DATA":
			n, err := count(fields, 1)
			if err != nil {
				return p, err
			}
			if n != len(p.Positions) {
				return p, fmt.Errorf("%w: %d point data tuples for %d points", ErrFormat, n, len(p.Positions))
			}
		case "SCALARS":
			if err := vr.scalars(&p, fields); err != nil {
				return p, err
			}
		case "VECTORS", "NORMALS":
			if len(fields) < 3 {
				return p, fmt.Errorf("%w: malformed %s line", ErrFormat, key)
			}
			v, err := vr.values(3*len(p.Positions), fields[2])
			if err != nil {
				return p, err
			}
			p.Attributes = append(p.Attributes, splash.Attribute{Name: fields[1], Vectors: vectors(v)})
		case "FIELD":
			if err := vr.fieldData(&p, fields); err != nil {
				return p, err
			}
		case "CELL_DATA":
			// Remaining attributes describe cells.
			return p, vr.finish(p, havePoints)
		default:
			return p, fmt.Errorf("%w: unsupported VTK section %q", ErrFormat, fields[0])
		}
	}
	return p, vr.finish(p, havePoints)
}

func (vr *vtkReader) finish(p splash.Particles, havePoints bool) error {
	if !havePoints {
		return fmt.Errorf("%w: VTK file has no POINTS section", ErrFormat)
	}
	return nil
}

func (vr *vtkReader) scalars(p *splash.Particles, fields []string) error {
	if len(fields) < 3 {
		return fmt.Errorf("%w: malformed SCALARS line", ErrFormat)
	}
	ncomp := 1
	if len(fields) > 3 {
		var err error
		if ncomp, err = strconv.Atoi(fields[3]); err != nil || ncomp < 1 {
			return fmt.Errorf("%w: bad SCALARS component count %q", ErrFormat, fields[3])
		}
	}
	lut, err := vr.line()
	if err != nil {
		return err
	}
	if strings.ToUpper(lut[0]) != "LOOKUP_TABLE" {
		return fmt.Errorf("%w: SCALARS %s lacks LOOKUP_TABLE", ErrFormat, fields[1])
	}
	v, err := vr.values(ncomp*len(p.Positions), fields[2])
	if err != nil {
		return err
	}
	addAttribute(p, fields[1], ncomp, v)
	return nil
}

// fieldData reads a FIELD section of arrays, each "name ncomp ntuples type".
func (vr *vtkReader) fieldData(p *splash.Particles, fields []string) error {
	narrays, err := count(fields, 2)
	if err != nil {
		return err
	}
	for i := 0; i < narrays; i++ {
		hdr, err := vr.line()
		if err != nil {
			return err
		}
		if len(hdr) != 4 {
			return fmt.Errorf("%w: malformed FIELD array line %q", ErrFormat, strings.Join(hdr, " "))
		}
		ncomp, err1 := strconv.Atoi(hdr[1])
		ntuples, err2 := strconv.Atoi(hdr[2])
		if err1 != nil || err2 != nil || ncomp < 1 || ntuples < 0 {
			return fmt.Errorf("%w: malformed FIELD array line %q", ErrFormat, strings.Join(hdr, " "))
		}
		v, err := vr.values(ncomp*ntuples, hdr[3])
		if err != nil {
			return err
		}
		if ntuples == len(p.Positions) {
			addAttribute(p, hdr[0], ncomp, v)
		}
	}
	return nil
}

// addAttribute stores point data with one or three components. Other
// component counts are dropped.
func addAttribute(p *splash.Particles, name string, ncomp int, v []float64) {
	switch {
	case ncomp == 1 && strings.EqualFold(name, radiusAttribute) && p.Radii == nil:
		p.Radii = v
	case ncomp == 1:
		p.Attributes = append(p.Attributes, splash.Attribute{Name: name, Scalars: v})
	case ncomp == 3:
		p.Attributes = append(p.Attributes, splash.Attribute{Name: name, Vectors: vectors(v)})
	}
}

func (vr *vtkReader) skipCells(fields []string) error {
	n, err := count(fields, 2)
	if err != nil {
		return err
	}
	size, err := strconv.Atoi(fields[2])
	if err != nil || size < 0 {
		return fmt.Errorf("%w: malformed %s line", ErrFormat, fields[0])
	}
	if vr.version < 5 {
		_, err = vr.values(size, "int")
		return err
	}
	// Version 5 stores offsets and connectivity arrays with their own types.
	for _, want := range [2]struct {
		key string
		n   int
	}{{"OFFSETS", n}, {"CONNECTIVITY", size}} {
		hdr, err := vr.line()
		if err != nil {
			return err
		}
		if len(hdr) != 2 || strings.ToUpper(hdr[0]) != want.key {
			return fmt.Errorf("%w: expected %s after %s", ErrFormat, want.key, fields[0])
		}
		if _, err = vr.values(want.n, hdr[1]); err != nil {
			return err
		}
	}
	return nil
}

// skipBlock discards lines up to the next blank line.
func (vr *vtkReader) skipBlock() error {
	for {
		s, err := vr.br.ReadString('\n')
		if strings.TrimSpace(s) == "" || err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// line returns the fields of the next non-blank line.
func (vr *vtkReader) line() ([]string, error) {
	for {
		s, err := vr.br.ReadString('\n')
		if f := strings.Fields(s); len(f) > 0 {
			return f, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// values reads n numbers of the VTK data type typ.
func (vr *vtkReader) values(n int, typ string) ([]float64, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative value count", ErrFormat)
	}
	size, err := typeSize(typ)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	if !vr.binary {
		for i := range out {
			tok, err := vr.token()
			if err != nil {
				return nil, err
			}
			if out[i], err = strconv.ParseFloat(tok, 64); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrFormat, err)
			}
		}
		return out, nil
	}
	buf := make([]byte, size)
	typ = strings.ToLower(typ)
	for i := range out {
		if _, err := io.ReadFull(vr.br, buf); err != nil {
			return nil, err
		}
		out[i] = decodeBigEndian(buf, typ)
	}
	return out, nil
}

func (vr *vtkReader) token() (string, error) {
	vr.tok = vr.tok[:0]
	for {
		c, err := vr.br.ReadByte()
		if err != nil {
			if len(vr.tok) > 0 && errors.Is(err, io.EOF) {
				return string(vr.tok), nil
			}
			return "", err
		}
		switch c {
		case ' ', '\t', '\n', '\r':
			if len(vr.tok) > 0 {
				return string(vr.tok), nil
			}
		default:
			vr.tok = append(vr.tok, c)
		}
	}
}

func typeSize(typ string) (int, error) {
	switch strings.ToLower(typ) {
	case "bit", "char", "unsigned_char":
		return 1, nil
	case "short", "unsigned_short":
		return 2, nil
	case "int", "unsigned_int", "float":
		return 4, nil
	case "long", "unsigned_long", "double", "vtktypeint64", "vtktypeuint64":
		return 8, nil
	}
	return 0, fmt.Errorf("%w: unsupported VTK data type %q", ErrFormat, typ)
}

func decodeBigEndian(b []byte, typ string) float64 {
	be := binary.BigEndian
	switch typ {
	case "char":
		return float64(int8(b[0]))
	case "bit", "unsigned_char":
		return float64(b[0])
	case "short":
		return float64(int16(be.Uint16(b)))
	case "unsigned_short":
		return float64(be.Uint16(b))
	case "int":
		return float64(int32(be.Uint32(b)))
	case "unsigned_int":
		return float64(be.Uint32(b))
	case "float":
		return float64(math.Float32frombits(be.Uint32(b)))
	case "double":
		return math.Float64frombits(be.Uint64(b))
	case "unsigned_long", "vtktypeuint64":
		return float64(be.Uint64(b))
	}
	return float64(int64(be.Uint64(b)))
}

// count parses fields[i] as a non-negative count.
func count(fields []string, i int) (int, error) {
	if len(fields) <= i {
		return 0, fmt.Errorf("%w: malformed %s line", ErrFormat, fields[0])
	}
	n, err := strconv.Atoi(fields[i])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: bad count %q in %s line", ErrFormat, fields[i], fields[0])
	}
	return n, nil
}

func countAndType(fields []string) (int, string, error) {
	n, err := count(fields, 1)
	if err != nil {
		return 0, "", err
	}
	if len(fields) < 3 {
		return 0, "", fmt.Errorf("%w: %s line lacks data type", ErrFormat, fields[0])
	}
	return n, fields[2], nil
}

func vectors(v []float64) []r3.Vec {
	out := make([]r3.Vec, len(v)/3)
	for i := range out {
		out[i] = r3.Vec{X: v[3*i], Y: v[3*i+1], Z: v[3*i+2]}
	}
	return out
}

// WriteVTK writes particles as an ASCII legacy VTK unstructured grid of vertex
// cells. Radii and attributes are written as point data.
func WriteVTK(w io.Writer, p splash.Particles) error {
	bw := bufio.NewWriter(w)
	n := len(p.Positions)
	fmt.Fprintf(bw, "# vtk DataFile Version 4.2\nparticles\nASCII\nDATASET UNSTRUCTURED_GRID\nPOINTS %d double\n", n)
	for _, x := range p.Positions {
		fmt.Fprintf(bw, "%s %s %s\n", formatFloat(x.X), formatFloat(x.Y), formatFloat(x.Z))
	}
	fmt.Fprintf(bw, "CELLS %d %d\n", n, 2*n)
	for i := 0; i < n; i++ {
		fmt.Fprintf(bw, "1 %d\n", i)
	}
	fmt.Fprintf(bw, "CELL_TYPES %d\n", n)
	for i := 0; i < n; i++ {
		bw.WriteString("1\n") // VTK_VERTEX
	}
	if p.Radii == nil && len(p.Attributes) == 0 {
		return bw.Flush()
	}
	fmt.Fprintf(bw, "POINT_DATA %d\n", n)
	if p.Radii != nil {
		fmt.Fprintf(bw, "SCALARS %s double 1\nLOOKUP_TABLE default\n", radiusAttribute)
		for _, r := range p.Radii {
			fmt.Fprintln(bw, formatFloat(r))
		}
	}
	for _, a := range p.Attributes {
		name := strings.Join(strings.Fields(a.Name), "_")
		if a.Vectors != nil {
			fmt.Fprintf(bw, "VECTORS %s double\n", name)
			for _, v := range a.Vectors {
				fmt.Fprintf(bw, "%s %s %s\n", formatFloat(v.X), formatFloat(v.Y), formatFloat(v.Z))
			}
			continue
		}
		fmt.Fprintf(bw, "SCALARS %s double 1\nLOOKUP_TABLE default\n", name)
		for _, s := range a.Scalars {
			fmt.Fprintln(bw, formatFloat(s))
		}
	}
	return bw.Flush()
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
