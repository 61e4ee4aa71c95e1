package render

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/chewxy/math32"
	"github.com/soypat/splash"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	stlTriangleSize = 50
	sizeOfSTLHeader = 84
)

// CreateSTL streams the triangles of a Renderer into a binary STL file at path.
func CreateSTL(path string, r Renderer) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	// Header is written last, once the triangle count is known.
	_, err = file.Seek(sizeOfSTLHeader, io.SeekStart)
	if err != nil {
		return err
	}
	rd := &stlReader{r: r}
	n, err := io.CopyBuffer(file, rd, make([]byte, stlTriangleSize*trianglesInBuffer))
	if err != nil {
		return err
	}
	_, err = file.Seek(0, io.SeekStart)
	if err != nil {
		return err
	}
	header := stlHeader{Count: uint32(n / stlTriangleSize)}
	if err = binary.Write(file, binary.LittleEndian, &header); err != nil {
		return err
	}
	return file.Close()
}

// WriteSTL writes model triangles to a writer in binary STL file format.
func WriteSTL(w io.Writer, model []Triangle3) error {
	header := stlHeader{Count: uint32(len(model))}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return err
	}
	var b [stlTriangleSize]byte
	for _, triangle := range model {
		stlFromTriangle(triangle).put(b[:])
		if _, err := w.Write(b[:]); err != nil {
			return err
		}
	}
	return nil
}

// WriteMeshSTL writes an indexed mesh in binary STL file format.
func WriteMeshSTL(w io.Writer, m *splash.Mesh) error {
	return WriteSTL(w, Triangles(m))
}

// ReadSTL reads a binary STL file into an indexed mesh. Corners with identical
// float32 coordinates become one vertex. Mismatched stored normals are ignored.
func ReadSTL(r io.Reader) (*splash.Mesh, error) {
	soup, err := readBinarySTL(r)
	if err != nil && !errors.Is(err, errCalculatedNormalMismatch) {
		return nil, err
	}
	return FromTriangles(soup), nil
}

// stlHeader defines the STL file header.
type stlHeader struct {
	_     [80]uint8 // Header
	Count uint32    // Number of triangles
}

const trianglesInBuffer = 1 << 10

// stlReader adapts a Renderer into an io.Reader of STL triangle records.
type stlReader struct {
	r   Renderer
	buf [trianglesInBuffer]Triangle3
}

func (w *stlReader) Read(b []byte) (int, error) {
	ntMax := min(len(b)/stlTriangleSize, len(w.buf))
	if ntMax == 0 {
		return 0, errors.New("stlReader requires at least 50 bytes to write a single triangle")
	}
	var (
		err error
		it  int // Number of triangles written to byte buffer
		nt  int // number of triangles read during ReadTriangles
	)
	for it < ntMax && err == nil {
		nt, err = w.r.ReadTriangles(w.buf[:ntMax-it])
		for _, triangle := range w.buf[:nt] {
			stlFromTriangle(triangle).put(b[it*stlTriangleSize:])
			it++
		}
	}
	return it * stlTriangleSize, err
}

func readBinarySTL(r io.Reader) (output []Triangle3, readErr error) {
	var header stlHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, errors.New("encountered EOF while reading STL header")
		}
		return nil, errors.New("STL header read failed: " + err.Error())
	}
	var (
		buf            [stlTriangleSize]byte
		d              stlTriangle
		i              int
		normMismatches int
	)
	defer func() {
		if readErr != nil && !errors.Is(readErr, errCalculatedNormalMismatch) {
			readErr = fmt.Errorf("%d/%d STL triangles read: %w", i+1, header.Count, readErr)
		}
	}()
	output = make([]Triangle3, 0, header.Count)
	for i = 0; i < int(header.Count); i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		d.get(buf[:])
		if err := d.validate(); err != nil {
			if !errors.Is(err, errCalculatedNormalMismatch) {
				return nil, err
			}
			normMismatches++
			if normMismatches > 10_000 {
				// This may be valid output, so we return the triangles.
				return output, fmt.Errorf("got too many normal vector mismatches (%d)", normMismatches)
			}
			readErr = err
		}
		output = append(output, d.toTriangle3())
	}
	return output, readErr
}

// stlTriangle defines the triangle data within an STL file.
type stlTriangle struct {
	Normal  [3]float32
	Vertex1 [3]float32
	Vertex2 [3]float32
	Vertex3 [3]float32
	_       uint16 // Attribute byte count
}

func stlFromTriangle(t Triangle3) (d stlTriangle) {
	d.Normal = to3F32(t.Normal())
	d.Vertex1 = to3F32(t.V[0])
	d.Vertex2 = to3F32(t.V[1])
	d.Vertex3 = to3F32(t.V[2])
	return d
}

func to3F32(v r3.Vec) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}

func (t stlTriangle) put(b []byte) {
	if len(b) < stlTriangleSize {
		panic("need length 50 to marshal stlTriangle")
	}
	put3F32(b, t.Normal)
	put3F32(b[12:], t.Vertex1)
	put3F32(b[24:], t.Vertex2)
	put3F32(b[36:], t.Vertex3)
	binary.LittleEndian.PutUint16(b[48:], 0)
}

func (t *stlTriangle) get(b []byte) {
	if len(b) < stlTriangleSize {
		panic("need length 50 to unmarshal stlTriangle")
	}
	get3F32(b, &t.Normal)
	get3F32(b[12:], &t.Vertex1)
	get3F32(b[24:], &t.Vertex2)
	get3F32(b[36:], &t.Vertex3)
}

func put3F32(b []byte, f [3]float32) {
	_ = b[11] // early bounds check
	binary.LittleEndian.PutUint32(b, math.Float32bits(f[0]))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(f[1]))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(f[2]))
}

func get3F32(b []byte, f *[3]float32) {
	_ = b[11] // early bounds check
	f[0] = math.Float32frombits(binary.LittleEndian.Uint32(b))
	f[1] = math.Float32frombits(binary.LittleEndian.Uint32(b[4:]))
	f[2] = math.Float32frombits(binary.LittleEndian.Uint32(b[8:]))
}

func bad3F32(f [3]float32) bool {
	return math32.IsNaN(f[0]) || math32.IsInf(f[0], 0) ||
		math32.IsNaN(f[1]) || math32.IsInf(f[1], 0) ||
		math32.IsNaN(f[2]) || math32.IsInf(f[2], 0)
}

var errCalculatedNormalMismatch = errors.New("triangle normal not approximately equal to calculated normal from vertices")

func (t stlTriangle) validate() error {
	const normTol = 5e-2
	if bad3F32(t.Normal) {
		return errors.New("inf/NaN STL triangle normal")
	}
	if bad3F32(t.Vertex1) || bad3F32(t.Vertex2) || bad3F32(t.Vertex3) {
		return errors.New("inf/NaN STL triangle vertex")
	}
	if t.Vertex1 == t.Vertex2 || t.Vertex2 == t.Vertex3 || t.Vertex3 == t.Vertex1 {
		return errors.New("triangle is degenerate")
	}
	calc := to3F32(stlTriangleNormal(t))
	calcNeg := [3]float32{-calc[0], -calc[1], -calc[2]}
	if !equalWithin3F32(calc, t.Normal, normTol) && !equalWithin3F32(calcNeg, t.Normal, normTol) {
		return errCalculatedNormalMismatch
	}
	return nil
}

func r3From3F32(f [3]float32) r3.Vec {
	return r3.Vec{X: float64(f[0]), Y: float64(f[1]), Z: float64(f[2])}
}

func stlTriangleNormal(t stlTriangle) r3.Vec {
	return t.toTriangle3().Normal()
}

func equalWithin3F32(a, b [3]float32, tol float32) bool {
	return math32.Abs(a[0]-b[0]) <= tol &&
		math32.Abs(a[1]-b[1]) <= tol &&
		math32.Abs(a[2]-b[2]) <= tol
}

func (t stlTriangle) toTriangle3() Triangle3 {
	return Triangle3{V: [3]r3.Vec{
		r3From3F32(t.Vertex1),
		r3From3F32(t.Vertex2),
		r3From3F32(t.Vertex3),
	}}
}
