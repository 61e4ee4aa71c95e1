package render

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/soypat/splash"
)

// WriteOBJ writes m as a Wavefront OBJ file with vertex normals.
func WriteOBJ(w io.Writer, m *splash.Mesh) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# %d vertices, %d triangles\n", len(m.Vertices), len(m.Triangles))
	for _, v := range m.Vertices {
		bw.WriteString("v ")
		writeVec(bw, v.X, v.Y, v.Z)
	}
	for _, n := range m.VertexNormals() {
		bw.WriteString("vn ")
		writeVec(bw, n.X, n.Y, n.Z)
	}
	for _, t := range m.Triangles {
		// OBJ indices are one based.
		a, b, c := t[0]+1, t[1]+1, t[2]+1
		fmt.Fprintf(bw, "f %d//%d %d//%d %d//%d\n", a, a, b, b, c, c)
	}
	return bw.Flush()
}

// CreateOBJ writes m to an OBJ file at path.
func CreateOBJ(path string, m *splash.Mesh) error {
	return createWith(path, m, WriteOBJ)
}

func writeVec(bw *bufio.Writer, x, y, z float64) {
	var buf [96]byte
	b := strconv.AppendFloat(buf[:0], x, 'g', -1, 64)
	b = append(b, ' ')
	b = strconv.AppendFloat(b, y, 'g', -1, 64)
	b = append(b, ' ')
	b = strconv.AppendFloat(b, z, 'g', -1, 64)
	b = append(b, '\n')
	bw.Write(b)
}

func createWith(path string, m *splash.Mesh, write func(io.Writer, *splash.Mesh) error) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fp.Close()
	if err = write(fp, m); err != nil {
		return err
	}
	return fp.Close()
}
