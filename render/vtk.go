package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/soypat/splash"
)

// vtkTriangle is the VTK cell type of a linear triangle.
const vtkTriangle = 5

// WriteVTK writes m as a legacy ASCII VTK unstructured grid of triangles.
// Mesh attributes are written as point data.
func WriteVTK(w io.Writer, m *splash.Mesh) error {
	for _, a := range m.Attributes {
		if a.Len() != len(m.Vertices) {
			return fmt.Errorf("attribute %q has %d values for %d vertices", a.Name, a.Len(), len(m.Vertices))
		}
	}
	bw := bufio.NewWriter(w)
	bw.WriteString("# vtk DataFile Version 4.2\nsurface mesh\nASCII\nDATASET UNSTRUCTURED_GRID\n")
	fmt.Fprintf(bw, "POINTS %d double\n", len(m.Vertices))
	for _, v := range m.Vertices {
		writeVec(bw, v.X, v.Y, v.Z)
	}
	nt := len(m.Triangles)
	fmt.Fprintf(bw, "CELLS %d %d\n", nt, 4*nt)
	for _, t := range m.Triangles {
		fmt.Fprintf(bw, "3 %d %d %d\n", t[0], t[1], t[2])
	}
	fmt.Fprintf(bw, "CELL_TYPES %d\n", nt)
	for i := 0; i < nt; i++ {
		fmt.Fprintf(bw, "%d\n", vtkTriangle)
	}
	if len(m.Attributes) > 0 {
		fmt.Fprintf(bw, "POINT_DATA %d\n", len(m.Vertices))
	}
	for _, a := range m.Attributes {
		name := vtkName(a.Name)
		if a.Vectors != nil {
			fmt.Fprintf(bw, "VECTORS %s double\n", name)
			for _, v := range a.Vectors {
				writeVec(bw, v.X, v.Y, v.Z)
			}
			continue
		}
		fmt.Fprintf(bw, "SCALARS %s double 1\nLOOKUP_TABLE default\n", name)
		for _, s := range a.Scalars {
			fmt.Fprintf(bw, "%g\n", s)
		}
	}
	return bw.Flush()
}

// CreateVTK writes m to a legacy VTK file at path.
func CreateVTK(path string, m *splash.Mesh) error {
	return createWith(path, m, WriteVTK)
}

// vtkName makes an attribute name safe for the whitespace separated legacy format.
func vtkName(s string) string {
	if s == "" {
		return "unnamed"
	}
	return strings.Join(strings.Fields(s), "_")
}
