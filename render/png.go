package render

import (
	"errors"
	"image"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"github.com/soypat/splash"
	"gonum.org/v1/gonum/spatial/r3"
)

// View configures the camera of a mesh preview. The mesh is fit into
// a cube of side two centered at the origin before rendering.
type View struct {
	Up     r3.Vec // up vector
	Eye    r3.Vec // camera position
	LookAt r3.Vec // view center
	Near   float64
	Far    float64
	// Width and Height of the output image in pixels.
	Width, Height int
	// Supersample renders at this multiple of the output size
	// and downscales for antialiasing.
	Supersample int
}

// DefaultView is an isometric view of the mesh.
var DefaultView = View{
	Up:          r3.Vec{Z: 1},
	Eye:         r3.Vec{X: 2.4, Y: 2.4, Z: 2.4},
	Near:        1,
	Far:         10,
	Width:       800,
	Height:      600,
	Supersample: 2,
}

// Preview renders a shaded image of m.
func Preview(m *splash.Mesh, view View) (image.Image, error) {
	if m.Empty() {
		return nil, errors.New("cannot preview empty mesh")
	}
	if view.Width <= 0 || view.Height <= 0 {
		return nil, errors.New("preview size must be positive")
	}
	scale := max(view.Supersample, 1)
	const fovy = 30 // vertical field of view in degrees
	var (
		eye    = fauxgl.V(view.Eye.X, view.Eye.Y, view.Eye.Z)
		center = fauxgl.V(view.LookAt.X, view.LookAt.Y, view.LookAt.Z)
		up     = fauxgl.V(view.Up.X, view.Up.Y, view.Up.Z)
		light  = fauxgl.V(-0.75, 1, 0.25).Normalize()
		color  = fauxgl.HexColor("#468966")
	)
	tris := make([]*fauxgl.Triangle, 0, len(m.Triangles))
	for i := range m.Triangles {
		c := m.Triangle(i)
		tris = append(tris, fauxgl.NewTriangleForPoints(
			fauxgl.V(c[0].X, c[0].Y, c[0].Z),
			fauxgl.V(c[1].X, c[1].Y, c[1].Z),
			fauxgl.V(c[2].X, c[2].Y, c[2].Z),
		))
	}
	mesh := fauxgl.NewTriangleMesh(tris)
	mesh.BiUnitCube()
	mesh.SmoothNormals()

	context := fauxgl.NewContext(view.Width*scale, view.Height*scale)
	context.ClearColorBufferWith(fauxgl.HexColor("#FFF8E3"))
	aspect := float64(view.Width) / float64(view.Height)
	matrix := fauxgl.LookAt(eye, center, up).Perspective(fovy, aspect, view.Near, view.Far)
	shader := fauxgl.NewPhongShader(matrix, light, eye)
	shader.ObjectColor = color
	context.Shader = shader
	context.DrawMesh(mesh)
	img := context.Image()
	if scale > 1 {
		img = resize.Resize(uint(view.Width), uint(view.Height), img, resize.Bilinear)
	}
	return img, nil
}

// CreatePNG renders a preview of m into a PNG file at path.
func CreatePNG(path string, m *splash.Mesh, view View) error {
	img, err := Preview(m, view)
	if err != nil {
		return err
	}
	return fauxgl.SavePNG(path, img)
}
