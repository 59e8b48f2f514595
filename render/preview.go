package render

import (
	"image"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"github.com/soypat/orifice/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Layer is a surface drawn in a single color.
type Layer struct {
	Surface *mesh.Surface
	// Color is a hex color such as "#468966".
	Color string
}

// View places the camera of a preview. Positions are given in the bi-unit
// cube the layers are fitted in.
type View struct {
	Eye, LookAt, Up r3.Vec
	Near, Far       float64
	// Width and Height are the image size in pixels.
	Width, Height int
}

// DefaultView looks at the origin from above and to the side.
func DefaultView() View {
	return View{
		Eye:    r3.Vec{X: 1.5, Y: -2.5, Z: 3},
		Up:     r3.Vec{Z: 1},
		Near:   1,
		Far:    10,
		Width:  960,
		Height: 540,
	}
}

// Preview draws the layers together, fitted in a bi-unit cube centered at
// the origin, with Phong shading.
func Preview(layers []Layer, view View) (image.Image, error) {
	const (
		scale = 2  // supersampling
		fovy  = 30 // vertical field of view in degrees
	)
	if view.Width <= 0 || view.Height <= 0 {
		return nil, errors.Errorf("invalid preview size %dx%d", view.Width, view.Height)
	}
	var all []*fauxgl.Triangle
	meshes := make([]*fauxgl.Mesh, len(layers))
	for i, l := range layers {
		tris := fauxglTriangles(l.Surface)
		meshes[i] = fauxgl.NewTriangleMesh(tris)
		all = append(all, tris...)
	}
	if len(all) == 0 {
		return nil, errors.New("nothing to preview")
	}
	// Fitting the union moves the shared triangles of every layer.
	fauxgl.NewTriangleMesh(all).BiUnitCube()

	var (
		eye    = fauxgl.V(view.Eye.X, view.Eye.Y, view.Eye.Z)
		center = fauxgl.V(view.LookAt.X, view.LookAt.Y, view.LookAt.Z)
		up     = fauxgl.V(view.Up.X, view.Up.Y, view.Up.Z)
		light  = fauxgl.V(-0.75, 1, 0.25).Normalize()
	)
	context := fauxgl.NewContext(view.Width*scale, view.Height*scale)
	context.ClearColorBufferWith(fauxgl.HexColor("#FFF8E3"))
	aspect := float64(view.Width) / float64(view.Height)
	matrix := fauxgl.LookAt(eye, center, up).Perspective(fovy, aspect, view.Near, view.Far)
	for i, l := range layers {
		shader := fauxgl.NewPhongShader(matrix, light, eye)
		shader.ObjectColor = fauxgl.HexColor(l.Color)
		context.Shader = shader
		context.DrawMesh(meshes[i])
	}
	// downsample image for antialiasing
	img := context.Image()
	return resize.Resize(uint(view.Width), uint(view.Height), img, resize.Bilinear), nil
}

// SavePreview draws the layers with the default view and saves a PNG at path.
func SavePreview(path string, layers []Layer) error {
	img, err := Preview(layers, DefaultView())
	if err != nil {
		return err
	}
	return fauxgl.SavePNG(path, img)
}

func fauxglTriangles(s *mesh.Surface) []*fauxgl.Triangle {
	if s == nil {
		return nil
	}
	tris := make([]*fauxgl.Triangle, 0, len(s.Triangles))
	v := func(p r3.Vec) fauxgl.Vector { return fauxgl.V(p.X, p.Y, p.Z) }
	for i, t := range s.Triangles {
		if s.TriangleArea(i) == 0 {
			continue
		}
		tris = append(tris, fauxgl.NewTriangleForPoints(v(s.Points[t[0]]), v(s.Points[t[1]]), v(s.Points[t[2]])))
	}
	return tris
}
