// Package shell turns an open medial surface into a closed thick shell.
package shell

import (
	"github.com/pkg/errors"
	"github.com/soypat/orifice/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Build offsets the surface s by half the thickness along its normals to
// build the front face and by minus half the thickness to build the back
// face. Side walls are stitched along every boundary edge, including hole
// rims, and the back face winding is reversed so all triangles face out
// of the shell.
//
// The shell is not checked for self intersections, which appear where
// the surface curvature radius is below half the thickness.
func Build(s *mesh.Surface, thickness float64) (*mesh.Surface, error) {
	if s.Empty() {
		return nil, errors.Wrap(mesh.ErrInvalidInput, "empty surface")
	}
	if len(s.Normals) != len(s.Points) {
		return nil, errors.Wrapf(mesh.ErrInvalidInput, "surface has %d normals for %d points", len(s.Normals), len(s.Points))
	}
	if !(thickness > 0) {
		return nil, errors.Wrapf(mesh.ErrInvalidInput, "thickness %g must be positive", thickness)
	}
	n := len(s.Points)
	half := thickness / 2
	boundary := s.BoundaryEdges()
	thick := &mesh.Surface{
		Points:    make([]r3.Vec, 2*n),
		Triangles: make([][3]int, 0, 2*len(s.Triangles)+2*len(boundary)),
	}
	for i, p := range s.Points {
		offset := r3.Scale(half, s.Normals[i])
		thick.Points[i] = r3.Add(p, offset)
		thick.Points[n+i] = r3.Sub(p, offset)
	}
	thick.Triangles = append(thick.Triangles, s.Triangles...)
	for _, t := range s.Triangles {
		thick.Triangles = append(thick.Triangles, [3]int{t[0] + n, t[2] + n, t[1] + n})
	}
	// Walls run against the front winding of each boundary edge a->b.
	for _, e := range boundary {
		a, b := e[0], e[1]
		thick.Triangles = append(thick.Triangles,
			[3]int{b, a, a + n},
			[3]int{b, a + n, b + n},
		)
	}
	thick.ComputeNormals()
	return thick, nil
}
