package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Grid returns a flat rectangle in the XY plane centered at the origin,
// divided in nx by ny cells of two triangles each. Its normals point +Z.
func Grid(width, height float64, nx, ny int) *Surface {
	if nx < 1 {
		nx = 1
	}
	if ny < 1 {
		ny = 1
	}
	s := &Surface{
		Points:    make([]r3.Vec, 0, (nx+1)*(ny+1)),
		Triangles: make([][3]int, 0, 2*nx*ny),
	}
	for j := 0; j <= ny; j++ {
		y := height * (float64(j)/float64(ny) - 0.5)
		for i := 0; i <= nx; i++ {
			x := width * (float64(i)/float64(nx) - 0.5)
			s.Points = append(s.Points, r3.Vec{X: x, Y: y})
		}
	}
	idx := func(i, j int) int { return j*(nx+1) + i }
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			a, b, c, d := idx(i, j), idx(i+1, j), idx(i+1, j+1), idx(i, j+1)
			s.Triangles = append(s.Triangles, [3]int{a, b, c}, [3]int{a, c, d})
		}
	}
	s.ComputeNormals()
	return s
}

// CutCircle returns the part of s whose XY projection lies inside (or
// outside when inside is false) the circle of the given center and radius.
// The cut follows the circle up to the resolution of s.
func CutCircle(s *Surface, center r3.Vec, radius float64, inside bool) *Surface {
	dist := make([]float64, len(s.Points))
	for i, p := range s.Points {
		dist[i] = math.Hypot(p.X-center.X, p.Y-center.Y)
	}
	c := Clip(s, dist, radius, !inside).Surface
	c.ComputeNormals()
	return c
}
