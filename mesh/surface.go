// Package mesh implements the indexed triangle surface shared by every stage
// of the orifice pipeline together with the topology and clipping utilities
// the stages are built from.
package mesh

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/soypat/orifice/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrInvalidInput is returned for meshes that cannot be processed, such
	// as meshes without points or triangles.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDegenerateMesh is returned when a mesh collapses to one point or less.
	ErrDegenerateMesh = errors.New("mesh became empty")
)

// Surface is an indexed triangle mesh. Triangles hold indices into Points.
// Normals, when non-nil, holds one unit normal per point.
//
// A stage owns the Surface it returns. Functions that modify a Surface
// in place say so; everything else allocates.
type Surface struct {
	Points    []r3.Vec
	Triangles [][3]int
	Normals   []r3.Vec
}

// Validate checks the triangle indices are valid point indices and that
// Normals, if present, matches Points in length.
func (s *Surface) Validate() error {
	if s == nil {
		return errors.Wrap(ErrInvalidInput, "nil surface")
	}
	n := len(s.Points)
	for i, tri := range s.Triangles {
		for _, v := range tri {
			if v < 0 || v >= n {
				return errors.Wrapf(ErrInvalidInput, "triangle %d references point %d of %d", i, v, n)
			}
		}
	}
	if s.Normals != nil && len(s.Normals) != n {
		return errors.Wrapf(ErrInvalidInput, "%d normals for %d points", len(s.Normals), n)
	}
	return nil
}

// Empty returns true if the surface has no points or no triangles.
func (s *Surface) Empty() bool {
	return s == nil || len(s.Points) == 0 || len(s.Triangles) == 0
}

// Clone returns a deep copy of s.
func (s *Surface) Clone() *Surface {
	c := &Surface{
		Points:    append([]r3.Vec(nil), s.Points...),
		Triangles: append([][3]int(nil), s.Triangles...),
	}
	if s.Normals != nil {
		c.Normals = append([]r3.Vec(nil), s.Normals...)
	}
	return c
}

func (s *Surface) String() string {
	return fmt.Sprintf("surface(%d points, %d triangles)", len(s.Points), len(s.Triangles))
}

// Triangle returns the geometry of the ith triangle.
func (s *Surface) Triangle(i int) r3.Triangle {
	t := s.Triangles[i]
	return r3.Triangle{s.Points[t[0]], s.Points[t[1]], s.Points[t[2]]}
}

// TriangleArea returns the area of the ith triangle.
func (s *Surface) TriangleArea(i int) float64 {
	t := s.Triangles[i]
	return d3.TriangleArea(s.Points[t[0]], s.Points[t[1]], s.Points[t[2]])
}

// Area returns the total surface area.
func (s *Surface) Area() float64 {
	var area float64
	for i := range s.Triangles {
		area += s.TriangleArea(i)
	}
	return area
}

// Bounds returns the bounding box of all points.
func (s *Surface) Bounds() d3.Box {
	return d3.Set(s.Points).Bounds()
}

// ComputeNormals sets s.Normals in place to the area weighted average of
// the normals of the triangles incident to each point. Points not used by
// any triangle or surrounded by degenerate triangles get a zero normal.
func (s *Surface) ComputeNormals() {
	normals := make([]r3.Vec, len(s.Points))
	for _, t := range s.Triangles {
		n := d3.TriangleNormal(s.Points[t[0]], s.Points[t[1]], s.Points[t[2]])
		for _, v := range t {
			normals[v] = r3.Add(normals[v], n)
		}
	}
	for i, n := range normals {
		if norm := r3.Norm(n); norm > 0 {
			normals[i] = r3.Scale(1/norm, n)
		}
	}
	s.Normals = normals
}

// FaceNormal returns the unit normal of the ith triangle.
func (s *Surface) FaceNormal(i int) r3.Vec {
	t := s.Triangles[i]
	n := d3.TriangleNormal(s.Points[t[0]], s.Points[t[1]], s.Points[t[2]])
	if norm := r3.Norm(n); norm > 0 {
		return r3.Scale(1/norm, n)
	}
	return r3.Vec{}
}

// Edge is an undirected edge stored with its lower index first.
type Edge [2]int

// MakeEdge returns the undirected edge joining a and b.
func MakeEdge(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{a, b}
}

// EdgeFaces maps every undirected edge to the triangles using it.
func (s *Surface) EdgeFaces() map[Edge][]int {
	ef := make(map[Edge][]int, 3*len(s.Triangles)/2)
	for i, t := range s.Triangles {
		for j := 0; j < 3; j++ {
			e := MakeEdge(t[j], t[(j+1)%3])
			ef[e] = append(ef[e], i)
		}
	}
	return ef
}

// Edges returns all undirected edges sorted lexicographically.
func (s *Surface) Edges() []Edge {
	ef := s.EdgeFaces()
	edges := make([]Edge, 0, len(ef))
	for e := range ef {
		edges = append(edges, e)
	}
	sortEdges(edges)
	return edges
}

// BoundaryEdges returns the edges used by exactly one triangle, directed
// as they appear in that triangle's winding. The result is sorted.
func (s *Surface) BoundaryEdges() [][2]int {
	ef := s.EdgeFaces()
	var boundary [][2]int
	for _, t := range s.Triangles {
		for j := 0; j < 3; j++ {
			a, b := t[j], t[(j+1)%3]
			if len(ef[MakeEdge(a, b)]) == 1 {
				boundary = append(boundary, [2]int{a, b})
			}
		}
	}
	sort.Slice(boundary, func(i, j int) bool {
		if boundary[i][0] != boundary[j][0] {
			return boundary[i][0] < boundary[j][0]
		}
		return boundary[i][1] < boundary[j][1]
	})
	return boundary
}

// BoundaryPoints flags the points lying on a boundary edge.
func (s *Surface) BoundaryPoints() []bool {
	onBoundary := make([]bool, len(s.Points))
	for _, e := range s.BoundaryEdges() {
		onBoundary[e[0]] = true
		onBoundary[e[1]] = true
	}
	return onBoundary
}

// Neighbors returns for every point the sorted list of points sharing an
// edge with it.
func (s *Surface) Neighbors() [][]int {
	nb := make([][]int, len(s.Points))
	for _, e := range s.Edges() {
		nb[e[0]] = append(nb[e[0]], e[1])
		nb[e[1]] = append(nb[e[1]], e[0])
	}
	for i := range nb {
		sort.Ints(nb[i])
	}
	return nb
}

// PointFaces returns for every point the ascending list of triangles using it.
func (s *Surface) PointFaces() [][]int {
	pf := make([][]int, len(s.Points))
	for i, t := range s.Triangles {
		for _, v := range t {
			pf[v] = append(pf[v], i)
		}
	}
	return pf
}

// Subset returns a new compact surface built from the listed triangles.
// Point order follows first use. Normals are carried over when present.
func (s *Surface) Subset(triangles []int) *Surface {
	remap := make(map[int]int)
	sub := &Surface{Triangles: make([][3]int, 0, len(triangles))}
	for _, ti := range triangles {
		var nt [3]int
		for j, v := range s.Triangles[ti] {
			nv, ok := remap[v]
			if !ok {
				nv = len(sub.Points)
				remap[v] = nv
				sub.Points = append(sub.Points, s.Points[v])
				if s.Normals != nil {
					sub.Normals = append(sub.Normals, s.Normals[v])
				}
			}
			nt[j] = nv
		}
		sub.Triangles = append(sub.Triangles, nt)
	}
	return sub
}

// Compact returns a copy of s without unused points and triangles that
// reference the same point twice. The second return value maps old point
// indices to new ones, -1 for removed points.
func (s *Surface) Compact() (*Surface, []int) {
	remap := make([]int, len(s.Points))
	for i := range remap {
		remap[i] = -1
	}
	c := &Surface{}
	for _, t := range s.Triangles {
		if t[0] == t[1] || t[1] == t[2] || t[2] == t[0] {
			continue
		}
		var nt [3]int
		for j, v := range t {
			if remap[v] < 0 {
				remap[v] = len(c.Points)
				c.Points = append(c.Points, s.Points[v])
				if s.Normals != nil {
					c.Normals = append(c.Normals, s.Normals[v])
				}
			}
			nt[j] = remap[v]
		}
		c.Triangles = append(c.Triangles, nt)
	}
	return c, remap
}

// Append merges o into s in place. o's normals are appended only if both
// surfaces have normals, otherwise s.Normals is cleared.
func (s *Surface) Append(o *Surface) {
	offset := len(s.Points)
	if s.Normals != nil && o.Normals != nil {
		s.Normals = append(s.Normals, o.Normals...)
	} else {
		s.Normals = nil
	}
	s.Points = append(s.Points, o.Points...)
	for _, t := range o.Triangles {
		s.Triangles = append(s.Triangles, [3]int{t[0] + offset, t[1] + offset, t[2] + offset})
	}
}

// AreaCentroid returns the area weighted centroid of the surface.
func (s *Surface) AreaCentroid() r3.Vec {
	var sum r3.Vec
	var area float64
	for i, t := range s.Triangles {
		a := s.TriangleArea(i)
		sum = r3.Add(sum, r3.Scale(a, d3.Centroid(s.Points[t[0]], s.Points[t[1]], s.Points[t[2]])))
		area += a
	}
	if area == 0 {
		return d3.Set(s.Points).Mean()
	}
	return r3.Scale(1/area, sum)
}

// MeanEdgeLength returns the average length of the surface's edges.
func (s *Surface) MeanEdgeLength() float64 {
	edges := s.Edges()
	if len(edges) == 0 {
		return 0
	}
	var sum float64
	for _, e := range edges {
		sum += r3.Norm(r3.Sub(s.Points[e[0]], s.Points[e[1]]))
	}
	return sum / float64(len(edges))
}

// CheckFinite returns an error if any point coordinate is NaN or infinite.
func (s *Surface) CheckFinite() error {
	for i, p := range s.Points {
		if !d3.IsFinite(p) {
			return errors.Wrapf(ErrInvalidInput, "point %d is not finite: %v", i, p)
		}
	}
	return nil
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
}
