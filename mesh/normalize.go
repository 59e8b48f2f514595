package mesh

import (
	"math"

	"github.com/pkg/errors"
	"github.com/soypat/orifice/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Unstructured is a mixed cell mesh as produced by FEM or volumetric tools.
// Cells index into Points.
type Unstructured struct {
	Points    []r3.Vec
	Lines     [][2]int
	Triangles [][3]int
	Quads     [][4]int
	Tetras    [][4]int
	// Normals, if set, holds one normal per point and is kept when
	// normalization does not change the triangle topology.
	Normals []r3.Vec
}

// Normalize turns an unstructured mesh into a triangle surface with per
// point normals. Tetrahedral meshes without surface cells are reduced to
// their outward facing boundary, quads are split in two triangles and line
// cells are dropped. Points no triangle uses are removed.
func Normalize(u Unstructured) (*Surface, error) {
	n := len(u.Points)
	check := func(kind string, cell []int) error {
		for _, v := range cell {
			if v < 0 || v >= n {
				return errors.Wrapf(ErrInvalidInput, "%s references point %d of %d", kind, v, n)
			}
		}
		return nil
	}
	s := &Surface{Points: u.Points}
	topologyChanged := len(u.Lines) > 0 || len(u.Quads) > 0
	for _, t := range u.Triangles {
		if err := check("triangle", t[:]); err != nil {
			return nil, err
		}
		s.Triangles = append(s.Triangles, t)
	}
	for _, q := range u.Quads {
		if err := check("quad", q[:]); err != nil {
			return nil, err
		}
		s.Triangles = append(s.Triangles, [3]int{q[0], q[1], q[2]}, [3]int{q[0], q[2], q[3]})
	}
	if len(s.Triangles) == 0 && len(u.Tetras) > 0 {
		for _, tet := range u.Tetras {
			if err := check("tetrahedron", tet[:]); err != nil {
				return nil, err
			}
		}
		s.Triangles = tetraBoundary(u.Points, u.Tetras)
		topologyChanged = true
	}
	if len(s.Points) == 0 || len(s.Triangles) == 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "mesh has %d points and %d surface cells", len(s.Points), len(s.Triangles))
	}
	if u.Normals != nil && !topologyChanged {
		if len(u.Normals) != n {
			return nil, errors.Wrapf(ErrInvalidInput, "%d normals for %d points", len(u.Normals), n)
		}
		s.Normals = u.Normals
	}
	s, _ = s.Compact()
	if len(s.Triangles) == 0 {
		return nil, errors.Wrap(ErrInvalidInput, "all triangles are degenerate")
	}
	if err := s.CheckFinite(); err != nil {
		return nil, err
	}
	if s.Normals == nil {
		s.OrientConsistently()
		s.ComputeNormals()
	}
	return s, nil
}

// WithNormals returns a copy of s with freshly computed point normals.
func (s *Surface) WithNormals() *Surface {
	c := s.Clone()
	c.ComputeNormals()
	return c
}

// tetraBoundary returns the faces used by exactly one tetrahedron oriented
// so their normal points away from the tetrahedron owning them.
func tetraBoundary(pts []r3.Vec, tetras [][4]int) [][3]int {
	type face struct {
		tri   [3]int
		count int
	}
	faces := make(map[[3]int]int)
	var list []face
	for _, tet := range tetras {
		for k := 0; k < 4; k++ {
			opposite := tet[k]
			tri := [3]int{tet[(k+1)%4], tet[(k+2)%4], tet[(k+3)%4]}
			a, b, c := pts[tri[0]], pts[tri[1]], pts[tri[2]]
			if r3.Dot(d3.TriangleNormal(a, b, c), r3.Sub(pts[opposite], a)) > 0 {
				tri[1], tri[2] = tri[2], tri[1]
			}
			key := sortedTriple(tri)
			if i, ok := faces[key]; ok {
				list[i].count++
				continue
			}
			faces[key] = len(list)
			list = append(list, face{tri: tri, count: 1})
		}
	}
	var boundary [][3]int
	for _, f := range list {
		if f.count == 1 {
			boundary = append(boundary, f.tri)
		}
	}
	return boundary
}

func sortedTriple(t [3]int) [3]int {
	if t[0] > t[1] {
		t[0], t[1] = t[1], t[0]
	}
	if t[1] > t[2] {
		t[1], t[2] = t[2], t[1]
	}
	if t[0] > t[1] {
		t[0], t[1] = t[1], t[0]
	}
	return t
}

// OrientConsistently flips triangles in place so that neighbouring triangles
// traverse their shared edge in opposite directions. The first triangle of
// every connected patch keeps its winding. Non-manifold edges are ignored.
func (s *Surface) OrientConsistently() {
	ef := s.EdgeFaces()
	visited := make([]bool, len(s.Triangles))
	var queue []int
	for seed := range s.Triangles {
		if visited[seed] {
			continue
		}
		visited[seed] = true
		queue = append(queue[:0], seed)
		for len(queue) > 0 {
			ti := queue[0]
			queue = queue[1:]
			t := s.Triangles[ti]
			for j := 0; j < 3; j++ {
				a, b := t[j], t[(j+1)%3]
				faces := ef[MakeEdge(a, b)]
				if len(faces) != 2 {
					continue
				}
				nb := faces[0]
				if nb == ti {
					nb = faces[1]
				}
				if visited[nb] {
					continue
				}
				visited[nb] = true
				if hasDirectedEdge(s.Triangles[nb], a, b) {
					s.Triangles[nb][1], s.Triangles[nb][2] = s.Triangles[nb][2], s.Triangles[nb][1]
				}
				queue = append(queue, nb)
			}
		}
	}
}

func hasDirectedEdge(t [3]int, a, b int) bool {
	for j := 0; j < 3; j++ {
		if t[j] == a && t[(j+1)%3] == b {
			return true
		}
	}
	return false
}

// FromTriangles welds a triangle soup into an indexed surface. Vertices
// closer than tol snap to the same point. A zero tol picks a tolerance
// from the shortest triangle edge.
func FromTriangles(triangles []r3.Triangle, tol float64) (*Surface, error) {
	if len(triangles) == 0 {
		return nil, errors.Wrap(ErrInvalidInput, "no triangles")
	}
	bb := d3.EmptyBox()
	minDist2 := math.MaxFloat64
	maxDist2 := 0.0
	for _, tri := range triangles {
		for j, vert := range tri {
			if !d3.IsFinite(vert) {
				return nil, errors.Wrapf(ErrInvalidInput, "vertex %v is not finite", vert)
			}
			bb = bb.Include(vert)
			side2 := r3.Norm2(r3.Sub(tri[(j+1)%3], vert))
			if side2 > 0 {
				minDist2 = math.Min(minDist2, side2)
			}
			maxDist2 = math.Max(maxDist2, side2)
		}
	}
	if maxDist2 == 0 {
		return nil, errors.Wrap(ErrInvalidInput, "all triangles are degenerate")
	}
	suggested := math.Sqrt(minDist2) / 256
	if tol > math.Sqrt(maxDist2)/2 {
		return nil, errors.Errorf("vertex tolerance %g too large, suggested tolerance: %g", tol, suggested)
	}
	if tol <= 0 {
		tol = suggested
	}
	if d3.Max(bb.Size())/tol > math.MaxInt64/2 {
		return nil, errors.New("tolerance too small, overflowed int64")
	}
	// Vertex index cache keyed by position in tolerance space.
	cache := make(map[[3]int64]int)
	ri := 1 / tol
	s := &Surface{Triangles: make([][3]int, 0, len(triangles))}
	for _, tri := range triangles {
		var t [3]int
		for j, vert := range tri {
			v := r3.Scale(ri, r3.Sub(vert, bb.Min))
			key := [3]int64{int64(math.Round(v.X)), int64(math.Round(v.Y)), int64(math.Round(v.Z))}
			idx, ok := cache[key]
			if !ok {
				idx = len(s.Points)
				cache[key] = idx
				s.Points = append(s.Points, vert)
			}
			t[j] = idx
		}
		if t[0] == t[1] || t[1] == t[2] || t[2] == t[0] {
			continue
		}
		s.Triangles = append(s.Triangles, t)
	}
	if len(s.Triangles) == 0 {
		return nil, errors.Wrap(ErrInvalidInput, "all triangles collapsed when welding")
	}
	s, _ = s.Compact()
	s.ComputeNormals()
	return s, nil
}

// Soup returns the triangles of the surface as independent geometry.
func (s *Surface) Soup() []r3.Triangle {
	soup := make([]r3.Triangle, len(s.Triangles))
	for i := range s.Triangles {
		soup[i] = s.Triangle(i)
	}
	return soup
}
