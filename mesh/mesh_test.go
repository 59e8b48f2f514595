package mesh

import (
	"errors"
	"math"
	"testing"

	"github.com/soypat/orifice/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestGridArea(t *testing.T) {
	s := Grid(4, 2, 8, 4)
	if err := s.Validate(); err != nil {
		t.Fatal(err)
	}
	if got := s.Area(); math.Abs(got-8) > 1e-12 {
		t.Errorf("grid area %g, want 8", got)
	}
	for i, n := range s.Normals {
		if math.Abs(n.Z-1) > 1e-12 {
			t.Fatalf("normal %d = %v, want +Z", i, n)
		}
	}
	if got := len(s.BoundaryEdges()); got != 2*(8+4) {
		t.Errorf("got %d boundary edges, want %d", got, 2*(8+4))
	}
}

func TestNormalizeQuadsAndLines(t *testing.T) {
	u := Unstructured{
		Points: []r3.Vec{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}, {X: 5, Y: 5, Z: 5}},
		Quads:  [][4]int{{0, 1, 2, 3}},
		Lines:  [][2]int{{3, 4}},
	}
	s, err := Normalize(u)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Points) != 4 || len(s.Triangles) != 2 {
		t.Fatalf("got %v, want 4 points and 2 triangles", s)
	}
	if math.Abs(s.Area()-1) > 1e-12 {
		t.Errorf("area %g, want 1", s.Area())
	}
	if len(s.Normals) != 4 || math.Abs(s.Normals[0].Z-1) > 1e-12 {
		t.Errorf("bad normals %v", s.Normals)
	}
}

func TestNormalizeTetrahedra(t *testing.T) {
	// Unit cube split in 6 tetrahedra around the main diagonal.
	var pts []r3.Vec
	for i := 0; i < 8; i++ {
		pts = append(pts, r3.Vec{X: float64(i & 1), Y: float64(i >> 1 & 1), Z: float64(i >> 2 & 1)})
	}
	tets := [][4]int{
		{0, 1, 3, 7}, {0, 3, 2, 7}, {0, 2, 6, 7},
		{0, 6, 4, 7}, {0, 4, 5, 7}, {0, 5, 1, 7},
	}
	s, err := Normalize(Unstructured{Points: pts, Tetras: tets})
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Triangles) != 12 {
		t.Fatalf("got %d boundary triangles, want 12", len(s.Triangles))
	}
	if math.Abs(s.Area()-6) > 1e-12 {
		t.Errorf("area %g, want 6", s.Area())
	}
	if len(s.BoundaryEdges()) != 0 {
		t.Error("cube boundary should be closed")
	}
	center := r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}
	for i := range s.Triangles {
		tri := s.Triangle(i)
		c := d3.Centroid(tri[0], tri[1], tri[2])
		if r3.Dot(s.FaceNormal(i), r3.Sub(c, center)) <= 0 {
			t.Errorf("triangle %d points inward", i)
		}
	}
}

func TestNormalizeErrors(t *testing.T) {
	for name, u := range map[string]Unstructured{
		"empty":     {},
		"no cells":  {Points: []r3.Vec{{}, {X: 1}}},
		"only line": {Points: []r3.Vec{{}, {X: 1}}, Lines: [][2]int{{0, 1}}},
		"bad index": {Points: []r3.Vec{{}, {X: 1}}, Triangles: [][3]int{{0, 1, 2}}},
	} {
		_, err := Normalize(u)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: got %v, want ErrInvalidInput", name, err)
		}
	}
}

func TestOrientConsistently(t *testing.T) {
	s := Grid(2, 2, 2, 2)
	for i := range s.Triangles {
		if i%3 == 1 {
			s.Triangles[i][1], s.Triangles[i][2] = s.Triangles[i][2], s.Triangles[i][1]
		}
	}
	s.OrientConsistently()
	s.ComputeNormals()
	for i := range s.Triangles {
		if s.FaceNormal(i).Z < 0.99 {
			t.Errorf("triangle %d not reoriented: %v", i, s.FaceNormal(i))
		}
	}
}

func TestFromTriangles(t *testing.T) {
	g := Grid(3, 3, 3, 3)
	s, err := FromTriangles(g.Soup(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Points) != len(g.Points) || len(s.Triangles) != len(g.Triangles) {
		t.Errorf("welded to %v, want %v", s, g)
	}
	if _, err := FromTriangles(nil, 0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty soup: got %v", err)
	}
}

func TestClip(t *testing.T) {
	g := Grid(2, 2, 10, 10)
	x := make([]float64, len(g.Points))
	for i, p := range g.Points {
		x[i] = p.X
	}
	for _, test := range []struct {
		iso   float64
		above bool
		area  float64
	}{
		{iso: 0.25, above: true, area: 2 * 0.75},
		{iso: 0.25, above: false, area: 2 * 1.25},
		{iso: -0.53, above: true, area: 2 * 1.53},
		{iso: 5, above: true, area: 0},
	} {
		c := Clip(g, x, test.iso, test.above)
		if err := c.Surface.Validate(); err != nil {
			t.Fatal(err)
		}
		if got := c.Surface.Area(); math.Abs(got-test.area) > 1e-9 {
			t.Errorf("clip x>%v=%v: area %g, want %g", test.iso, test.above, got, test.area)
		}
		xs := c.Interpolate(x)
		for i, p := range c.Surface.Points {
			if math.Abs(xs[i]-p.X) > 1e-12 {
				t.Fatalf("interpolated attribute %g does not match position %g", xs[i], p.X)
			}
		}
	}
}

func TestCutCircleAndComponents(t *testing.T) {
	g := Grid(40, 20, 80, 40)
	s := CutCircle(g, r3.Vec{X: -10}, 5, true)
	s.Append(CutCircle(g, r3.Vec{X: 10}, 3, true))
	comps := Components(s)
	if len(comps) != 2 {
		t.Fatalf("got %d components, want 2", len(comps))
	}
	for i, want := range []float64{math.Pi * 25, math.Pi * 9} {
		got := comps[i].Area()
		if math.Abs(got-want)/want > 0.03 {
			t.Errorf("component %d area %g, want about %g", i, got, want)
		}
	}
	holed := CutCircle(g, r3.Vec{}, 5, false)
	if want := 800 - math.Pi*25; math.Abs(holed.Area()-want)/want > 0.01 {
		t.Errorf("holed plate area %g, want about %g", holed.Area(), want)
	}
	if n := len(Components(holed)); n != 1 {
		t.Errorf("holed plate has %d components", n)
	}
}

func TestBoundaryPointsOfAnnulus(t *testing.T) {
	g := Grid(20, 20, 40, 40)
	ring := CutCircle(CutCircle(g, r3.Vec{}, 8, true), r3.Vec{}, 4, false)
	onBoundary := ring.BoundaryPoints()
	var rim int
	for i, p := range ring.Points {
		r := math.Hypot(p.X, p.Y)
		isRim := math.Abs(r-8) < 0.05 || math.Abs(r-4) < 0.05
		if onBoundary[i] && !isRim {
			t.Errorf("point %v at radius %g flagged as boundary", p, r)
		}
		if onBoundary[i] {
			rim++
		}
	}
	if rim == 0 || rim == len(ring.Points) {
		t.Errorf("%d of %d points on boundary", rim, len(ring.Points))
	}
}
