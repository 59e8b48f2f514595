package shrinkwrap

import (
	"errors"
	"math"
	"testing"

	"github.com/soypat/orifice/field"
	"github.com/soypat/orifice/internal/d3"
	"github.com/soypat/orifice/mesh"
	"github.com/soypat/orifice/shell"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

type zeroField struct{}

func (zeroField) Probe(r3.Vec) r3.Vec { return r3.Vec{} }

func circle(n int, radius, z float64) []r3.Vec {
	pts := make([]r3.Vec, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = r3.Vec{X: radius * math.Cos(a), Y: radius * math.Sin(a), Z: z}
	}
	return pts
}

func polygonArea(n int, radius float64) float64 {
	return 0.5 * float64(n) * radius * radius * math.Sin(2*math.Pi/float64(n))
}

func TestEarClip(t *testing.T) {
	for _, test := range []struct {
		name string
		poly []r2.Vec
		area float64
	}{
		{"square", []r2.Vec{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}, 1},
		{"L", []r2.Vec{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 2}, {X: 0, Y: 2}}, 3},
		{"comb", []r2.Vec{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 5, Y: 3}, {X: 4, Y: 3}, {X: 4, Y: 1}, {X: 3, Y: 1}, {X: 3, Y: 3}, {X: 2, Y: 3}, {X: 2, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 3}, {X: 0, Y: 3}}, 11},
	} {
		tris := earClip(test.poly)
		if len(tris) != len(test.poly)-2 {
			t.Errorf("%s: got %d triangles, want %d", test.name, len(tris), len(test.poly)-2)
		}
		var sum float64
		for _, tri := range tris {
			a := cross2(test.poly[tri[0]], test.poly[tri[1]], test.poly[tri[2]]) / 2
			if a <= 0 {
				t.Errorf("%s: triangle %v is not counter clockwise", test.name, tri)
			}
			sum += a
		}
		if math.Abs(sum-test.area) > 1e-12 {
			t.Errorf("%s: area %g, want %g", test.name, sum, test.area)
		}
	}
}

func TestInitialCap(t *testing.T) {
	curve := circle(32, 10, 2)
	// A repeated closing point is dropped.
	curve = append(curve, curve[0])
	m, err := initialCap(curve)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.pts) != 32 || len(m.tris) != 30 {
		t.Fatalf("cap has %d points and %d triangles", len(m.pts), len(m.tris))
	}
	s := m.surface()
	if got, want := s.Area(), polygonArea(32, 10); math.Abs(got-want) > 1e-9*want {
		t.Errorf("cap area %g, want %g", got, want)
	}
	for i := range s.Triangles {
		if n := s.FaceNormal(i); n.Z < 1-1e-9 {
			t.Errorf("triangle %d normal %v, want +Z", i, n)
		}
	}
}

func TestRemeshSquare(t *testing.T) {
	curve := []r3.Vec{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	m, err := initialCap(curve)
	if err != nil {
		t.Fatal(err)
	}
	m.remesh(1, 5)
	s := m.surface()
	if got := s.Area(); math.Abs(got-100) > 0.5 {
		t.Errorf("area %g, want 100", got)
	}
	ef := s.EdgeFaces()
	if v, e, f := len(s.Points), len(ef), len(s.Triangles); v-e+f != 1 {
		t.Errorf("euler characteristic %d, want 1 for a disk", v-e+f)
	}
	for edge, faces := range ef {
		if len(faces) > 2 {
			t.Fatalf("edge %v is non manifold", edge)
		}
		if len(faces) == 1 && !(m.pinned[edge[0]] && m.pinned[edge[1]]) {
			t.Errorf("boundary edge %v has free points", edge)
		}
	}
	for i := range s.Triangles {
		if n := s.FaceNormal(i); n.Z <= 0 {
			t.Fatalf("triangle %d flipped: normal %v", i, n)
		}
	}
	for i, p := range s.Points {
		if p.Z != 0 || p.X < 0 || p.X > 10 || p.Y < 0 || p.Y > 10 {
			t.Fatalf("point %d at %v left the square", i, p)
		}
	}
	if l := s.MeanEdgeLength(); l < 0.6 || l > 1.5 {
		t.Errorf("mean edge length %g, want about 1", l)
	}
}

type constField r3.Vec

func (f constField) Probe(r3.Vec) r3.Vec { return r3.Vec(f) }

// fan returns a membrane over a regular polygon triangulated as a fan
// around its first point.
func fan(n int, radius float64) *membrane {
	m := &membrane{pts: circle(n, radius, 0), pinned: make([]bool, n)}
	for i := range m.pinned {
		m.pinned[i] = true
	}
	for i := 1; i < n-1; i++ {
		m.tris = append(m.tris, [3]int{0, i, i + 1})
	}
	return m
}

func checkDisk(t *testing.T, m *membrane, area float64) {
	t.Helper()
	s := m.surface()
	if err := s.Validate(); err != nil {
		t.Fatal(err)
	}
	ef := s.EdgeFaces()
	for edge, faces := range ef {
		if len(faces) > 2 {
			t.Fatalf("edge %v is non manifold", edge)
		}
	}
	if v, e, f := len(s.Points), len(ef), len(s.Triangles); v-e+f != 1 {
		t.Errorf("euler characteristic %d, want 1 for a disk", v-e+f)
	}
	for i := range s.Triangles {
		if n := s.FaceNormal(i); n.Z <= 0 {
			t.Fatalf("triangle %d flipped: normal %v", i, n)
		}
	}
	if got := s.Area(); math.Abs(got-area) > 1e-9*area {
		t.Errorf("area %g, want %g", got, area)
	}
}

func TestFlipValenceDenseCap(t *testing.T) {
	const n, radius = 96, 10.0
	m := fan(n, radius)
	if splits := m.splitLong(1.5); splits == 0 {
		t.Fatal("no edge split")
	}
	total := 0
	for pass := 0; pass < 10; pass++ {
		flips := m.flipValence()
		if flips == 0 {
			break
		}
		total += flips
		checkDisk(t, m, polygonArea(n, radius))
	}
	if total == 0 {
		t.Error("no edge flipped")
	}

	m = fan(n, radius)
	m.remesh(m.targetLength(400), capRounds)
	s := m.surface()
	if got, want := s.Area(), polygonArea(n, radius); math.Abs(got-want) > 0.01*want {
		t.Errorf("remeshed area %g, want %g", got, want)
	}
}

func TestAdvance(t *testing.T) {
	m := &membrane{
		pts:    []r3.Vec{{X: -1, Y: -1}, {X: 1, Y: -1}, {X: 1, Y: 1}, {X: -1, Y: 1}, {}},
		tris:   [][3]int{{0, 1, 4}, {1, 2, 4}, {2, 3, 4}, {3, 0, 4}},
		pinned: []bool{true, true, true, true, false},
	}
	if moved := m.advance(constField{X: 1, Z: 1}, 0.5); moved != 1 {
		t.Errorf("moved %d points, want 1", moved)
	}
	if want := (r3.Vec{X: -0.5, Z: -0.5}); !d3.EqualWithin(m.pts[4], want, 1e-15) {
		t.Errorf("free point at %v, want %v", m.pts[4], want)
	}
	if m.pts[0] != (r3.Vec{X: -1, Y: -1}) {
		t.Errorf("pinned point moved to %v", m.pts[0])
	}
	if moved := m.advance(zeroField{}, 0.5); moved != 0 {
		t.Errorf("zero gradient moved %d points", moved)
	}
}

func TestSolveFlat(t *testing.T) {
	curve := circle(48, 10, 2)
	for _, iterations := range []int{0, 5} {
		p := DefaultParams()
		p.Iterations = iterations
		p.Vertices, p.CooldownVertices = 200, 300
		s, err := Solve(curve, zeroField{}, p)
		if err != nil {
			t.Fatal(err)
		}
		if len(s.Points) < 100 {
			t.Errorf("%d iterations: only %d points", iterations, len(s.Points))
		}
		want := polygonArea(48, 10)
		if got := s.Area(); math.Abs(got-want) > 0.01*want {
			t.Errorf("%d iterations: area %g, want %g", iterations, got, want)
		}
		for i, pt := range s.Points {
			if math.Abs(pt.Z-2) > 1e-9 {
				t.Fatalf("%d iterations: point %d at %v left the plane", iterations, i, pt)
			}
		}
		// Curve points are pinned.
		have := make(map[r3.Vec]bool, len(s.Points))
		for _, pt := range s.Points {
			have[pt] = true
		}
		for _, c := range curve {
			if !have[c] {
				t.Fatalf("%d iterations: curve point %v missing", iterations, c)
			}
		}
	}
}

func TestSolveBowl(t *testing.T) {
	const radius = 20.0
	bowlZ := func(p r3.Vec) float64 { return 0.01 * (p.X*p.X + p.Y*p.Y) }
	bowl := mesh.CutCircle(mesh.Grid(44, 44, 44, 44), r3.Vec{}, radius, true)
	for i, p := range bowl.Points {
		bowl.Points[i].Z = bowlZ(p)
	}
	bowl.ComputeNormals()
	thick, err := shell.Build(bowl, 1)
	if err != nil {
		t.Fatal(err)
	}
	f, err := field.Build(thick, 64)
	if err != nil {
		t.Fatal(err)
	}
	p := DefaultParams()
	p.Iterations = 20
	p.Vertices, p.CooldownVertices = 300, 500
	s, err := Solve(circle(64, radius, 0.01*radius*radius), f, p)
	if err != nil {
		t.Fatal(err)
	}
	var gap, height float64
	for _, pt := range s.Points {
		if !(math.Abs(pt.X)+math.Abs(pt.Y)+math.Abs(pt.Z) < math.Inf(1)) {
			t.Fatalf("non finite point %v", pt)
		}
		gap += math.Abs(pt.Z - bowlZ(pt))
		height += pt.Z
	}
	n := float64(len(s.Points))
	if gap/n > 1.25 {
		t.Errorf("mean gap to bowl %g", gap/n)
	}
	if height/n > 3 {
		t.Errorf("mean height %g, membrane did not shrink", height/n)
	}
}

func TestSolveErrors(t *testing.T) {
	negative := DefaultParams()
	negative.Iterations = -1
	badStep := DefaultParams()
	badStep.Step = math.NaN()
	for _, test := range []struct {
		name  string
		curve []r3.Vec
		f     Gradienter
		p     Params
	}{
		{"no curve", nil, zeroField{}, DefaultParams()},
		{"two points", []r3.Vec{{}, {X: 1}}, zeroField{}, DefaultParams()},
		{"collinear", []r3.Vec{{}, {X: 1}, {X: 2}, {X: 3}}, zeroField{}, DefaultParams()},
		{"nan", []r3.Vec{{}, {X: 1}, {Y: math.NaN()}}, zeroField{}, DefaultParams()},
		{"nil field", circle(8, 1, 0), nil, DefaultParams()},
		{"negative iterations", circle(8, 1, 0), zeroField{}, negative},
		{"nan step", circle(8, 1, 0), zeroField{}, badStep},
	} {
		if _, err := Solve(test.curve, test.f, test.p); !errors.Is(err, mesh.ErrInvalidInput) {
			t.Errorf("%s: got %v, want ErrInvalidInput", test.name, err)
		}
	}
}
