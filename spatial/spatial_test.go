package spatial

import (
	"math"
	"testing"

	"github.com/soypat/orifice/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// bruteClosest returns the squared distance to the closest triangle by
// testing every triangle of s.
func bruteClosest(s *mesh.Surface, p r3.Vec) float64 {
	best := math.Inf(1)
	for _, t := range s.Triangles {
		c := closestOnTriangle(p, s.Points[t[0]], s.Points[t[1]], s.Points[t[2]])
		best = math.Min(best, r3.Norm2(r3.Sub(p, c)))
	}
	return best
}

func TestClosestOnTriangle(t *testing.T) {
	a, b, c := r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1}
	for _, test := range []struct {
		p, want r3.Vec
	}{
		{p: r3.Vec{X: 0.2, Y: 0.2, Z: 3}, want: r3.Vec{X: 0.2, Y: 0.2}},
		{p: r3.Vec{X: -1, Y: -1, Z: 0}, want: a},
		{p: r3.Vec{X: 2, Y: -0.5, Z: 1}, want: b},
		{p: r3.Vec{X: 1, Y: 1}, want: r3.Vec{X: 0.5, Y: 0.5}},
		{p: r3.Vec{X: 0.5, Y: -2, Z: -1}, want: r3.Vec{X: 0.5}},
		{p: r3.Vec{X: -3, Y: 0.25}, want: r3.Vec{Y: 0.25}},
	} {
		got := closestOnTriangle(test.p, a, b, c)
		if r3.Norm(r3.Sub(got, test.want)) > 1e-12 {
			t.Errorf("closest to %v: got %v, want %v", test.p, got, test.want)
		}
	}
	// Degenerate triangle must not produce NaN.
	got := closestOnTriangle(r3.Vec{X: 1, Y: 1}, a, a, a)
	if got != a {
		t.Errorf("degenerate triangle: got %v", got)
	}
}

func TestBIHClosestMatchesBruteForce(t *testing.T) {
	s := mesh.CutCircle(mesh.Grid(10, 10, 23, 17), r3.Vec{}, 2, false)
	// Bend the plate to make the query non trivial.
	for i, p := range s.Points {
		s.Points[i].Z = 0.1 * p.X * p.X
	}
	bih := NewBIH(s)
	if bih.Len() != len(s.Triangles) {
		t.Fatalf("BIH holds %d triangles, want %d", bih.Len(), len(s.Triangles))
	}
	for i := 0; i < 200; i++ {
		fi := float64(i)
		q := r3.Vec{X: 7 * math.Sin(fi*0.37), Y: 7 * math.Cos(fi*0.61), Z: 4 * math.Sin(fi*1.3)}
		got := bih.Closest(q)
		want := bruteClosest(s, q)
		if math.Abs(got.Dist2-want) > 1e-9 {
			t.Fatalf("query %v: got dist2 %g, want %g", q, got.Dist2, want)
		}
		tri := s.Triangles[got.Triangle]
		c := closestOnTriangle(q, s.Points[tri[0]], s.Points[tri[1]], s.Points[tri[2]])
		if r3.Norm(r3.Sub(c, got.Point)) > 1e-9 {
			t.Fatalf("query %v: triangle %d does not contain closest point", q, got.Triangle)
		}
	}
	if d := NewBIH(&mesh.Surface{}).Distance(r3.Vec{}); !math.IsInf(d, 1) {
		t.Errorf("empty BIH distance %g", d)
	}
}

func TestBIHRaycast(t *testing.T) {
	// Two parallel plates at z=0 and z=2 with a hole through both at the origin.
	bottom := mesh.CutCircle(mesh.Grid(10, 10, 20, 20), r3.Vec{}, 1.5, false)
	top := bottom.Clone()
	for i := range top.Points {
		top.Points[i].Z = 2
	}
	s := bottom.Clone()
	s.Append(top)
	bih := NewBIH(s)

	for _, test := range []struct {
		origin, dir r3.Vec
		hit         bool
		t           float64
	}{
		{origin: r3.Vec{X: 3.1, Y: 3.2, Z: 1}, dir: r3.Vec{Z: 1}, hit: true, t: 1},
		{origin: r3.Vec{X: 3.1, Y: 3.2, Z: 1}, dir: r3.Vec{Z: -1}, hit: true, t: 1},
		{origin: r3.Vec{X: 3.1, Y: 3.2, Z: 5}, dir: r3.Vec{Z: -1}, hit: true, t: 3},
		{origin: r3.Vec{Z: 1}, dir: r3.Vec{Z: 1}, hit: false},
		{origin: r3.Vec{Z: -5}, dir: r3.Vec{Z: 1}, hit: false},
		{origin: r3.Vec{X: 3.1, Y: 3.2, Z: 1}, dir: r3.Unit(r3.Vec{X: 1, Z: 1}), hit: true, t: math.Sqrt2},
		{origin: r3.Vec{X: 3.1, Y: 3.2, Z: 1}, dir: r3.Vec{X: 1}, hit: false},
	} {
		hit, ok := bih.Raycast(test.origin, test.dir, 1e-9, 100)
		if ok != test.hit {
			t.Errorf("ray %v %v: hit=%v, want %v", test.origin, test.dir, ok, test.hit)
			continue
		}
		if ok && math.Abs(hit.T-test.t) > 1e-9 {
			t.Errorf("ray %v %v: t=%g, want %g", test.origin, test.dir, hit.T, test.t)
		}
	}
	// Range limited ray stops before the top plate.
	if _, ok := bih.Raycast(r3.Vec{X: 3.1, Y: 3.2, Z: 1}, r3.Vec{Z: 1}, 1e-9, 0.5); ok {
		t.Error("ray hit beyond tmax")
	}
}

func TestBIHRaycastSharedEdges(t *testing.T) {
	// Unit cells with vertices on integer coordinates. Every ray below
	// crosses the plate exactly on an edge or vertex shared by several triangles.
	plate := mesh.Grid(10, 10, 10, 10)
	bih := NewBIH(plate)
	tilt := 30 * math.Pi / 180
	var dirs []r3.Vec
	for _, az := range []float64{0, math.Pi / 4, math.Pi / 2, math.Pi, 3 * math.Pi / 2} {
		dirs = append(dirs, r3.Vec{
			X: math.Sin(tilt) * math.Cos(az),
			Y: math.Sin(tilt) * math.Sin(az),
			Z: -math.Cos(tilt),
		})
	}
	dirs = append(dirs, r3.Vec{Z: -1}, r3.Vec{X: math.Cos(math.Pi / 2), Y: -0.5, Z: -math.Sqrt(3) / 2})
	for _, dir := range dirs {
		for _, hitAt := range []r3.Vec{{X: 2, Y: 0.3}, {X: 1, Y: 1}, {X: -3, Y: 2}, {X: 0.5, Y: 0.5}, {X: 4, Y: -1.7}} {
			height := 1.0
			origin := r3.Add(hitAt, r3.Scale(height/dir.Z, dir))
			hit, ok := bih.Raycast(origin, dir, 1e-9, 100)
			if !ok {
				t.Errorf("ray %v %v leaked through the plate", origin, dir)
				continue
			}
			if want := -height / dir.Z; math.Abs(hit.T-want) > 1e-9 {
				t.Errorf("ray %v %v: t=%g, want %g", origin, dir, hit.T, want)
			}
		}
	}
}

func TestLocatorNearest(t *testing.T) {
	var pts []r3.Vec
	for i := 0; i < 10; i++ {
		for j := 0; j < 10; j++ {
			pts = append(pts, r3.Vec{X: float64(i), Y: float64(j), Z: float64((i * j) % 3)})
		}
	}
	loc := NewLocator(pts)
	for _, q := range []r3.Vec{{X: 0.1, Y: 0.2}, {X: 8.7, Y: 3.2, Z: 1}, {X: -5, Y: 20, Z: 2}, {X: 4.3, Y: 4.6, Z: 1.1}} {
		got, d2 := loc.Nearest(q)
		want, wantD2 := -1, math.Inf(1)
		for i, p := range pts {
			if d := r3.Norm2(r3.Sub(p, q)); d < wantD2 {
				want, wantD2 = i, d
			}
		}
		if got != want || math.Abs(d2-wantD2) > 1e-12 {
			t.Errorf("nearest to %v: got %d (%g), want %d (%g)", q, got, d2, want, wantD2)
		}
	}
	if i, _ := NewLocator(nil).Nearest(r3.Vec{}); i != -1 {
		t.Errorf("empty locator returned %d", i)
	}
}
