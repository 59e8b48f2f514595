package field

import (
	"errors"
	"math"
	"testing"

	"github.com/soypat/orifice/internal/d3"
	"github.com/soypat/orifice/mesh"
	"github.com/soypat/orifice/shell"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestEDTMatchesBruteForce(t *testing.T) {
	const nx, ny, nz = 9, 6, 7
	occ := make([]bool, nx*ny*nz)
	seeds := [][3]int{{0, 0, 0}, {8, 5, 6}, {4, 2, 3}, {7, 1, 0}, {2, 5, 6}}
	idx := func(i, j, k int) int { return (k*ny+j)*nx + i }
	for _, s := range seeds {
		occ[idx(s[0], s[1], s[2])] = true
	}
	dist := edt(occ, nx, ny, nz)
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				want := math.Inf(1)
				for _, s := range seeds {
					di, dj, dk := float64(i-s[0]), float64(j-s[1]), float64(k-s[2])
					want = math.Min(want, math.Sqrt(di*di+dj*dj+dk*dk))
				}
				got := float64(dist[idx(i, j, k)])
				if math.Abs(got-want) > 1e-5 {
					t.Fatalf("voxel (%d,%d,%d): distance %g, want %g", i, j, k, got, want)
				}
			}
		}
	}
}

func TestNewGrid(t *testing.T) {
	bb := d3.Box{Min: r3.Vec{X: -10, Y: -5, Z: -1}, Max: r3.Vec{X: 10, Y: 5, Z: 1}}
	g, err := NewGrid(bb, 40)
	if err != nil {
		t.Fatal(err)
	}
	if g.Spacing != 0.5 {
		t.Errorf("spacing %g, want 0.5", g.Spacing)
	}
	gb := g.Bounds()
	margin := 0.1 * 20
	if !gb.Contains(r3.Sub(bb.Min, d3.Elem(margin))) || !gb.Contains(r3.Add(bb.Max, d3.Elem(margin))) {
		t.Errorf("grid bounds %v do not contain %v with margin %g", gb, bb, margin)
	}
	if !d3.EqualWithin(gb.Center(), bb.Center(), 1e-9) {
		t.Errorf("grid not centered: %v", gb.Center())
	}
	q := g.ToGrid(g.World(3, 4, 5))
	if !d3.EqualWithin(q, r3.Vec{X: 3, Y: 4, Z: 5}, 1e-9) {
		t.Errorf("grid round trip gave %v", q)
	}
	if _, err := NewGrid(bb, 1); !errors.Is(err, mesh.ErrInvalidInput) {
		t.Errorf("resolution 1: got %v", err)
	}
	if _, err := NewGrid(d3.EmptyBox(), 10); !errors.Is(err, mesh.ErrInvalidInput) {
		t.Errorf("empty box: got %v", err)
	}
}

func TestBuildPlate(t *testing.T) {
	const thickness = 1.0
	thick, err := shell.Build(mesh.Grid(20, 20, 10, 10), thickness)
	if err != nil {
		t.Fatal(err)
	}
	f, err := Build(thick, 64)
	if err != nil {
		t.Fatal(err)
	}
	h := f.Spacing
	if f.Occupied == 0 {
		t.Fatal("no occupied voxels")
	}
	for _, z := range []float64{3, -3, 1.7} {
		p := r3.Vec{X: 1.3, Y: -2.1, Z: z}
		want := math.Abs(z) - thickness/2
		if got := f.Distance(p); math.Abs(got-want) > 1.5*h {
			t.Errorf("distance at %v: got %g, want %g", p, got, want)
		}
		g := f.Probe(p)
		if dot := g.Z * math.Copysign(1, z); dot < 0.99 {
			t.Errorf("gradient at %v is %v, want pointing away from the plate", p, g)
		}
	}
	// Past the plate edge the gradient points outward in X.
	g := f.Probe(r3.Vec{X: 11.5})
	if g.X < 0.99 {
		t.Errorf("gradient beyond edge is %v", g)
	}
	// Inside the plate the field vanishes.
	if d := f.Distance(r3.Vec{}); d > h {
		t.Errorf("distance inside plate %g", d)
	}
	far := r3.Vec{X: 1000}
	if g := f.Probe(far); g != (r3.Vec{}) {
		t.Errorf("probe outside grid gave %v", g)
	}
	if d := f.Distance(far); !math.IsInf(d, 1) {
		t.Errorf("distance outside grid gave %g", d)
	}
}

func TestBuildThinShell(t *testing.T) {
	// A shell much thinner than a voxel must still occupy voxels.
	thick, err := shell.Build(mesh.Grid(20, 20, 10, 10), 0.01)
	if err != nil {
		t.Fatal(err)
	}
	f, err := Build(thick, 32)
	if err != nil {
		t.Fatal(err)
	}
	if f.Occupied < 32*32 {
		t.Errorf("thin shell occupies only %d voxels", f.Occupied)
	}
	if d := f.Distance(r3.Vec{Z: 2.5}); math.Abs(d-2.5) > 1.5*f.Spacing {
		t.Errorf("distance above thin shell %g, want about 2.5", d)
	}
}

func TestEmptyField(t *testing.T) {
	g, err := NewGrid(d3.Box{Max: d3.Elem(1)}, 4)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fromOccupancy(g, make([]bool, g.Len())); !errors.Is(err, ErrEmptyField) {
		t.Errorf("got %v, want ErrEmptyField", err)
	}
}
