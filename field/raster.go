package field

import (
	"math"
	"sort"

	"github.com/soypat/orifice/mesh"
	"github.com/unixpickle/essentials"
	"gonum.org/v1/gonum/spatial/r3"
)

// Sub voxel offsets applied to scan line columns so they never pass
// exactly through a mesh edge or vertex lying on the lattice.
const (
	jitterX = 1.13e-5
	jitterY = 2.71e-5
)

// rasterize marks the voxels inside the closed surface s, found by
// scan line parity along Z, and the voxels the surface itself passes
// through, found by sampling every triangle at half voxel steps.
func (g Grid) rasterize(s *mesh.Surface) []bool {
	occ := make([]bool, g.Len())
	pts := make([]r3.Vec, len(s.Points))
	for i, p := range s.Points {
		pts[i] = g.ToGrid(p)
	}

	// Bucket triangles by the rows of columns they may cross.
	rows := make([][]int, g.Ny)
	for ti, t := range s.Triangles {
		a, b, c := pts[t[0]], pts[t[1]], pts[t[2]]
		lo := int(math.Ceil(math.Min(a.Y, math.Min(b.Y, c.Y)) - jitterY))
		hi := int(math.Floor(math.Max(a.Y, math.Max(b.Y, c.Y)) - jitterY))
		for j := maxInt(lo, 0); j <= hi && j < g.Ny; j++ {
			rows[j] = append(rows[j], ti)
		}
	}
	essentials.ReduceConcurrentMap(0, g.Ny, func() (func(int), func()) {
		crossings := make([][]float64, g.Nx)
		fillRow := func(j int) {
			for i := range crossings {
				crossings[i] = crossings[i][:0]
			}
			y := float64(j) + jitterY
			for _, ti := range rows[j] {
				t := s.Triangles[ti]
				a, b, c := pts[t[0]], pts[t[1]], pts[t[2]]
				lo := int(math.Ceil(math.Min(a.X, math.Min(b.X, c.X)) - jitterX))
				hi := int(math.Floor(math.Max(a.X, math.Max(b.X, c.X)) - jitterX))
				for i := maxInt(lo, 0); i <= hi && i < g.Nx; i++ {
					if z, ok := columnCrossing(a, b, c, float64(i)+jitterX, y); ok {
						crossings[i] = append(crossings[i], z)
					}
				}
			}
			for i, zs := range crossings {
				sort.Float64s(zs)
				for n := 0; n+1 < len(zs); n += 2 {
					k0 := maxInt(int(math.Ceil(zs[n])), 0)
					k1 := minInt(int(math.Floor(zs[n+1])), g.Nz-1)
					for k := k0; k <= k1; k++ {
						occ[g.Index(i, j, k)] = true
					}
				}
			}
		}
		return fillRow, func() {}
	})

	// Shells thinner than a voxel may fall between lattice points.
	for _, t := range s.Triangles {
		a, b, c := pts[t[0]], pts[t[1]], pts[t[2]]
		longest := math.Sqrt(math.Max(r3.Norm2(r3.Sub(b, a)), math.Max(r3.Norm2(r3.Sub(c, b)), r3.Norm2(r3.Sub(a, c)))))
		n := int(math.Ceil(2*longest)) + 1
		ab, ac := r3.Sub(b, a), r3.Sub(c, a)
		for u := 0; u <= n; u++ {
			for v := 0; u+v <= n; v++ {
				p := r3.Add(a, r3.Add(r3.Scale(float64(u)/float64(n), ab), r3.Scale(float64(v)/float64(n), ac)))
				i, j, k := int(math.Round(p.X)), int(math.Round(p.Y)), int(math.Round(p.Z))
				if i < 0 || j < 0 || k < 0 || i >= g.Nx || j >= g.Ny || k >= g.Nz {
					continue
				}
				occ[g.Index(i, j, k)] = true
			}
		}
	}
	return occ
}

// columnCrossing returns the height at which the vertical line through
// (x,y) crosses triangle a, b, c.
func columnCrossing(a, b, c r3.Vec, x, y float64) (float64, bool) {
	det := (b.X-a.X)*(c.Y-a.Y) - (c.X-a.X)*(b.Y-a.Y)
	if det == 0 {
		// Triangle seen edge on from above.
		return 0, false
	}
	u := ((x-a.X)*(c.Y-a.Y) - (c.X-a.X)*(y-a.Y)) / det
	v := ((b.X-a.X)*(y-a.Y) - (x-a.X)*(b.Y-a.Y)) / det
	if u < 0 || v < 0 || u+v > 1 {
		return 0, false
	}
	return a.Z + u*(b.Z-a.Z) + v*(c.Z-a.Z), true
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
