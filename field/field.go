package field

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"github.com/soypat/orifice/mesh"
	"github.com/unixpickle/essentials"
	"gonum.org/v1/gonum/spatial/r3"
)

// Field is a distance field sampled on a grid together with its unit gradient.
type Field struct {
	Grid
	// Dist holds the distance in world units from each voxel center to the
	// nearest occupied voxel. Occupied voxels are at distance zero.
	Dist []float32
	// Grad holds three components per voxel: the normalized gradient of
	// Dist, or zero where the gradient vanishes.
	Grad []float32
	// Occupied is the number of voxels occupied by the surface.
	Occupied int
}

// Build rasterizes the closed surface thick onto a grid with resolution
// voxels along its longest extent and computes the distance to it and
// the distance gradient at every voxel.
func Build(thick *mesh.Surface, resolution int) (*Field, error) {
	if thick.Empty() {
		return nil, errors.Wrap(mesh.ErrInvalidInput, "empty surface")
	}
	g, err := NewGrid(thick.Bounds(), resolution)
	if err != nil {
		return nil, err
	}
	return fromOccupancy(g, g.rasterize(thick))
}

func fromOccupancy(g Grid, occ []bool) (*Field, error) {
	f := &Field{Grid: g}
	for _, o := range occ {
		if o {
			f.Occupied++
		}
	}
	if f.Occupied == 0 {
		return nil, ErrEmptyField
	}
	f.Dist = edt(occ, g.Nx, g.Ny, g.Nz)
	h := float32(g.Spacing)
	for i := range f.Dist {
		f.Dist[i] *= h
	}
	f.Grad = f.gradient()
	return f, nil
}

// gradient computes central differences, one sided on the grid border,
// and normalizes them.
func (f *Field) gradient() []float32 {
	nx, ny, nz := f.Nx, f.Ny, f.Nz
	grad := make([]float32, 3*f.Len())
	diff := func(idx, i, n, stride int) float32 {
		switch {
		case i == 0:
			return f.Dist[idx+stride] - f.Dist[idx]
		case i == n-1:
			return f.Dist[idx] - f.Dist[idx-stride]
		}
		return (f.Dist[idx+stride] - f.Dist[idx-stride]) / 2
	}
	// Slices along Z write disjoint parts of grad.
	essentials.ConcurrentMap(0, nz, func(k int) {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				idx := f.Index(i, j, k)
				gx := diff(idx, i, nx, 1)
				gy := diff(idx, j, ny, nx)
				gz := diff(idx, k, nz, nx*ny)
				norm := math32.Sqrt(gx*gx + gy*gy + gz*gz)
				if norm < 1e-6 {
					continue
				}
				grad[3*idx] = gx / norm
				grad[3*idx+1] = gy / norm
				grad[3*idx+2] = gz / norm
			}
		}
	})
	return grad
}

// Probe trilinearly interpolates the gradient at world point p. It
// returns the zero vector outside the grid.
func (f *Field) Probe(p r3.Vec) r3.Vec {
	i, j, k, fx, fy, fz, ok := f.cell(f.ToGrid(p))
	if !ok {
		return r3.Vec{}
	}
	var g [3]float64
	f.corners(i, j, k, fx, fy, fz, func(idx int, w float64) {
		g[0] += w * float64(f.Grad[3*idx])
		g[1] += w * float64(f.Grad[3*idx+1])
		g[2] += w * float64(f.Grad[3*idx+2])
	})
	return r3.Vec{X: g[0], Y: g[1], Z: g[2]}
}

// Distance trilinearly interpolates the distance at world point p.
// It returns +Inf outside the grid.
func (f *Field) Distance(p r3.Vec) float64 {
	i, j, k, fx, fy, fz, ok := f.cell(f.ToGrid(p))
	if !ok {
		return math.Inf(1)
	}
	var d float64
	f.corners(i, j, k, fx, fy, fz, func(idx int, w float64) {
		d += w * float64(f.Dist[idx])
	})
	return d
}

// corners calls fn with the index and trilinear weight of the eight
// corners of the cell with lower corner (i,j,k).
func (f *Field) corners(i, j, k int, fx, fy, fz float64, fn func(idx int, w float64)) {
	for c := 0; c < 8; c++ {
		di, dj, dk := c&1, c>>1&1, c>>2&1
		w := lerpWeight(fx, di) * lerpWeight(fy, dj) * lerpWeight(fz, dk)
		if w == 0 {
			continue
		}
		fn(f.Index(i+di, j+dj, k+dk), w)
	}
}

func lerpWeight(frac float64, upper int) float64 {
	if upper == 1 {
		return frac
	}
	return 1 - frac
}
