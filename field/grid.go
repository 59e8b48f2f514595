// Package field builds dense Euclidean distance fields around closed
// surfaces and samples their gradient at arbitrary world positions.
package field

import (
	"math"

	"github.com/pkg/errors"
	"github.com/soypat/orifice/internal/d3"
	"github.com/soypat/orifice/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// maxVoxels bounds the size of a grid.
const maxVoxels = 1 << 30

// ErrEmptyField is returned when no voxel of the grid is occupied by the surface.
var ErrEmptyField = errors.New("empty distance field")

// Grid is an axis aligned voxel lattice with isotropic spacing. Voxel
// (i,j,k) is centered at Origin + Spacing*(i,j,k).
type Grid struct {
	Nx, Ny, Nz int
	Spacing    float64
	Origin     r3.Vec

	toWorld, toGrid d3.Transform
}

// NewGrid returns a grid enclosing bb with a margin of 10% of its longest
// extent plus two voxels on every side. The spacing is the longest extent
// divided by resolution.
func NewGrid(bb d3.Box, resolution int) (Grid, error) {
	if resolution < 2 {
		return Grid{}, errors.Wrapf(mesh.ErrInvalidInput, "grid resolution %d must be at least 2", resolution)
	}
	if bb.Empty() || !d3.IsFinite(bb.Min) || !d3.IsFinite(bb.Max) {
		return Grid{}, errors.Wrap(mesh.ErrInvalidInput, "invalid bounding box")
	}
	size := bb.Size()
	longest := d3.Max(size)
	if longest <= 0 {
		return Grid{}, errors.Wrap(mesh.ErrInvalidInput, "surface has no extent")
	}
	h := longest / float64(resolution)
	margin := 0.1*longest + 2*h
	dim := func(extent float64) int {
		return int(math.Ceil((extent+2*margin)/h)) + 1
	}
	g := Grid{Nx: dim(size.X), Ny: dim(size.Y), Nz: dim(size.Z), Spacing: h}
	if float64(g.Nx)*float64(g.Ny)*float64(g.Nz) > maxVoxels {
		return Grid{}, errors.Errorf("grid of %dx%dx%d voxels too large, lower the resolution", g.Nx, g.Ny, g.Nz)
	}
	// Center the lattice on the box.
	half := r3.Scale(h/2, r3.Vec{X: float64(g.Nx - 1), Y: float64(g.Ny - 1), Z: float64(g.Nz - 1)})
	g.Origin = r3.Sub(bb.Center(), half)
	g.toWorld = d3.GridTransform(g.Origin, h)
	g.toGrid = g.toWorld.Inv()
	return g, nil
}

// Len returns the number of voxels.
func (g Grid) Len() int { return g.Nx * g.Ny * g.Nz }

// Index returns the linear index of voxel (i,j,k). X varies fastest.
func (g Grid) Index(i, j, k int) int { return (k*g.Ny+j)*g.Nx + i }

// World returns the center of voxel (i,j,k).
func (g Grid) World(i, j, k int) r3.Vec {
	return g.toWorld.Transform(r3.Vec{X: float64(i), Y: float64(j), Z: float64(k)})
}

// ToGrid returns the continuous voxel coordinates of the world point p.
func (g Grid) ToGrid(p r3.Vec) r3.Vec {
	return g.toGrid.Transform(p)
}

// Bounds returns the box spanned by the voxel centers.
func (g Grid) Bounds() d3.Box {
	return d3.Box{Min: g.Origin, Max: g.World(g.Nx-1, g.Ny-1, g.Nz-1)}
}

// cell locates the continuous grid coordinate q. It returns the lower
// corner voxel and the fractional offsets, or ok=false outside the grid.
func (g Grid) cell(q r3.Vec) (i, j, k int, fx, fy, fz float64, ok bool) {
	if !(q.X >= 0 && q.Y >= 0 && q.Z >= 0) ||
		q.X > float64(g.Nx-1) || q.Y > float64(g.Ny-1) || q.Z > float64(g.Nz-1) {
		return 0, 0, 0, 0, 0, 0, false
	}
	i, j, k = int(q.X), int(q.Y), int(q.Z)
	// Points on the far faces interpolate inside the last cell.
	if i == g.Nx-1 {
		i--
	}
	if j == g.Ny-1 {
		j--
	}
	if k == g.Nz-1 {
		k--
	}
	return i, j, k, q.X - float64(i), q.Y - float64(j), q.Z - float64(k), true
}
