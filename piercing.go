package orifice

import (
	"math"

	"github.com/pkg/errors"
	"github.com/soypat/orifice/internal/d3"
	"github.com/soypat/orifice/mesh"
	"github.com/soypat/orifice/spatial"
	"github.com/unixpickle/essentials"
	"gonum.org/v1/gonum/spatial/r3"
)

// piercingRatio is the fraction of the stream line length both sides of a
// point must travel to count as piercing.
const piercingRatio = 0.99

// rayStart skips hits at the ray origin.
const rayStart = 1e-9

// AnalyzePiercing casts a cone of rays around the normal of every candidate
// point and another around the opposite direction against the thick
// surface. The longest unobstructed travel on each side, capped at length,
// is recorded and the smaller of both stored in c.StreamLineLength in place.
// It returns the number of piercing points.
func AnalyzePiercing(c *CandidateSurface, thick *mesh.Surface, length float64, cfg Config) (int, error) {
	switch {
	case c == nil || c.Surface == nil:
		return 0, errors.Wrap(ErrInvalidInput, "missing candidate surface")
	case thick == nil || thick.Empty():
		return 0, errors.Wrap(ErrInvalidInput, "missing thick surface")
	case !(length > 0):
		return 0, errors.Wrapf(ErrInvalidInput, "stream line length %g", length)
	case cfg.ConeSamples < 1 || len(cfg.ConeAngles) == 0:
		return 0, errors.Wrap(ErrInvalidInput, "no ray cone configured")
	}
	if len(c.Normals) != len(c.Points) {
		c.ComputeNormals()
	}
	if len(c.StreamLineLength) != len(c.Points) {
		c.StreamLineLength = make([]float64, len(c.Points))
	}
	bih := spatial.NewBIH(thick)
	cone := coneDirections(cfg.ConeAngles, cfg.ConeSamples)
	essentials.ConcurrentMap(cfg.Workers, len(c.Points), func(i int) {
		n := c.Normals[i]
		if n == (r3.Vec{}) {
			c.StreamLineLength[i] = 0
			return
		}
		x, y := d3.Orthonormal(n)
		front := travel(bih, c.Points[i], x, y, n, cone, length)
		back := travel(bih, c.Points[i], y, x, r3.Scale(-1, n), cone, length)
		c.StreamLineLength[i] = math.Min(front, back)
	})
	return c.countPiercing(length), nil
}

// travel returns the longest distance a ray of the cone around axis n
// covers before hitting the surface, capped at length.
func travel(bih *spatial.BIH, p, x, y, n r3.Vec, cone []r3.Vec, length float64) float64 {
	best := 0.0
	for _, local := range cone {
		dir := r3.Add(r3.Add(r3.Scale(local.X, x), r3.Scale(local.Y, y)), r3.Scale(local.Z, n))
		hit, ok := bih.Raycast(p, dir, rayStart, length)
		if !ok {
			return length
		}
		best = math.Max(best, hit.T)
	}
	return best
}

// coneDirections returns unit directions in a local frame with the cone
// axis along +Z. A zero angle contributes the axis itself.
func coneDirections(anglesDeg []float64, samples int) []r3.Vec {
	var dirs []r3.Vec
	for _, deg := range anglesDeg {
		theta := deg * math.Pi / 180
		if theta == 0 {
			dirs = append(dirs, r3.Vec{Z: 1})
			continue
		}
		sin, cos := math.Sincos(theta)
		for k := 0; k < samples; k++ {
			phi := 2 * math.Pi * float64(k) / float64(samples)
			sp, cp := math.Sincos(phi)
			dirs = append(dirs, r3.Vec{X: sin * cp, Y: sin * sp, Z: cos})
		}
	}
	return dirs
}

func (c *CandidateSurface) piercing(i int, length float64) bool {
	return c.StreamLineLength[i] >= piercingRatio*length
}

func (c *CandidateSurface) countPiercing(length float64) int {
	n := 0
	for i := range c.StreamLineLength {
		if c.piercing(i, length) {
			n++
		}
	}
	return n
}
