package orifice

import (
	"math"

	"github.com/pkg/errors"
	"github.com/soypat/orifice/mesh"
	"github.com/soypat/orifice/spatial"
	"github.com/unixpickle/essentials"
)

// CandidateSurface is the part of the shrunk membrane that does not rest
// on the original surface. Attribute slices hold one value per point.
type CandidateSurface struct {
	*mesh.Surface
	// DistanceToOriginal is the unsigned distance from each point to the
	// original surface.
	DistanceToOriginal []float64
	// StreamLineLength is the piercing score of each point, set by AnalyzePiercing.
	StreamLineLength []float64
}

// ExtractCandidates measures the distance from every point of the shrunk
// membrane to the original surface and clips away the membrane closer than
// thickness*(1+marginPercent/100)/2. The result may hold several patches
// or none at all.
func ExtractCandidates(original, shrunk *mesh.Surface, thickness, marginPercent float64) (*CandidateSurface, error) {
	return extractCandidates(original, shrunk, thickness, marginPercent, 0)
}

func extractCandidates(original, shrunk *mesh.Surface, thickness, marginPercent float64, workers int) (*CandidateSurface, error) {
	switch {
	case original == nil || shrunk == nil:
		return nil, errors.Wrap(ErrInvalidInput, "missing surface")
	case len(original.Points) <= 1:
		return nil, errors.Wrapf(ErrDegenerateMesh, "original surface has %d points", len(original.Points))
	case len(shrunk.Points) <= 1:
		return nil, errors.Wrapf(ErrDegenerateMesh, "shrunk membrane has %d points", len(shrunk.Points))
	case !(thickness > 0) || !(marginPercent >= 0):
		return nil, errors.Wrapf(ErrInvalidInput, "thickness %g and margin %g%%", thickness, marginPercent)
	}
	bih := spatial.NewBIH(original)
	dist := make([]float64, len(shrunk.Points))
	essentials.ConcurrentMap(workers, len(dist), func(i int) {
		dist[i] = bih.Distance(shrunk.Points[i])
	})
	threshold := thickness * (1 + marginPercent/100) / 2
	clipped := mesh.Clip(shrunk, dist, threshold, true)
	c := &CandidateSurface{
		Surface:            clipped.Surface,
		DistanceToOriginal: clipped.Interpolate(dist),
		StreamLineLength:   make([]float64, len(clipped.Surface.Points)),
	}
	c.ComputeNormals()
	return c, nil
}

// MaxDistance returns the largest distance to the original surface, or
// zero for an empty candidate.
func (c *CandidateSurface) MaxDistance() float64 {
	max := 0.0
	for _, d := range c.DistanceToOriginal {
		max = math.Max(max, d)
	}
	return max
}
