package orifice

import (
	"fmt"
	"math"
	"sort"

	"github.com/pkg/errors"
	"github.com/soypat/orifice/mesh"
	"github.com/soypat/orifice/spatial"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/spatial/r3"
)

// Region is one detected orifice.
type Region struct {
	// Position is the region point closest to its area weighted centroid.
	Position r3.Vec
	Area     float64
	// Label is Or1, Or2, ... in order of descending area.
	Label   string
	Surface *mesh.Surface
}

// SplitRegions keeps the part of the candidate surface within geodesic
// distance distanceFromStreamLine of a piercing point and splits it into
// connected regions. Regions smaller than minArea are dropped. The rest are
// returned by descending area.
func SplitRegions(c *CandidateSurface, length, distanceFromStreamLine, minArea float64) ([]Region, error) {
	switch {
	case c == nil || c.Surface == nil:
		return nil, errors.Wrap(ErrInvalidInput, "missing candidate surface")
	case len(c.StreamLineLength) != len(c.Points):
		return nil, errors.Wrapf(ErrInvalidInput, "%d piercing scores for %d points", len(c.StreamLineLength), len(c.Points))
	case !(length > 0) || !(distanceFromStreamLine >= 0) || !(minArea >= 0):
		return nil, errors.Wrapf(ErrInvalidInput, "length %g, distance %g, minimum area %g", length, distanceFromStreamLine, minArea)
	}
	if c.countPiercing(length) == 0 {
		return nil, nil
	}
	geo := c.geodesicDistance(length)
	kept := mesh.Clip(c.Surface, geo, distanceFromStreamLine, false).Surface
	var regions []Region
	for _, part := range mesh.Components(kept) {
		areas := make([]float64, len(part.Triangles))
		for i := range areas {
			areas[i] = part.TriangleArea(i)
		}
		area := floats.Sum(areas)
		if area < minArea {
			continue
		}
		part.ComputeNormals()
		nearest, _ := spatial.NewLocator(part.Points).Nearest(part.AreaCentroid())
		regions = append(regions, Region{
			Position: part.Points[nearest],
			Area:     area,
			Surface:  part,
		})
	}
	sort.SliceStable(regions, func(i, j int) bool { return regions[i].Area > regions[j].Area })
	for i := range regions {
		regions[i].Label = fmt.Sprintf("Or%d", i+1)
	}
	return regions, nil
}

// geodesicDistance returns the shortest path length over mesh edges from
// every point to its nearest piercing point. Unreachable points get the
// largest finite float so clipping interpolates toward reachable ones.
func (c *CandidateSurface) geodesicDistance(length float64) []float64 {
	n := len(c.Points)
	g := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for i := 0; i <= n; i++ {
		g.AddNode(simple.Node(i))
	}
	for _, e := range c.Edges() {
		if e[0] == e[1] {
			continue
		}
		w := r3.Norm(r3.Sub(c.Points[e[0]], c.Points[e[1]]))
		g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(e[0]), simple.Node(e[1]), w))
	}
	// Node n joins every piercing point at zero cost.
	source := simple.Node(n)
	for i := 0; i < n; i++ {
		if c.piercing(i, length) {
			g.SetWeightedEdge(g.NewWeightedEdge(source, simple.Node(i), 0))
		}
	}
	shortest := path.DijkstraFrom(source, g)
	dist := make([]float64, n)
	for i := range dist {
		dist[i] = shortest.WeightTo(int64(i))
		if math.IsInf(dist[i], 1) {
			dist[i] = math.MaxFloat64
		}
	}
	return dist
}
