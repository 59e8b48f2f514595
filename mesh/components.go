package mesh

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Graph returns the edge graph of the surface: one node per point, node
// IDs equal to point indices, one edge per triangle side.
func (s *Surface) Graph() *simple.UndirectedGraph {
	g := simple.NewUndirectedGraph()
	for i := range s.Points {
		g.AddNode(simple.Node(i))
	}
	for _, e := range s.Edges() {
		if e[0] == e[1] {
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(e[0]), simple.Node(e[1])))
	}
	return g
}

// Components splits s into its edge connected parts. Each part is a
// compact surface carrying over the normals of s. Parts are ordered by
// their lowest point index in s, and isolated points are dropped.
func Components(s *Surface) []*Surface {
	if s.Empty() {
		return nil
	}
	comps := topo.ConnectedComponents(s.Graph())
	label := make([]int, len(s.Points))
	type part struct {
		lowest int
		tris   []int
	}
	parts := make([]part, len(comps))
	for ci, comp := range comps {
		lowest := len(s.Points)
		for _, n := range comp {
			id := int(n.ID())
			label[id] = ci
			if id < lowest {
				lowest = id
			}
		}
		parts[ci].lowest = lowest
	}
	for ti, t := range s.Triangles {
		ci := label[t[0]]
		parts[ci].tris = append(parts[ci].tris, ti)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].lowest < parts[j].lowest })
	var out []*Surface
	for _, p := range parts {
		if len(p.tris) == 0 {
			continue
		}
		out = append(out, s.Subset(p.tris))
	}
	return out
}
