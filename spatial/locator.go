package spatial

import (
	"github.com/soypat/orifice/internal/d3"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// vertex is a point that remembers its index in the source slice.
type vertex struct {
	r3.Vec
	idx int
}

var (
	_ kdtree.Interface  = vertices(nil)
	_ kdtree.Comparable = vertex{}
)

func (p vertex) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(vertex)
	return d3.Index(p.Vec, int(d)) - d3.Index(q.Vec, int(d))
}

func (p vertex) Dims() int { return 3 }

// Distance returns the squared distance between p and c.
func (p vertex) Distance(c kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(p.Vec, c.(vertex).Vec))
}

type vertices []vertex

func (p vertices) Index(i int) kdtree.Comparable         { return p[i] }
func (p vertices) Len() int                              { return len(p) }
func (p vertices) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot uses the median of medians so tree shape, and with it the winner
// among equidistant points, does not depend on random sampling.
func (p vertices) Pivot(d kdtree.Dim) int {
	pl := plane{Dim: d, vertices: p}
	return kdtree.Partition(pl, kdtree.MedianOfMedians(pl))
}

type plane struct {
	kdtree.Dim
	vertices
}

func (p plane) Less(i, j int) bool {
	a, b := d3.Index(p.vertices[i].Vec, int(p.Dim)), d3.Index(p.vertices[j].Vec, int(p.Dim))
	if a != b {
		return a < b
	}
	return p.vertices[i].idx < p.vertices[j].idx
}
func (p plane) Slice(start, end int) kdtree.SortSlicer { p.vertices = p.vertices[start:end]; return p }
func (p plane) Swap(i, j int)                          { p.vertices[i], p.vertices[j] = p.vertices[j], p.vertices[i] }

// Locator finds the nearest of a fixed set of points.
type Locator struct {
	tree *kdtree.Tree
}

// NewLocator builds a locator over pts. The slice is copied.
func NewLocator(pts []r3.Vec) *Locator {
	vs := make(vertices, len(pts))
	for i, p := range pts {
		vs[i] = vertex{Vec: p, idx: i}
	}
	return &Locator{tree: kdtree.New(vs, false)}
}

// Nearest returns the index of the point closest to q and the squared
// distance to it. It returns -1 for an empty locator.
func (l *Locator) Nearest(q r3.Vec) (int, float64) {
	c, d2 := l.tree.Nearest(vertex{Vec: q, idx: -1})
	if c == nil {
		return -1, d2
	}
	return c.(vertex).idx, d2
}
