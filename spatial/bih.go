// Package spatial provides read only acceleration structures over surfaces:
// a bounding interval hierarchy for closest point and ray queries against
// triangles and a k-d tree for nearest point lookups.
//
// Structures are built once and may be queried from many goroutines.
package spatial

import (
	"math"
	"sort"

	"github.com/soypat/orifice/internal/d3"
	"github.com/soypat/orifice/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	leaf = iota
	xClip
	yClip
	zClip
)

// leafSize is the largest amount of triangles stored in a leaf.
const leafSize = 4

type bihNode struct {
	// flags holds the clipping axis in its lower two bits, the
	// remaining bits hold the index of the left child.
	flags int
	// For inner nodes, the maximum of the left child and minimum of the
	// right child along the clipping axis. For leaves the [start,end)
	// range into the reordered triangle list.
	left, right float64
	start, end  int
}

func (b *bihNode) isLeaf() bool { return b.flags&3 == leaf }
func (b *bihNode) child() int   { return b.flags >> 2 }

// BIH is a bounding interval hierarchy over the triangles of a surface.
type BIH struct {
	points []r3.Vec
	tris   [][3]int
	// ids maps reordered triangles back to the surface's triangle indices.
	ids    []int
	nodes  []bihNode
	bounds d3.Box
}

// NewBIH builds a hierarchy over the triangles of s. The points of s are
// shared, not copied, so s must not be modified while the BIH is in use.
func NewBIH(s *mesh.Surface) *BIH {
	b := &BIH{
		points: s.Points,
		tris:   make([][3]int, len(s.Triangles)),
		ids:    make([]int, len(s.Triangles)),
		nodes:  make([]bihNode, 1, 2*len(s.Triangles)/leafSize+1),
		bounds: d3.EmptyBox(),
	}
	copy(b.tris, s.Triangles)
	centroids := make([]r3.Vec, len(s.Triangles))
	for i, t := range s.Triangles {
		a, bb, c := s.Points[t[0]], s.Points[t[1]], s.Points[t[2]]
		centroids[i] = d3.Centroid(a, bb, c)
		b.bounds = b.bounds.Include(a).Include(bb).Include(c)
	}
	order := make([]int, len(s.Triangles))
	for i := range order {
		order[i] = i
	}
	b.subdivide(0, 0, order, centroids, b.bounds)
	for i, o := range order {
		b.tris[i] = s.Triangles[o]
		b.ids[i] = o
	}
	return b
}

// Bounds returns the bounding box of all triangles.
func (b *BIH) Bounds() d3.Box { return b.bounds }

// Len returns the number of triangles in the hierarchy.
func (b *BIH) Len() int { return len(b.tris) }

// subdivide splits the triangles in order at the median centroid along the
// longest axis of bb. order is sorted in place so that every leaf
// references a contiguous range.
func (b *BIH) subdivide(nodeIdx, offset int, order []int, centroids []r3.Vec, bb d3.Box) {
	if len(order) <= leafSize {
		b.nodes[nodeIdx] = bihNode{flags: leaf, start: offset, end: offset + len(order)}
		return
	}
	// Classical heuristic: longest axis, median as pivot.
	dims := bb.Size()
	plane := xClip
	if dims.Y > dims.X && dims.Y >= dims.Z {
		plane = yClip
	} else if dims.Z > dims.X && dims.Z > dims.Y {
		plane = zClip
	}
	axis := plane - 1
	sort.SliceStable(order, func(i, j int) bool {
		return d3.Index(centroids[order[i]], axis) < d3.Index(centroids[order[j]], axis)
	})
	half := len(order) / 2
	leftBB, rightBB := d3.EmptyBox(), d3.EmptyBox()
	for _, o := range order[:half] {
		for _, v := range b.triangle(o) {
			leftBB = leftBB.Include(v)
		}
	}
	for _, o := range order[half:] {
		for _, v := range b.triangle(o) {
			rightBB = rightBB.Include(v)
		}
	}
	// Append two new nodes to store the children.
	children := len(b.nodes)
	b.nodes = append(b.nodes, bihNode{}, bihNode{})
	b.subdivide(children, offset, order[:half], centroids, leftBB)
	b.subdivide(children+1, offset+half, order[half:], centroids, rightBB)
	b.nodes[nodeIdx] = bihNode{
		flags: children<<2 | plane,
		left:  d3.Index(leftBB.Max, axis),
		right: d3.Index(rightBB.Min, axis),
	}
}

// triangle returns the vertices of a triangle by its reordered index
// during construction, where b.tris still holds the surface order.
func (b *BIH) triangle(i int) [3]r3.Vec {
	t := b.tris[i]
	return [3]r3.Vec{b.points[t[0]], b.points[t[1]], b.points[t[2]]}
}

// childBoxes returns the bounding boxes of the children of an inner node.
func (n *bihNode) childBoxes(bb d3.Box) (left, right d3.Box) {
	left, right = bb, bb
	switch n.flags & 3 {
	case xClip:
		left.Max.X, right.Min.X = n.left, n.right
	case yClip:
		left.Max.Y, right.Min.Y = n.left, n.right
	case zClip:
		left.Max.Z, right.Min.Z = n.left, n.right
	}
	return left, right
}

// Closest is the result of a closest point query.
type Closest struct {
	// Point is the closest point on the surface.
	Point r3.Vec
	// Triangle is the index of the surface triangle containing Point.
	Triangle int
	// Dist2 is the squared distance from the query to Point.
	Dist2 float64
}

// Closest returns the point of the surface closest to target.
// An empty hierarchy returns Triangle == -1 and infinite distance.
func (b *BIH) Closest(target r3.Vec) Closest {
	best := Closest{Triangle: -1, Dist2: math.Inf(1)}
	if len(b.tris) == 0 {
		return best
	}
	b.closest(target, 0, b.bounds, &best)
	if best.Triangle >= 0 {
		best.Triangle = b.ids[best.Triangle]
	}
	return best
}

// Distance returns the unsigned distance from target to the surface.
func (b *BIH) Distance(target r3.Vec) float64 {
	return math.Sqrt(b.Closest(target).Dist2)
}

func (b *BIH) closest(target r3.Vec, idx int, bb d3.Box, best *Closest) {
	node := &b.nodes[idx]
	if node.isLeaf() {
		for i := node.start; i < node.end; i++ {
			t := b.tris[i]
			p := closestOnTriangle(target, b.points[t[0]], b.points[t[1]], b.points[t[2]])
			d2 := r3.Norm2(r3.Sub(target, p))
			if d2 < best.Dist2 {
				*best = Closest{Point: p, Triangle: i, Dist2: d2}
			}
		}
		return
	}
	// Start with the child closer to the target.
	leftBB, rightBB := node.childBoxes(bb)
	leftD2, rightD2 := leftBB.Dist2(target), rightBB.Dist2(target)
	first, second := node.child(), node.child()+1
	if rightD2 < leftD2 {
		first, second = second, first
		leftBB, rightBB = rightBB, leftBB
		leftD2, rightD2 = rightD2, leftD2
	}
	if leftD2 < best.Dist2 {
		b.closest(target, first, leftBB, best)
	}
	if rightD2 < best.Dist2 {
		b.closest(target, second, rightBB, best)
	}
}

// closestOnTriangle returns the point of the solid triangle a, b, c
// closest to target. Based on Geometric Tools' point to triangle
// distance algorithm.
func closestOnTriangle(target, a, b, c r3.Vec) r3.Vec {
	diff := r3.Sub(target, a)
	edge0 := r3.Sub(b, a)
	edge1 := r3.Sub(c, a)
	a00 := r3.Dot(edge0, edge0)
	a01 := r3.Dot(edge0, edge1)
	a11 := r3.Dot(edge1, edge1)
	b0 := -r3.Dot(diff, edge0)
	b1 := -r3.Dot(diff, edge1)

	f00 := b0
	f10 := b0 + a00
	f01 := b0 + a01

	var p, p0, p1 [2]float64
	var dt1, h0, h1 float64
	switch {
	case f00 >= 0:
		if f01 >= 0 {
			p = minEdge02(a11, b1)
			break
		}
		p0 = [2]float64{0, f00 / (f00 - f01)}
		p1[0] = f01 / (f01 - f10)
		p1[1] = 1 - p1[0]
		dt1 = p1[1] - p0[1]
		h0 = dt1 * (a11*p0[1] + b1)
		if h0 >= 0 {
			p = minEdge02(a11, b1)
			break
		}
		h1 = dt1 * (a01*p1[0] + a11*p1[1] + b1)
		if h1 <= 0 {
			p = minEdge12(a01, a11, b1, f10, f01)
		} else {
			p = minInterior(p0, h0, p1, h1)
		}
	case f01 <= 0:
		if f10 <= 0 {
			p = minEdge12(a01, a11, b1, f10, f01)
			break
		}
		p0 = [2]float64{f00 / (f00 - f10), 0}
		p1[0] = f01 / (f01 - f10)
		p1[1] = 1 - p1[0]
		h0 = p1[1] * (a01*p0[0] + b1)
		if h0 >= 0 {
			p = p0
			break
		}
		h1 = p1[1] * (a01*p1[0] + a11*p1[1] + b1)
		if h1 <= 0 {
			p = minEdge12(a01, a11, b1, f10, f01)
		} else {
			p = minInterior(p0, h0, p1, h1)
		}
	case f10 <= 0:
		p0 = [2]float64{0, f00 / (f00 - f01)}
		p1[0] = f01 / (f01 - f10)
		p1[1] = 1 - p1[0]
		dt1 = p1[1] - p0[1]
		h0 = dt1 * (a11*p0[1] + b1)
		if h0 >= 0 {
			p = minEdge02(a11, b1)
			break
		}
		h1 = dt1 * (a01*p1[0] + a11*p1[1] + b1)
		if h1 <= 0 {
			p = minEdge12(a01, a11, b1, f10, f01)
		} else {
			p = minInterior(p0, h0, p1, h1)
		}
	default:
		p0 = [2]float64{f00 / (f00 - f10), 0}
		p1 = [2]float64{0, f00 / (f00 - f01)}
		h0 = p1[1] * (a01*p0[0] + b1)
		if h0 >= 0 {
			p = p0
			break
		}
		h1 = p1[1] * (a11*p1[1] + b1)
		if h1 <= 0 {
			p = minEdge02(a11, b1)
		} else {
			p = minInterior(p0, h0, p1, h1)
		}
	}
	if !isFinite2(p) {
		// Degenerate triangle: fall back to the closest vertex.
		return closestVertex(target, a, b, c)
	}
	return r3.Add(a, r3.Add(r3.Scale(p[0], edge0), r3.Scale(p[1], edge1)))
}

func minEdge02(a11, b1 float64) (p [2]float64) {
	switch {
	case b1 >= 0:
		p[1] = 0
	case a11+b1 <= 0:
		p[1] = 1
	default:
		p[1] = -b1 / a11
	}
	return p
}

func minEdge12(a01, a11, b1, f10, f01 float64) (p [2]float64) {
	h0 := a01 + b1 - f10
	if h0 >= 0 {
		p[1] = 0
	} else {
		h1 := a11 + b1 - f01
		if h1 <= 0 {
			p[1] = 1
		} else {
			p[1] = h0 / (h0 - h1)
		}
	}
	p[0] = 1 - p[1]
	return p
}

func minInterior(p0 [2]float64, h0 float64, p1 [2]float64, h1 float64) (p [2]float64) {
	z := h0 / (h0 - h1)
	omz := 1 - z
	p[0] = omz*p0[0] + z*p1[0]
	p[1] = omz*p0[1] + z*p1[1]
	return p
}

func isFinite2(p [2]float64) bool {
	return !math.IsNaN(p[0]) && !math.IsNaN(p[1]) && !math.IsInf(p[0], 0) && !math.IsInf(p[1], 0)
}

func closestVertex(target, a, b, c r3.Vec) r3.Vec {
	best := a
	d := r3.Norm2(r3.Sub(target, a))
	for _, v := range [2]r3.Vec{b, c} {
		if dv := r3.Norm2(r3.Sub(target, v)); dv < d {
			best, d = v, dv
		}
	}
	return best
}
