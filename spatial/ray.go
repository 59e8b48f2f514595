package spatial

import (
	"math"

	"github.com/soypat/orifice/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// rayEpsilon is the determinant below which a ray is considered
// parallel to a triangle.
const rayEpsilon = 1e-12

// edgeTolerance widens the barycentric bounds of a triangle so rays
// through a shared edge or vertex hit at least one of its triangles.
const edgeTolerance = 1e-9

// Hit is the result of a ray query.
type Hit struct {
	// T is the ray parameter of the hit: the hit point is origin + T*dir.
	T float64
	// Triangle is the index of the surface triangle hit.
	Triangle int
}

// Raycast returns the first triangle hit by the ray origin + t*dir with t
// in (tmin, tmax]. Both faces of a triangle are hit. ok is false if the
// ray hits nothing in range.
func (b *BIH) Raycast(origin, dir r3.Vec, tmin, tmax float64) (hit Hit, ok bool) {
	if len(b.tris) == 0 {
		return Hit{}, false
	}
	invDir := r3.Vec{X: 1 / dir.X, Y: 1 / dir.Y, Z: 1 / dir.Z}
	hit = Hit{T: tmax, Triangle: -1}
	// Boxes are padded so rays grazing a box face still visit its triangles.
	pad := d3.Elem(edgeTolerance * (1 + d3.Max(b.bounds.Size())))
	b.raycast(origin, dir, invDir, tmin, pad, 0, b.bounds, &hit)
	if hit.Triangle < 0 {
		return Hit{}, false
	}
	hit.Triangle = b.ids[hit.Triangle]
	return hit, true
}

func (b *BIH) raycast(origin, dir, invDir r3.Vec, tmin float64, pad r3.Vec, idx int, bb d3.Box, best *Hit) {
	node := &b.nodes[idx]
	if node.isLeaf() {
		for i := node.start; i < node.end; i++ {
			t := b.tris[i]
			th, ok := intersectTriangle(origin, dir, b.points[t[0]], b.points[t[1]], b.points[t[2]])
			if ok && th > tmin && th <= best.T {
				// Ties go to the lowest reordered index for reproducible results.
				if th == best.T && best.Triangle >= 0 && i > best.Triangle {
					continue
				}
				*best = Hit{T: th, Triangle: i}
			}
		}
		return
	}
	leftBB, rightBB := node.childBoxes(bb)
	grow := func(bb d3.Box) d3.Box { return d3.Box{Min: r3.Sub(bb.Min, pad), Max: r3.Add(bb.Max, pad)} }
	l0, _, lok := grow(leftBB).IntersectRay(origin, invDir, tmin, best.T)
	r0, _, rok := grow(rightBB).IntersectRay(origin, invDir, tmin, best.T)
	first, second := node.child(), node.child()+1
	if rok && (!lok || r0 < l0) {
		first, second = second, first
		leftBB, rightBB = rightBB, leftBB
		l0, r0 = r0, l0
		lok, rok = rok, lok
	}
	if lok {
		b.raycast(origin, dir, invDir, tmin, pad, first, leftBB, best)
	}
	if rok && r0 <= best.T {
		b.raycast(origin, dir, invDir, tmin, pad, second, rightBB, best)
	}
}

// intersectTriangle returns the ray parameter at which origin + t*dir
// crosses the triangle a, b, c using the Möller–Trumbore algorithm.
func intersectTriangle(origin, dir, a, b, c r3.Vec) (float64, bool) {
	edge1 := r3.Sub(b, a)
	edge2 := r3.Sub(c, a)
	pvec := r3.Cross(dir, edge2)
	det := r3.Dot(edge1, pvec)
	if math.Abs(det) < rayEpsilon {
		return 0, false
	}
	inv := 1 / det
	tvec := r3.Sub(origin, a)
	u := r3.Dot(tvec, pvec) * inv
	if u < -edgeTolerance || u > 1+edgeTolerance {
		return 0, false
	}
	qvec := r3.Cross(tvec, edge1)
	v := r3.Dot(dir, qvec) * inv
	if v < -edgeTolerance || u+v > 1+edgeTolerance {
		return 0, false
	}
	return r3.Dot(edge2, qvec) * inv, true
}
