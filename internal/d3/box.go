package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Box is a 3d axis aligned bounding box.
type Box r3.Box

// EmptyBox returns a box that contains no points. Including
// any point in it returns a zero sized box at that point.
func EmptyBox() Box {
	return Box{Min: Elem(math.Inf(1)), Max: Elem(math.Inf(-1))}
}

// Empty returns true if the box contains no points.
func (a Box) Empty() bool {
	return a.Min.X > a.Max.X || a.Min.Y > a.Max.Y || a.Min.Z > a.Max.Z
}

// Equals test the equality of 3d boxes.
func (a Box) Equals(b Box, tol float64) bool {
	return EqualWithin(a.Min, b.Min, tol) && EqualWithin(a.Max, b.Max, tol)
}

// Include enlarges a 3d box to include a point.
func (a Box) Include(v r3.Vec) Box {
	return Box{
		Min: MinElem(a.Min, v),
		Max: MaxElem(a.Max, v),
	}
}

// Size returns the size of a 3d box.
func (a Box) Size() r3.Vec {
	return r3.Sub(a.Max, a.Min)
}

// Center returns the center of a 3d box.
func (a Box) Center() r3.Vec {
	return r3.Add(a.Min, r3.Scale(0.5, a.Size()))
}

// Contains checks if the 3d box contains the given vector (considering bounds as inside).
func (a Box) Contains(v r3.Vec) bool {
	return a.Min.X <= v.X && a.Min.Y <= v.Y && a.Min.Z <= v.Z &&
		v.X <= a.Max.X && v.Y <= a.Max.Y && v.Z <= a.Max.Z
}

// Dist2 returns the squared distance from p to the box. Points
// inside the box are at distance zero.
func (a Box) Dist2(p r3.Vec) float64 {
	dx := math.Max(0, math.Max(p.X-a.Max.X, a.Min.X-p.X))
	dy := math.Max(0, math.Max(p.Y-a.Max.Y, a.Min.Y-p.Y))
	dz := math.Max(0, math.Max(p.Z-a.Max.Z, a.Min.Z-p.Z))
	return dx*dx + dy*dy + dz*dz
}

// IntersectRay clips the ray origin + t*dir, t in [tmin, tmax] against the box
// using the slab method. invDir holds the reciprocal of dir's components.
// It returns the entry and exit parameters and whether the ray hits the box.
func (a Box) IntersectRay(origin, invDir r3.Vec, tmin, tmax float64) (t0, t1 float64, hit bool) {
	t0, t1 = tmin, tmax
	for axis := 0; axis < 3; axis++ {
		o := Index(origin, axis)
		inv := Index(invDir, axis)
		near := (Index(a.Min, axis) - o) * inv
		far := (Index(a.Max, axis) - o) * inv
		if math.IsNaN(near) || math.IsNaN(far) {
			// Ray parallel to slab with origin on the slab plane.
			continue
		}
		if near > far {
			near, far = far, near
		}
		t0 = math.Max(t0, near)
		t1 = math.Min(t1, far)
		if t0 > t1 {
			return t0, t1, false
		}
	}
	return t0, t1, true
}
