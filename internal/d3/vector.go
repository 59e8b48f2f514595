package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// R3 vector manipulation routines missing from gonum's r3 package.

// Elem returns a vector with all components set to sides.
func Elem(sides float64) r3.Vec {
	return r3.Vec{
		X: sides,
		Y: sides,
		Z: sides,
	}
}

// EqualWithin returns true if all components of a and b differ by at most tol.
func EqualWithin(a, b r3.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol &&
		math.Abs(a.Y-b.Y) <= tol &&
		math.Abs(a.Z-b.Z) <= tol
}

// MinElem return a vector with the minimum components of two vectors.
func MinElem(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
}

// MaxElem return a vector with the maximum components of two vectors.
func MaxElem(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
}

// Max returns the largest component of a.
func Max(a r3.Vec) float64 {
	return math.Max(a.Z, math.Max(a.X, a.Y))
}

// Index returns the component of a along axis 0 (X), 1 (Y) or 2 (Z).
func Index(a r3.Vec, axis int) float64 {
	switch axis {
	case 0:
		return a.X
	case 1:
		return a.Y
	case 2:
		return a.Z
	}
	panic("axis out of range")
}

// IsFinite returns false if any component is NaN or infinite.
func IsFinite(a r3.Vec) bool {
	return !math.IsNaN(a.X) && !math.IsInf(a.X, 0) &&
		!math.IsNaN(a.Y) && !math.IsInf(a.Y, 0) &&
		!math.IsNaN(a.Z) && !math.IsInf(a.Z, 0)
}

// Lerp linearly interpolates from a to b. t=0 returns a, t=1 returns b.
func Lerp(a, b r3.Vec, t float64) r3.Vec {
	return r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
}

// Reject returns the component of v orthogonal to the unit vector n.
func Reject(v, n r3.Vec) r3.Vec {
	return r3.Sub(v, r3.Scale(r3.Dot(v, n), n))
}

// Orthonormal returns two unit vectors x and y such that (x, y, n)
// is a right handed orthonormal frame. n must be a unit vector.
func Orthonormal(n r3.Vec) (x, y r3.Vec) {
	// Pick the world axis least aligned with n to avoid a degenerate cross product.
	ref := r3.Vec{X: 1}
	ax, ay, az := math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)
	if ay <= ax && ay <= az {
		ref = r3.Vec{Y: 1}
	} else if az <= ax && az <= ay {
		ref = r3.Vec{Z: 1}
	}
	x = r3.Unit(Reject(ref, n))
	y = r3.Cross(n, x)
	return x, y
}

// TriangleArea returns the area of the triangle a, b, c. Unlike r3.Triangle.Area
// it never returns NaN for degenerate triangles.
func TriangleArea(a, b, c r3.Vec) float64 {
	return 0.5 * r3.Norm(r3.Cross(r3.Sub(b, a), r3.Sub(c, a)))
}

// TriangleNormal returns the area weighted normal of triangle a, b, c
// (its norm is twice the area).
func TriangleNormal(a, b, c r3.Vec) r3.Vec {
	return r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
}

// Centroid returns the average of the three vertices.
func Centroid(a, b, c r3.Vec) r3.Vec {
	return r3.Scale(1./3., r3.Add(r3.Add(a, b), c))
}

// Set is a set of points.
type Set []r3.Vec

// Bounds returns the smallest box containing all points of the set.
// An empty set returns an empty box.
func (a Set) Bounds() Box {
	bb := EmptyBox()
	for _, v := range a {
		bb = bb.Include(v)
	}
	return bb
}

// Mean returns the average position of the set.
func (a Set) Mean() r3.Vec {
	var sum r3.Vec
	for _, v := range a {
		sum = r3.Add(sum, v)
	}
	return r3.Scale(1/float64(len(a)), sum)
}
