package shrinkwrap

import (
	"math"

	"github.com/pkg/errors"
	"github.com/soypat/orifice/internal/d3"
	"github.com/soypat/orifice/mesh"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// cleanCurve drops non finite input and consecutive duplicate points,
// including a last point repeating the first.
func cleanCurve(curve []r3.Vec) ([]r3.Vec, error) {
	bb := d3.Set(curve).Bounds()
	if len(curve) == 0 || !d3.IsFinite(bb.Min) || !d3.IsFinite(bb.Max) {
		return nil, errors.Wrap(mesh.ErrInvalidInput, "boundary curve must hold finite points")
	}
	tol := 1e-9 * math.Max(d3.Max(bb.Size()), 1)
	var out []r3.Vec
	for _, p := range curve {
		if len(out) > 0 && d3.EqualWithin(p, out[len(out)-1], tol) {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && d3.EqualWithin(out[0], out[len(out)-1], tol) {
		out = out[:len(out)-1]
	}
	if len(out) < 3 {
		return nil, errors.Wrapf(mesh.ErrInvalidInput, "boundary curve has %d distinct points, need 3", len(out))
	}
	return out, nil
}

// newellNormal returns the unit normal of the best fit plane of the closed
// polygon, oriented by the right hand rule over the point order.
func newellNormal(poly []r3.Vec) r3.Vec {
	var n r3.Vec
	for i, cur := range poly {
		nxt := poly[(i+1)%len(poly)]
		n.X += (cur.Y - nxt.Y) * (cur.Z + nxt.Z)
		n.Y += (cur.Z - nxt.Z) * (cur.X + nxt.X)
		n.Z += (cur.X - nxt.X) * (cur.Y + nxt.Y)
	}
	norm := r3.Norm(n)
	if norm == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/norm, n)
}

// initialCap triangulates the boundary curve projected on its best fit
// plane. Curve points are pinned and keep their indices.
func initialCap(curve []r3.Vec) (*membrane, error) {
	poly, err := cleanCurve(curve)
	if err != nil {
		return nil, err
	}
	n := newellNormal(poly)
	if n == (r3.Vec{}) {
		return nil, errors.Wrap(mesh.ErrInvalidInput, "boundary curve encloses no area")
	}
	x, y := d3.Orthonormal(n)
	center := d3.Set(poly).Mean()
	flat := make([]r2.Vec, len(poly))
	for i, p := range poly {
		d := r3.Sub(p, center)
		flat[i] = r2.Vec{X: r3.Dot(d, x), Y: r3.Dot(d, y)}
	}
	m := &membrane{
		pts:    poly,
		tris:   earClip(flat),
		pinned: make([]bool, len(poly)),
	}
	for i := range m.pinned {
		m.pinned[i] = true
	}
	return m, nil
}

// earClip triangulates a counter clockwise simple polygon. At every step it
// clips the valid ear of best shape. Polygons with no valid ear, such as
// self intersecting ones, are clipped at their first convex vertex.
func earClip(poly []r2.Vec) [][3]int {
	idx := make([]int, len(poly))
	for i := range idx {
		idx[i] = i
	}
	tris := make([][3]int, 0, len(poly)-2)
	for len(idx) > 3 {
		best, bestQuality := -1, -1.0
		fallback := -1
		for k := range idx {
			a, b, c := idx[(k+len(idx)-1)%len(idx)], idx[k], idx[(k+1)%len(idx)]
			area := cross2(poly[a], poly[b], poly[c])
			if area <= 0 {
				continue
			}
			if fallback < 0 {
				fallback = k
			}
			if containsAny(poly, idx, a, b, c) {
				continue
			}
			if q := quality2(poly[a], poly[b], poly[c]); q > bestQuality {
				best, bestQuality = k, q
			}
		}
		if best < 0 {
			best = fallback
		}
		if best < 0 {
			best = 0
		}
		a, b, c := idx[(best+len(idx)-1)%len(idx)], idx[best], idx[(best+1)%len(idx)]
		tris = append(tris, [3]int{a, b, c})
		idx = append(idx[:best], idx[best+1:]...)
	}
	return append(tris, [3]int{idx[0], idx[1], idx[2]})
}

// cross2 returns twice the signed area of triangle a, b, c.
func cross2(a, b, c r2.Vec) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (c.X-a.X)*(b.Y-a.Y)
}

// quality2 is 1 for equilateral triangles and tends to 0 for slivers.
func quality2(a, b, c r2.Vec) float64 {
	l2 := r2.Norm2(r2.Sub(b, a)) + r2.Norm2(r2.Sub(c, b)) + r2.Norm2(r2.Sub(a, c))
	if l2 == 0 {
		return 0
	}
	return 2 * math.Sqrt(3) * cross2(a, b, c) / l2
}

// containsAny reports whether a remaining polygon vertex other than a, b
// and c lies inside or on triangle a, b, c.
func containsAny(poly []r2.Vec, idx []int, a, b, c int) bool {
	pa, pb, pc := poly[a], poly[b], poly[c]
	for _, v := range idx {
		if v == a || v == b || v == c {
			continue
		}
		p := poly[v]
		if p == pa || p == pb || p == pc {
			continue
		}
		if cross2(pa, pb, p) >= 0 && cross2(pb, pc, p) >= 0 && cross2(pc, pa, p) >= 0 {
			return true
		}
	}
	return false
}
