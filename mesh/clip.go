package mesh

import (
	"math"

	"github.com/soypat/orifice/internal/d3"
)

// Lerp describes a clipped point as the interpolation between
// two points of the parent surface: (1-T)*A + T*B. Points copied
// unchanged from the parent have A == B.
type Lerp struct {
	A, B int
	T    float64
}

// Clipped is the result of Clip.
type Clipped struct {
	Surface *Surface
	// Origin holds one entry per point of Surface.
	Origin []Lerp
}

// Interpolate carries a per point attribute of the parent surface over
// to the clipped surface.
func (c *Clipped) Interpolate(attr []float64) []float64 {
	out := make([]float64, len(c.Origin))
	for i, o := range c.Origin {
		out[i] = (1-o.T)*attr[o.A] + o.T*attr[o.B]
	}
	return out
}

// Clip keeps the part of s where the per point scalar is above iso (or at
// or below iso when above is false). Triangles crossing the iso value are
// cut along the linearly interpolated iso line so the boundary of the
// result follows the iso contour. The clipped surface has no normals.
func Clip(s *Surface, scalar []float64, iso float64, above bool) *Clipped {
	inside := func(v int) bool {
		if above {
			return scalar[v] > iso
		}
		return scalar[v] <= iso
	}
	c := &Clipped{Surface: &Surface{}}
	kept := make(map[int]int)
	cut := make(map[Edge]int)
	keep := func(v int) int {
		if i, ok := kept[v]; ok {
			return i
		}
		i := len(c.Surface.Points)
		kept[v] = i
		c.Surface.Points = append(c.Surface.Points, s.Points[v])
		c.Origin = append(c.Origin, Lerp{A: v, B: v})
		return i
	}
	split := func(a, b int) int {
		e := MakeEdge(a, b)
		if i, ok := cut[e]; ok {
			return i
		}
		// Interpolate from the lower index so shared edges give bit identical points.
		sa, sb := scalar[e[0]], scalar[e[1]]
		t := (iso - sa) / (sb - sa)
		t = clampUnit(t)
		i := len(c.Surface.Points)
		cut[e] = i
		c.Surface.Points = append(c.Surface.Points, d3.Lerp(s.Points[e[0]], s.Points[e[1]], t))
		c.Origin = append(c.Origin, Lerp{A: e[0], B: e[1], T: t})
		return i
	}
	add := func(a, b, cc int) {
		c.Surface.Triangles = append(c.Surface.Triangles, [3]int{a, b, cc})
	}
	for _, t := range s.Triangles {
		in := [3]bool{inside(t[0]), inside(t[1]), inside(t[2])}
		count := 0
		for _, b := range in {
			if b {
				count++
			}
		}
		switch count {
		case 0:
		case 3:
			add(keep(t[0]), keep(t[1]), keep(t[2]))
		case 1:
			// Rotate so the lone inside vertex comes first, preserving winding.
			r := rotateTo(in, true)
			a, b, cc := t[r], t[(r+1)%3], t[(r+2)%3]
			add(keep(a), split(a, b), split(a, cc))
		case 2:
			r := rotateTo(in, false)
			cc, a, b := t[r], t[(r+1)%3], t[(r+2)%3]
			ia, ib := keep(a), keep(b)
			bc, ca := split(b, cc), split(cc, a)
			add(ia, ib, bc)
			add(ia, bc, ca)
		}
	}
	return c
}

// rotateTo returns the index of the single vertex whose flag equals want.
func rotateTo(in [3]bool, want bool) int {
	for i, b := range in {
		if b == want {
			return i
		}
	}
	return 0
}

func clampUnit(t float64) float64 {
	if t < 0 || math.IsNaN(t) {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
