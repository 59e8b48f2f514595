package shrinkwrap

import (
	"math"
	"sort"

	"github.com/soypat/orifice/internal/d3"
	"github.com/soypat/orifice/mesh"
	"github.com/unixpickle/essentials"
	"gonum.org/v1/gonum/spatial/r3"
)

// Passes bound the inner loops of a remeshing round.
const (
	maxSplitPasses    = 32
	maxCollapsePasses = 8
	flipPasses        = 2
)

// dead marks a removed triangle until the next compaction.
var dead = [3]int{-1, -1, -1}

// membrane is the evolving shrink wrap surface. Pinned points lie on the
// boundary curve, or on straight segments between curve points, and never move.
type membrane struct {
	pts     []r3.Vec
	tris    [][3]int
	pinned  []bool
	workers int
}

func (m *membrane) surface() *mesh.Surface {
	return &mesh.Surface{Points: m.pts, Triangles: m.tris}
}

// compact removes dead triangles and unused points.
func (m *membrane) compact() {
	s, remap := m.surface().Compact()
	pinned := make([]bool, len(s.Points))
	for old, idx := range remap {
		if idx >= 0 {
			pinned[idx] = m.pinned[old]
		}
	}
	m.pts, m.tris, m.pinned = s.Points, s.Triangles, pinned
}

func (m *membrane) length(e mesh.Edge) float64 {
	return r3.Norm(r3.Sub(m.pts[e[0]], m.pts[e[1]]))
}

// targetLength returns the edge length of an equilateral mesh of the
// given amount of vertices covering the membrane.
func (m *membrane) targetLength(vertices int) float64 {
	return math.Sqrt(2 * m.surface().Area() / (math.Sqrt(3) * float64(vertices)))
}

// remesh runs rounds of isotropic remeshing toward edge length l: long
// edges are split, short edges collapsed, edges flipped to even out
// valences and points relaxed along the tangent plane.
func (m *membrane) remesh(l float64, rounds int) {
	if !(l > 0) {
		return
	}
	hi, lo := 4*l/3, 4*l/5
	for r := 0; r < rounds; r++ {
		for i := 0; i < maxSplitPasses && m.splitLong(hi) > 0; i++ {
		}
		for i := 0; i < maxCollapsePasses && m.collapseShort(lo, hi) > 0; i++ {
		}
		for i := 0; i < flipPasses && m.flipValence() > 0; i++ {
		}
		m.tangentialRelax()
	}
}

type edgeCandidate struct {
	e mesh.Edge
	l float64
}

// sortCandidates orders candidates by length, longest first if desc,
// breaking ties by edge indices.
func sortCandidates(c []edgeCandidate, desc bool) {
	sort.Slice(c, func(i, j int) bool {
		if c[i].l != c[j].l {
			return (c[i].l > c[j].l) == desc
		}
		if c[i].e[0] != c[j].e[0] {
			return c[i].e[0] < c[j].e[0]
		}
		return c[i].e[1] < c[j].e[1]
	})
}

// edgeSlot returns j such that t[j], t[j+1] is the edge a, b in any
// direction, or -1.
func edgeSlot(t [3]int, a, b int) int {
	for j := 0; j < 3; j++ {
		p, q := t[j], t[(j+1)%3]
		if (p == a && q == b) || (p == b && q == a) {
			return j
		}
	}
	return -1
}

// splitLong splits edges longer than hi at their midpoint. Triangles
// touched by a split are left alone for the rest of the pass.
func (m *membrane) splitLong(hi float64) int {
	ef := m.surface().EdgeFaces()
	var cands []edgeCandidate
	for e := range ef {
		if l := m.length(e); l > hi {
			cands = append(cands, edgeCandidate{e: e, l: l})
		}
	}
	sortCandidates(cands, true)
	touched := make([]bool, len(m.tris))
	splits := 0
	for _, c := range cands {
		faces := ef[c.e]
		if len(faces) > 2 {
			continue
		}
		busy := false
		for _, f := range faces {
			busy = busy || touched[f]
		}
		if busy {
			continue
		}
		a, b := c.e[0], c.e[1]
		mid := len(m.pts)
		m.pts = append(m.pts, d3.Lerp(m.pts[a], m.pts[b], 0.5))
		// Midpoints of boundary edges stay on the boundary.
		m.pinned = append(m.pinned, len(faces) == 1)
		for _, f := range faces {
			t := m.tris[f]
			j := edgeSlot(t, a, b)
			p, q, o := t[j], t[(j+1)%3], t[(j+2)%3]
			m.tris[f] = [3]int{p, mid, o}
			m.tris = append(m.tris, [3]int{mid, q, o})
			touched[f] = true
			touched = append(touched, true)
		}
		splits++
	}
	return splits
}

// collapseShort collapses interior edges shorter than lo and compacts the
// membrane. Collapses that would create an edge longer than hi, break the
// link condition or fold a triangle over are skipped. Boundary edges never
// collapse and pinned points never move.
func (m *membrane) collapseShort(lo, hi float64) int {
	s := m.surface()
	ef := s.EdgeFaces()
	pf := s.PointFaces()
	nb := s.Neighbors()
	var cands []edgeCandidate
	for e, faces := range ef {
		if len(faces) != 2 {
			continue
		}
		if l := m.length(e); l < lo {
			cands = append(cands, edgeCandidate{e: e, l: l})
		}
	}
	sortCandidates(cands, false)
	touched := make([]bool, len(m.pts))
	collapses := 0
	for _, c := range cands {
		a, b := c.e[0], c.e[1]
		if touched[a] || touched[b] || (m.pinned[a] && m.pinned[b]) {
			continue
		}
		keep, drop := a, b
		pos := d3.Lerp(m.pts[a], m.pts[b], 0.5)
		if m.pinned[a] {
			pos = m.pts[a]
		} else if m.pinned[b] {
			keep, drop = b, a
			pos = m.pts[b]
		}
		if !m.canCollapse(a, b, pos, hi, nb, pf) {
			continue
		}
		for _, f := range pf[drop] {
			t := m.tris[f]
			if edgeSlot(t, a, b) >= 0 {
				m.tris[f] = dead
				continue
			}
			for j := range t {
				if t[j] == drop {
					m.tris[f][j] = keep
				}
			}
		}
		m.pts[keep] = pos
		touched[a], touched[b] = true, true
		for _, v := range nb[a] {
			touched[v] = true
		}
		for _, v := range nb[b] {
			touched[v] = true
		}
		collapses++
	}
	if collapses > 0 {
		m.compact()
	}
	return collapses
}

func (m *membrane) canCollapse(a, b int, pos r3.Vec, hi float64, nb, pf [][]int) bool {
	// Link condition: a and b share exactly the two opposite vertices.
	common := intersectSorted(nb[a], nb[b])
	if len(common) != 2 {
		return false
	}
	for _, v := range common {
		minValence := 4
		if m.pinned[v] {
			minValence = 3
		}
		if len(nb[v]) < minValence {
			return false
		}
	}
	for _, v := range [2]int{a, b} {
		for _, w := range nb[v] {
			if w != a && w != b && r3.Norm(r3.Sub(m.pts[w], pos)) > hi {
				return false
			}
		}
		for _, f := range pf[v] {
			t := m.tris[f]
			if edgeSlot(t, a, b) >= 0 {
				continue
			}
			before := d3.TriangleNormal(m.pts[t[0]], m.pts[t[1]], m.pts[t[2]])
			var moved [3]r3.Vec
			for j, u := range t {
				moved[j] = m.pts[u]
				if u == a || u == b {
					moved[j] = pos
				}
			}
			after := d3.TriangleNormal(moved[0], moved[1], moved[2])
			if r3.Dot(before, after) <= 0.1*r3.Norm(before)*r3.Norm(after) {
				return false
			}
		}
	}
	return true
}

func intersectSorted(a, b []int) []int {
	var out []int
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

func containsSorted(list []int, v int) bool {
	i := sort.SearchInts(list, v)
	return i < len(list) && list[i] == v
}

// flipValence flips interior edges when that brings the valences of the
// four points involved closer to 6, or 4 for pinned boundary points.
func (m *membrane) flipValence() int {
	s := m.surface()
	ef := s.EdgeFaces()
	nb := s.Neighbors()
	target := func(v int) int {
		if m.pinned[v] {
			return 4
		}
		return 6
	}
	touched := make([]bool, len(m.pts))
	flips := 0
	for _, e := range s.Edges() {
		faces := ef[e]
		if len(faces) != 2 {
			continue
		}
		a, b := e[0], e[1]
		// Faces around touched points were rewritten by earlier flips.
		if touched[a] || touched[b] {
			continue
		}
		f1, f2 := faces[0], faces[1]
		t1, t2 := m.tris[f1], m.tris[f2]
		j1, j2 := edgeSlot(t1, a, b), edgeSlot(t2, a, b)
		if j1 < 0 || j2 < 0 {
			continue
		}
		// Orient so f1 runs a->b.
		if t1[j1] != a {
			f1, f2 = f2, f1
			t1, t2 = t2, t1
			j1, j2 = j2, j1
		}
		c := t1[(j1+2)%3]
		d := t2[(j2+2)%3]
		if c == d || touched[c] || touched[d] || containsSorted(nb[c], d) {
			continue
		}
		va, vb, vc, vd := len(nb[a]), len(nb[b]), len(nb[c]), len(nb[d])
		before := absInt(va-target(a)) + absInt(vb-target(b)) + absInt(vc-target(c)) + absInt(vd-target(d))
		after := absInt(va-1-target(a)) + absInt(vb-1-target(b)) + absInt(vc+1-target(c)) + absInt(vd+1-target(d))
		if after >= before || va-1 < 3 || vb-1 < 3 {
			continue
		}
		pa, pb, pc, pd := m.pts[a], m.pts[b], m.pts[c], m.pts[d]
		avg := r3.Add(d3.TriangleNormal(pa, pb, pc), d3.TriangleNormal(pb, pa, pd))
		n3 := d3.TriangleNormal(pc, pa, pd)
		n4 := d3.TriangleNormal(pd, pb, pc)
		if r3.Dot(n3, avg) <= 0 || r3.Dot(n4, avg) <= 0 {
			continue
		}
		m.tris[f1] = [3]int{c, a, d}
		m.tris[f2] = [3]int{d, b, c}
		touched[a], touched[b], touched[c], touched[d] = true, true, true, true
		flips++
	}
	return flips
}

func absInt(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

// tangentialRelax moves every free point toward the centroid of its
// neighbors within its tangent plane.
func (m *membrane) tangentialRelax() {
	s := m.surface()
	s.ComputeNormals()
	nb := s.Neighbors()
	next := make([]r3.Vec, len(m.pts))
	essentials.ConcurrentMap(m.workers, len(m.pts), func(i int) {
		p := m.pts[i]
		if m.pinned[i] || len(nb[i]) == 0 {
			next[i] = p
			return
		}
		q := neighborMean(m.pts, nb[i])
		next[i] = r3.Add(p, d3.Reject(r3.Sub(q, p), s.Normals[i]))
	})
	m.pts = next
}

// smooth runs uniform Laplacian sweeps with the given factor.
func (m *membrane) smooth(sweeps int, factor float64) {
	if sweeps == 0 {
		return
	}
	nb := m.surface().Neighbors()
	next := make([]r3.Vec, len(m.pts))
	for sweep := 0; sweep < sweeps; sweep++ {
		essentials.ConcurrentMap(m.workers, len(m.pts), func(i int) {
			p := m.pts[i]
			if m.pinned[i] || len(nb[i]) == 0 {
				next[i] = p
				return
			}
			next[i] = d3.Lerp(p, neighborMean(m.pts, nb[i]), factor)
		})
		m.pts, next = next, m.pts
	}
}

func neighborMean(pts []r3.Vec, nb []int) r3.Vec {
	var sum r3.Vec
	for _, v := range nb {
		sum = r3.Add(sum, pts[v])
	}
	return r3.Scale(1/float64(len(nb)), sum)
}
