package shrinkwrap

import (
	"github.com/pkg/errors"
	"github.com/soypat/orifice/mesh"
	"github.com/unixpickle/essentials"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	smoothFactor = 0.5
	capRounds    = 5
)

// Solve spans a membrane across the closed boundary curve and shrinks it
// onto the surface sampled by f. Each iteration smooths the membrane,
// remeshes it and advances every free point against the gradient. The returned surface has unit normals.
func Solve(curve []r3.Vec, f Gradienter, p Params) (*mesh.Surface, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if f == nil {
		return nil, errors.Wrap(mesh.ErrInvalidInput, "nil gradient field")
	}
	m, err := initialCap(curve)
	if err != nil {
		return nil, err
	}
	m.workers = p.Workers
	m.remesh(m.targetLength(p.Vertices), capRounds)
	p.logf("shrinkwrap: initial cap with %d points and %d triangles", len(m.pts), len(m.tris))

	for i := 0; i < p.Iterations; i++ {
		cooldown := i >= p.Iterations-p.Cooldown
		step, vertices, sweeps := p.Step, p.Vertices, p.Smoothing
		if cooldown {
			step, vertices, sweeps = p.CooldownStep, p.CooldownVertices, p.CooldownSmoothing
		}
		m.smooth(sweeps, smoothFactor)
		m.remesh(m.targetLength(vertices), 1)
		if len(m.pts) <= 1 {
			return nil, errors.Wrapf(mesh.ErrDegenerateMesh, "membrane collapsed at iteration %d", i)
		}
		moved := 0
		if i < p.Iterations-1 {
			moved = m.advance(f, step)
		}
		p.logf("shrinkwrap: iteration %d/%d cooldown=%v points=%d moved=%d", i+1, p.Iterations, cooldown, len(m.pts), moved)
	}
	s := m.surface()
	s.ComputeNormals()
	return s, nil
}

// advance moves free points by -step along the field gradient and returns
// how many moved.
func (m *membrane) advance(f Gradienter, step float64) int {
	moved := make([]bool, len(m.pts))
	essentials.ConcurrentMap(m.workers, len(m.pts), func(i int) {
		if m.pinned[i] {
			return
		}
		g := f.Probe(m.pts[i])
		if g == (r3.Vec{}) {
			return
		}
		m.pts[i] = r3.Sub(m.pts[i], r3.Scale(step, g))
		moved[i] = true
	})
	count := 0
	for _, mv := range moved {
		if mv {
			count++
		}
	}
	return count
}
