// Package shrinkwrap shrinks a membrane spanning a closed boundary curve
// onto a surface described by a distance field gradient. Where the surface
// has a through hole the membrane stays suspended across it.
package shrinkwrap

import (
	"log"

	"github.com/pkg/errors"
	"github.com/soypat/orifice/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Gradienter samples the unit gradient of a distance field. The gradient
// points away from the surface and is zero on and inside it.
type Gradienter interface {
	Probe(p r3.Vec) r3.Vec
}

// Params controls the shrink wrap schedule. The last Cooldown iterations
// use the finer cooldown settings.
type Params struct {
	Iterations int
	Cooldown   int
	// Step and CooldownStep are the advance distances per iteration.
	Step, CooldownStep float64
	// Vertices and CooldownVertices are the remeshing vertex targets.
	Vertices, CooldownVertices int
	// Smoothing and CooldownSmoothing are the Laplacian sweeps per iteration.
	Smoothing, CooldownSmoothing int
	// Workers bounds the goroutines used within an iteration. Zero uses GOMAXPROCS.
	Workers int
	// Logger receives one line per iteration if not nil.
	Logger *log.Logger
}

// DefaultParams returns the default shrink wrap schedule.
func DefaultParams() Params {
	return Params{
		Iterations:        40,
		Cooldown:          3,
		Step:              0.5,
		CooldownStep:      0.1,
		Vertices:          1000,
		CooldownVertices:  2500,
		Smoothing:         15,
		CooldownSmoothing: 5,
	}
}

// Validate returns an error wrapping mesh.ErrInvalidInput for unusable parameters.
func (p Params) Validate() error {
	switch {
	case p.Iterations < 0:
		return errors.Wrapf(mesh.ErrInvalidInput, "negative iterations %d", p.Iterations)
	case p.Cooldown < 0:
		return errors.Wrapf(mesh.ErrInvalidInput, "negative cooldown iterations %d", p.Cooldown)
	case !(p.Step >= 0) || !(p.CooldownStep >= 0):
		return errors.Wrapf(mesh.ErrInvalidInput, "steps %g and %g must not be negative", p.Step, p.CooldownStep)
	case p.Vertices < 3 || p.CooldownVertices < 3:
		return errors.Wrapf(mesh.ErrInvalidInput, "vertex targets %d and %d must be at least 3", p.Vertices, p.CooldownVertices)
	case p.Smoothing < 0 || p.CooldownSmoothing < 0:
		return errors.Wrap(mesh.ErrInvalidInput, "negative smoothing sweeps")
	case p.Workers < 0:
		return errors.Wrapf(mesh.ErrInvalidInput, "negative workers %d", p.Workers)
	}
	return nil
}

func (p Params) logf(format string, args ...interface{}) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
	}
}
