// Package orifice finds the through holes of a thin surface mesh without
// knowing in advance how many there are or where they lie.
//
// The surface is extruded to a thin closed shell and a membrane spanning
// its outer rim is shrink wrapped onto it. Where the surface has a hole the
// membrane stays suspended. The suspended membrane is confirmed by casting
// rays through it and split into one region per hole.
package orifice

import (
	"time"

	"github.com/pkg/errors"
	"github.com/soypat/orifice/field"
	"github.com/soypat/orifice/mesh"
	"github.com/soypat/orifice/shell"
	"github.com/soypat/orifice/shrinkwrap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Result holds the regions found by Process along with the intermediate
// surfaces useful for inspection.
type Result struct {
	ThickSurface *mesh.Surface
	// Shrunk is the converged membrane.
	Shrunk *mesh.Surface
	// OrificeSurface is the candidate surface. Its piercing scores are in Candidate.
	OrificeSurface *mesh.Surface
	Candidate      *CandidateSurface
	// TotalArea is the sum of the region areas.
	TotalArea float64
	Regions   []Region
	// Piercing is the number of candidate points confirmed by rays.
	Piercing int
}

// Process normalizes the input mesh and finds the orifices of the surface
// bounded by curve. Finding no orifice is not an error.
func Process(input mesh.Unstructured, curve []r3.Vec, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s, err := mesh.Normalize(input)
	if err != nil {
		return nil, errors.WithMessage(err, "normalize input")
	}
	return ProcessSurface(s, curve, cfg)
}

// ProcessSurface is Process for a surface that is already a triangle mesh.
// Normals are computed if s has none. s is not modified.
func ProcessSurface(s *mesh.Surface, curve []r3.Vec, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.Empty() {
		return nil, errors.Wrap(ErrInvalidInput, "surface has no triangles")
	}
	if len(s.Points) <= 1 {
		return nil, errors.Wrapf(ErrDegenerateMesh, "surface has %d points", len(s.Points))
	}
	if len(curve) < 2 {
		return nil, errors.Wrapf(ErrInvalidInput, "boundary curve has %d points", len(curve))
	}
	if s.Normals == nil {
		s = s.WithNormals()
	}
	start := time.Now()
	thick, err := shell.Build(s, cfg.SurfaceThickness)
	if err != nil {
		return nil, errors.WithMessage(err, "thick surface")
	}
	cfg.logf("orifice: thick surface with %d triangles", len(thick.Triangles))

	f, err := field.Build(thick, cfg.GridResolution)
	if err != nil {
		return nil, errors.WithMessage(err, "distance field")
	}
	cfg.logf("orifice: %dx%dx%d distance field, spacing %.3g, %d occupied voxels", f.Nx, f.Ny, f.Nz, f.Spacing, f.Occupied)

	shrunk, err := shrinkwrap.Solve(curve, f, cfg.shrinkParams())
	if err != nil {
		return nil, errors.WithMessage(err, "shrink wrap")
	}
	cfg.logf("orifice: membrane with %d points", len(shrunk.Points))

	cand, err := extractCandidates(s, shrunk, cfg.SurfaceThickness, cfg.MarginPercent, cfg.Workers)
	if err != nil {
		return nil, errors.WithMessage(err, "extract candidates")
	}
	cfg.logf("orifice: candidate surface with %d points, max distance %.3g", len(cand.Points), cand.MaxDistance())

	piercing, err := AnalyzePiercing(cand, thick, cfg.StreamLineLength, cfg)
	if err != nil {
		return nil, errors.WithMessage(err, "piercing")
	}
	regions, err := SplitRegions(cand, cfg.StreamLineLength, cfg.DistanceFromStreamLine, cfg.MinimumSurfaceArea)
	if err != nil {
		return nil, errors.WithMessage(err, "split regions")
	}
	res := &Result{
		ThickSurface:   thick,
		Shrunk:         shrunk,
		OrificeSurface: cand.Surface,
		Candidate:      cand,
		Regions:        regions,
		Piercing:       piercing,
	}
	for _, r := range regions {
		res.TotalArea += r.Area
	}
	cfg.logf("orifice: %d piercing points, %d regions, total area %.4g in %s", piercing, len(regions), res.TotalArea, time.Since(start))
	return res, nil
}
