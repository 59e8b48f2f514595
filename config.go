package orifice

import (
	"log"
	"math"

	"github.com/pkg/errors"
	"github.com/soypat/orifice/field"
	"github.com/soypat/orifice/mesh"
	"github.com/soypat/orifice/shrinkwrap"
)

var (
	// ErrInvalidInput is returned for missing or malformed surfaces and
	// boundary curves and for invalid configuration values.
	ErrInvalidInput = mesh.ErrInvalidInput
	// ErrDegenerateMesh is returned when the membrane or the reference
	// surface collapses to one point or less.
	ErrDegenerateMesh = mesh.ErrDegenerateMesh
	// ErrEmptyField is returned when the thick surface occupies no voxel.
	ErrEmptyField = field.ErrEmptyField
)

// Config holds the parameters of one Process call. Lengths are in the
// units of the input mesh, usually millimeters.
type Config struct {
	// SurfaceThickness is the thickness the medial surface is extruded to.
	SurfaceThickness float64 `yaml:"surface_thickness"`
	// ShrinkWrapIterations is the number of shrink wrap iterations.
	ShrinkWrapIterations int `yaml:"shrink_wrap_iterations"`
	// StreamLineLength is the distance a ray must travel unobstructed on
	// both sides of the membrane for a point to pierce the surface.
	StreamLineLength float64 `yaml:"stream_line_length"`
	// DistanceFromStreamLine is the geodesic radius kept around piercing points.
	DistanceFromStreamLine float64 `yaml:"distance_from_stream_line"`
	// MinimumSurfaceArea discards smaller orifice regions.
	MinimumSurfaceArea float64 `yaml:"minimum_surface_area"`
	// MarginPercent widens the distance threshold separating membrane
	// resting on the surface from membrane spanning a hole.
	MarginPercent float64 `yaml:"margin_percent"`
	// GridResolution is the number of voxels along the longest axis of
	// the distance field.
	GridResolution int `yaml:"grid_resolution"`

	CooldownIterations int     `yaml:"cooldown_iterations"`
	ShrinkStep         float64 `yaml:"shrink_step"`
	CooldownStep       float64 `yaml:"cooldown_step"`
	ShrinkVertices     int     `yaml:"shrink_vertices"`
	CooldownVertices   int     `yaml:"cooldown_vertices"`
	ShrinkSmoothing    int     `yaml:"shrink_smoothing"`
	CooldownSmoothing  int     `yaml:"cooldown_smoothing"`

	// ConeAngles are the half angles in degrees of the ray cones cast from
	// every candidate point. Zero casts a single ray along the normal.
	ConeAngles []float64 `yaml:"cone_angles"`
	// ConeSamples is the number of rays per non zero cone angle.
	ConeSamples int `yaml:"cone_samples"`

	// Workers bounds the goroutines of parallel loops. Zero uses GOMAXPROCS.
	Workers int `yaml:"workers"`
	// Logger receives progress messages if not nil.
	Logger *log.Logger `yaml:"-"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	sw := shrinkwrap.DefaultParams()
	return Config{
		SurfaceThickness:       0.4,
		ShrinkWrapIterations:   sw.Iterations,
		StreamLineLength:       30,
		DistanceFromStreamLine: 1,
		MinimumSurfaceArea:     1,
		MarginPercent:          40,
		GridResolution:         250,
		CooldownIterations:     sw.Cooldown,
		ShrinkStep:             sw.Step,
		CooldownStep:           sw.CooldownStep,
		ShrinkVertices:         sw.Vertices,
		CooldownVertices:       sw.CooldownVertices,
		ShrinkSmoothing:        sw.Smoothing,
		CooldownSmoothing:      sw.CooldownSmoothing,
		ConeAngles:             []float64{0, 10, 20, 30},
		ConeSamples:            8,
	}
}

// Validate returns an error wrapping ErrInvalidInput if any value is unusable.
func (c Config) Validate() error {
	positive := func(v float64) bool { return v > 0 && !math.IsInf(v, 0) }
	nonNegative := func(v float64) bool { return v >= 0 && !math.IsInf(v, 0) }
	switch {
	case !positive(c.SurfaceThickness):
		return errors.Wrapf(ErrInvalidInput, "surface thickness %g must be positive", c.SurfaceThickness)
	case !positive(c.StreamLineLength):
		return errors.Wrapf(ErrInvalidInput, "stream line length %g must be positive", c.StreamLineLength)
	case !nonNegative(c.DistanceFromStreamLine):
		return errors.Wrapf(ErrInvalidInput, "distance from stream line %g must not be negative", c.DistanceFromStreamLine)
	case !nonNegative(c.MinimumSurfaceArea):
		return errors.Wrapf(ErrInvalidInput, "minimum surface area %g must not be negative", c.MinimumSurfaceArea)
	case !nonNegative(c.MarginPercent):
		return errors.Wrapf(ErrInvalidInput, "margin %g%% must not be negative", c.MarginPercent)
	case c.GridResolution < 2:
		return errors.Wrapf(ErrInvalidInput, "grid resolution %d must be at least 2", c.GridResolution)
	case len(c.ConeAngles) == 0:
		return errors.Wrap(ErrInvalidInput, "no cone angles")
	case c.ConeSamples < 1:
		return errors.Wrapf(ErrInvalidInput, "cone samples %d must be at least 1", c.ConeSamples)
	}
	for _, a := range c.ConeAngles {
		if !(a >= 0 && a < 90) {
			return errors.Wrapf(ErrInvalidInput, "cone angle %g outside [0, 90)", a)
		}
	}
	if err := c.shrinkParams().Validate(); err != nil {
		return errors.WithMessage(err, "shrink wrap")
	}
	return nil
}

func (c Config) shrinkParams() shrinkwrap.Params {
	return shrinkwrap.Params{
		Iterations:        c.ShrinkWrapIterations,
		Cooldown:          c.CooldownIterations,
		Step:              c.ShrinkStep,
		CooldownStep:      c.CooldownStep,
		Vertices:          c.ShrinkVertices,
		CooldownVertices:  c.CooldownVertices,
		Smoothing:         c.ShrinkSmoothing,
		CooldownSmoothing: c.CooldownSmoothing,
		Workers:           c.Workers,
		Logger:            c.Logger,
	}
}

func (c Config) logf(format string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}
