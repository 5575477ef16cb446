package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// SimulationRequest is the payload posted to the solver service. It is
// created once per apply action and consumed exactly once.
type SimulationRequest struct {
	Parameters map[string]any `json:"simulation_parameters"`
	Polylines  []Polyline     `json:"polylines"`
}

// Parameters is the canonical typed view of the simulation_parameters map.
// Keys are snake_case only; there is exactly one spelling per field and
// unknown keys are a schema error rather than being probed under alternate
// casings.
type Parameters struct {
	SimplifyTolerance float64 `mapstructure:"simplify_tolerance"`
	MaxPointsPerPoly  int     `mapstructure:"max_points_per_poly"`
	DomainWidth       float64 `mapstructure:"domain_width"`
	DomainHeight      float64 `mapstructure:"domain_height"`
	GridResolutionX   int     `mapstructure:"grid_resolution_x"`
	GridResolutionY   int     `mapstructure:"grid_resolution_y"`
	ObjectScaleFactor float64 `mapstructure:"object_scale_factor"`
	SolveIterations   int     `mapstructure:"solve_iterations"`

	// Optional output overrides. Empty means the service uses its own
	// configured locations and default preview behavior.
	FrameOutputPath  string `mapstructure:"frame_output_path"`
	ResultOutputPath string `mapstructure:"result_output_path"`
}

// DefaultParameters returns the parameter set used when a field is absent
// from the request map.
func DefaultParameters() Parameters {
	return Parameters{
		SimplifyTolerance: 0,
		MaxPointsPerPoly:  120,
		DomainWidth:       4,
		DomainHeight:      2,
		GridResolutionX:   256,
		GridResolutionY:   128,
		ObjectScaleFactor: 0.25,
		SolveIterations:   60,
	}
}

// DecodeParameters decodes the raw key/value map into Parameters, starting
// from the defaults. Unknown keys and mistyped values are rejected with a
// schema error.
func DecodeParameters(raw map[string]any) (Parameters, error) {
	p := DefaultParameters()
	if raw == nil {
		return p, nil
	}

	var meta mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &p,
		Metadata:         &meta,
		ErrorUnused:      true,
		WeaklyTypedInput: false,
	})
	if err != nil {
		return p, fmt.Errorf("building parameter decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return p, fmt.Errorf("invalid simulation_parameters: %w", err)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// Validate checks the numeric ranges the solve pipeline relies on.
func (p Parameters) Validate() error {
	if p.SimplifyTolerance < 0 {
		return fmt.Errorf("simplify_tolerance must be >= 0, got %v", p.SimplifyTolerance)
	}
	if p.MaxPointsPerPoly < 2 {
		return fmt.Errorf("max_points_per_poly must be >= 2, got %d", p.MaxPointsPerPoly)
	}
	if p.DomainWidth <= 0 || p.DomainHeight <= 0 {
		return fmt.Errorf("domain size must be positive, got %vx%v", p.DomainWidth, p.DomainHeight)
	}
	if p.GridResolutionX < 1 || p.GridResolutionY < 1 {
		return fmt.Errorf("grid resolution must be >= 1, got %dx%d", p.GridResolutionX, p.GridResolutionY)
	}
	if p.ObjectScaleFactor <= 0 || p.ObjectScaleFactor >= 1 {
		return fmt.Errorf("object_scale_factor must be in (0, 1), got %v", p.ObjectScaleFactor)
	}
	if p.SolveIterations < 1 {
		return fmt.Errorf("solve_iterations must be >= 1, got %d", p.SolveIterations)
	}
	return nil
}
