package service

import (
	"math"

	"github.com/caforneris/flowbridge/pkg/domain"
	"github.com/caforneris/flowbridge/pkg/geom"
	"github.com/caforneris/flowbridge/pkg/sdf"
)

// encodeGeometry turns the raw request polylines into the solver-domain
// signed-distance field: simplify, fit the combined extent into the target
// domain, then compile the union field. Degenerate geometry never fails the
// solve; the deterministic fallback shape is substituted and reported.
func encodeGeometry(polylines []domain.Polyline, params domain.Parameters) (*sdf.Field, sdf.FallbackReason) {
	target := geom.Rect{MaxX: params.DomainWidth, MaxY: params.DomainHeight}
	center := target.Center()
	fallback := sdf.Circle{
		CX: center.X,
		CY: center.Y,
		R:  math.Min(params.DomainWidth, params.DomainHeight) * params.ObjectScaleFactor / 2,
	}

	simplified := make([]geom.Simplified, 0, len(polylines))
	for _, pl := range polylines {
		simplified = append(simplified, geom.SimplifyPolyline(pl, params.SimplifyTolerance, params.MaxPointsPerPoly))
	}

	extent, ok := geom.BoundsOf(simplified)
	if !ok {
		return sdf.FromCircle(fallback), sdf.FallbackNoPolylines
	}

	mapping, err := geom.NewMapping(extent, target, params.ObjectScaleFactor)
	if err != nil {
		// Parameters are validated before this point; an invalid fraction
		// here means degenerate input, handled like empty geometry.
		return sdf.FromCircle(fallback), sdf.FallbackDegenerate
	}

	mapped := make([]domain.Polyline, len(simplified))
	for i, pl := range simplified {
		mapped[i] = mapping.ForwardPolyline(pl).Polyline
	}
	return sdf.Load(mapped, fallback)
}
