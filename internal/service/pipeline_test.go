package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caforneris/flowbridge/pkg/domain"
	"github.com/caforneris/flowbridge/pkg/sdf"
)

func TestEncodeGeometry_EmptyInputFallsBack(t *testing.T) {
	params := domain.DefaultParameters()

	field, reason := encodeGeometry(nil, params)
	assert.Equal(t, sdf.FallbackNoPolylines, reason)
	// The fallback disc sits at the domain center.
	assert.Negative(t, field.Eval(params.DomainWidth/2, params.DomainHeight/2))
	assert.Positive(t, field.Eval(0, 0))
}

func TestEncodeGeometry_DegeneratePolylinesFallBack(t *testing.T) {
	params := domain.DefaultParameters()
	polys := []domain.Polyline{
		{Points: []domain.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}},
	}
	field, reason := encodeGeometry(polys, params)
	assert.Equal(t, sdf.FallbackDegenerate, reason)
	assert.Negative(t, field.Eval(params.DomainWidth/2, params.DomainHeight/2))
}

func TestEncodeGeometry_ScalesIntoDomain(t *testing.T) {
	params := domain.DefaultParameters()
	// A huge square far from the origin still ends up centered and bounded
	// by the scale fraction.
	polys := []domain.Polyline{{
		Points: []domain.Point{
			{X: 1000, Y: 1000}, {X: 2000, Y: 1000}, {X: 2000, Y: 2000}, {X: 1000, Y: 2000},
		},
		Closed: true,
	}}
	field, reason := encodeGeometry(polys, params)
	require.Equal(t, sdf.FallbackNone, reason)

	cx, cy := params.DomainWidth/2, params.DomainHeight/2
	assert.Negative(t, field.Eval(cx, cy), "obstacle must be centered")

	// The mapped square spans objectScale of the smaller axis; beyond that
	// it must be outside.
	half := params.DomainHeight * params.ObjectScaleFactor / 2
	assert.Positive(t, field.Eval(cx+half*1.5, cy))
	assert.Positive(t, field.Eval(cx, cy+half*1.5))
}

func TestEncodeGeometry_SimplificationAppliesTolerance(t *testing.T) {
	params := domain.DefaultParameters()
	params.SimplifyTolerance = 10 // collapses the wiggle below

	// A square with a tiny dent on one edge: the dent vertex is within
	// tolerance and disappears, but the shape stays a solid quad.
	polys := []domain.Polyline{{
		Points: []domain.Point{
			{X: 0, Y: 0}, {X: 50, Y: 0.2}, {X: 100, Y: 0},
			{X: 100, Y: 100}, {X: 0, Y: 100},
		},
		Closed: true,
	}}
	field, reason := encodeGeometry(polys, params)
	require.Equal(t, sdf.FallbackNone, reason)
	assert.Negative(t, field.Eval(params.DomainWidth/2, params.DomainHeight/2))
}
