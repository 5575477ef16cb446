package sdf

import "github.com/caforneris/flowbridge/pkg/domain"

// FallbackReason explains why Load substituted the fallback shape. The
// fallback path is a normal branch, not an error: a degenerate sketch still
// gets a solvable obstacle, and callers can inspect (and log) the reason.
type FallbackReason int

const (
	// FallbackNone means the input geometry was used as-is.
	FallbackNone FallbackReason = iota
	// FallbackNoPolylines means the request carried no geometry at all.
	FallbackNoPolylines
	// FallbackDegenerate means geometry was present but no polyline had the
	// three or more vertices a polygon needs.
	FallbackDegenerate
)

func (r FallbackReason) String() string {
	switch r {
	case FallbackNone:
		return "none"
	case FallbackNoPolylines:
		return "no polylines"
	case FallbackDegenerate:
		return "degenerate polylines"
	default:
		return "unknown"
	}
}

// Load builds a Field from the polylines, substituting fallback when the
// input cannot produce a single usable polygon.
func Load(polylines []domain.Polyline, fallback Circle) (*Field, FallbackReason) {
	if len(polylines) == 0 {
		return FromCircle(fallback), FallbackNoPolylines
	}
	f := Build(polylines)
	if f.Empty() {
		return FromCircle(fallback), FallbackDegenerate
	}
	return f, FallbackNone
}
