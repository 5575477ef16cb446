// Package sdf builds signed-distance queries over unions of simple polygons.
// Distances are negative inside a shape, positive outside, with magnitude
// equal to the distance to the nearest boundary. Self-intersecting polygons
// are not supported.
package sdf

import (
	"math"

	"github.com/caforneris/flowbridge/pkg/domain"
)

// projEpsilon guards the clamped-projection denominator for zero-length edges.
const projEpsilon = 1e-12

// polygon holds precomputed coordinate arrays so queries never re-walk the
// input structures.
type polygon struct {
	xs, ys []float64
}

// Circle is an analytic disc, used as the deterministic fallback shape when
// the input geometry is unusable.
type Circle struct {
	CX, CY float64
	R      float64
}

// Field is a signed-distance query over a union of polygons (or a fallback
// circle). A Field is immutable after Build and safe for concurrent reads;
// each solve owns exactly one.
type Field struct {
	polys  []polygon
	circle *Circle
}

// Build compiles the given polygons into a Field. Polylines with fewer than
// three vertices are skipped; the caller decides whether an empty result
// warrants the fallback shape (see Load).
func Build(polylines []domain.Polyline) *Field {
	f := &Field{}
	for _, pl := range polylines {
		pts := pl.CanonicalPoints()
		if len(pts) < 3 {
			continue
		}
		poly := polygon{xs: make([]float64, len(pts)), ys: make([]float64, len(pts))}
		for i, p := range pts {
			poly.xs[i] = p.X
			poly.ys[i] = p.Y
		}
		f.polys = append(f.polys, poly)
	}
	return f
}

// FromCircle returns a Field evaluating the analytic disc c.
func FromCircle(c Circle) *Field {
	return &Field{circle: &c}
}

// Empty reports whether the field has no shapes at all.
func (f *Field) Empty() bool {
	return len(f.polys) == 0 && f.circle == nil
}

// Eval returns the signed distance from (x, y) to the union boundary. The
// union of shapes is the pointwise minimum of their signed distances, which
// is symmetric, associative, and exact for disjoint obstacles.
func (f *Field) Eval(x, y float64) float64 {
	d := math.Inf(1)
	if f.circle != nil {
		d = math.Hypot(x-f.circle.CX, y-f.circle.CY) - f.circle.R
	}
	for i := range f.polys {
		d = math.Min(d, f.polys[i].signedDist(x, y))
	}
	return d
}

func (p *polygon) signedDist(x, y float64) float64 {
	n := len(p.xs)
	minDist := math.Inf(1)
	inside := false

	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		// Unsigned distance to edge j->i via clamped projection.
		vx, vy := p.xs[i]-p.xs[j], p.ys[i]-p.ys[j]
		wx, wy := x-p.xs[j], y-p.ys[j]
		t := (wx*vx + wy*vy) / (vx*vx + vy*vy + projEpsilon)
		t = math.Max(0, math.Min(1, t))
		dx, dy := wx-t*vx, wy-t*vy
		minDist = math.Min(minDist, math.Hypot(dx, dy))

		// Even-odd crossing count against the horizontal ray. The strict
		// inequality pairing skips horizontal edges and counts each vertex
		// crossing exactly once.
		if (p.ys[i] > y) != (p.ys[j] > y) {
			xCross := p.xs[j] + (y-p.ys[j])*(p.xs[i]-p.xs[j])/(p.ys[i]-p.ys[j])
			if x < xCross {
				inside = !inside
			}
		}
	}

	if inside {
		return -minDist
	}
	return minDist
}
