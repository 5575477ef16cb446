package geom

import (
	"math"

	"github.com/caforneris/flowbridge/pkg/domain"
)

// distEpsilon guards the perpendicular-distance denominator against
// zero-length chords.
const distEpsilon = 1e-12

// Simplified is a polyline after reduction, carrying the settings it was
// produced with.
type Simplified struct {
	domain.Polyline
	Tolerance float64
	MaxPoints int
}

// SimplifyPolyline canonicalizes pl (dropping a redundant closing vertex) and
// reduces it with Simplify.
func SimplifyPolyline(pl domain.Polyline, tolerance float64, maxPoints int) Simplified {
	pts := Simplify(pl.CanonicalPoints(), tolerance, maxPoints)
	return Simplified{
		Polyline:  domain.Polyline{Points: pts, Closed: pl.Closed},
		Tolerance: tolerance,
		MaxPoints: maxPoints,
	}
}

// Simplify reduces points with Douglas-Peucker at the given tolerance, then
// caps the result at maxPoints by stride resampling. The first and last input
// points always survive. A tolerance of zero is the identity unless the point
// cap forces resampling. Simplify never fails; the worst case is the two-point
// endpoint chord.
func Simplify(points []domain.Point, tolerance float64, maxPoints int) []domain.Point {
	if maxPoints < 2 {
		maxPoints = 2
	}
	if len(points) <= 2 {
		out := make([]domain.Point, len(points))
		copy(out, points)
		return out
	}

	var reduced []domain.Point
	if tolerance <= 0 {
		reduced = points
	} else {
		reduced = douglasPeucker(points, tolerance)
	}
	return capPoints(reduced, maxPoints)
}

// douglasPeucker keeps the recursive split structure of the classic algorithm
// but drives it with an explicit work stack, so near-collinear inputs with
// very many vertices cannot exhaust the call stack.
func douglasPeucker(points []domain.Point, tolerance float64) []domain.Point {
	n := len(points)
	keep := make([]bool, n)
	keep[0], keep[n-1] = true, true

	type span struct{ first, last int }
	stack := []span{{0, n - 1}}

	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.last-s.first < 2 {
			continue
		}

		maxDist := 0.0
		maxIdx := s.first
		for i := s.first + 1; i < s.last; i++ {
			d := perpDistance(points[i], points[s.first], points[s.last])
			if d > maxDist {
				maxDist = d
				maxIdx = i
			}
		}

		if maxDist > tolerance {
			keep[maxIdx] = true
			stack = append(stack, span{s.first, maxIdx}, span{maxIdx, s.last})
		}
	}

	out := make([]domain.Point, 0, n)
	for i, k := range keep {
		if k {
			out = append(out, points[i])
		}
	}
	return out
}

// perpDistance is the distance from p to the infinite line through a and b,
// using the implicit form |a·x+b·y+c| / sqrt(a²+b²+ε). The epsilon keeps a
// degenerate (zero-length) chord from dividing by zero; in that case the
// result decays toward the distance from a.
func perpDistance(p, a, b domain.Point) float64 {
	la := b.Y - a.Y
	lb := a.X - b.X
	lc := b.X*a.Y - a.X*b.Y
	return math.Abs(la*p.X+lb*p.Y+lc) / math.Sqrt(la*la+lb*lb+distEpsilon)
}

// capPoints resamples by fixed stride when the reduction still exceeds the
// cap, always forcing the final point back in.
func capPoints(points []domain.Point, maxPoints int) []domain.Point {
	n := len(points)
	if n <= maxPoints {
		out := make([]domain.Point, n)
		copy(out, points)
		return out
	}

	stride := (n + maxPoints - 1) / maxPoints
	out := make([]domain.Point, 0, maxPoints+1)
	for i := 0; i < n; i += stride {
		out = append(out, points[i])
	}
	if last := points[n-1]; out[len(out)-1] != last {
		out = append(out, last)
	}
	return out
}
