package domain

import "math"

// Point is a single vertex as it travels over the wire. The host canvas is
// three-dimensional, so Z is carried for round-tripping, but the solver
// pipeline is planar and only ever reads X and Y.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z,omitempty"`
}

// Sub returns p - q, component-wise in the plane.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z}
}

// Dot returns the planar dot product of p and q.
func (p Point) Dot(q Point) float64 {
	return p.X*q.X + p.Y*q.Y
}

// Dist returns the planar Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Polyline is an ordered vertex sequence. A closed polyline logically wraps
// last to first; a duplicated closing vertex is redundant and is dropped by
// CanonicalPoints before any processing.
type Polyline struct {
	Points []Point `json:"points"`
	Closed bool    `json:"closed"`
}

// CanonicalPoints returns the vertex sequence with a redundant closing
// duplicate removed. The wrap from last to first is implied by Closed.
func (pl Polyline) CanonicalPoints() []Point {
	pts := pl.Points
	if pl.Closed && len(pts) > 1 {
		first, last := pts[0], pts[len(pts)-1]
		if first.X == last.X && first.Y == last.Y {
			pts = pts[:len(pts)-1]
		}
	}
	out := make([]Point, len(pts))
	copy(out, pts)
	return out
}
