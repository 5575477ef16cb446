package geom

import (
	"fmt"
	"math"

	"github.com/caforneris/flowbridge/pkg/domain"
)

// Rect is an axis-aligned extent in the plane.
type Rect struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// BoundsOf returns the extent of all points across the given polylines.
// ok is false when there are no points at all.
func BoundsOf(polylines []Simplified) (r Rect, ok bool) {
	r = Rect{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, pl := range polylines {
		for _, p := range pl.Points {
			r.MinX = math.Min(r.MinX, p.X)
			r.MinY = math.Min(r.MinY, p.Y)
			r.MaxX = math.Max(r.MaxX, p.X)
			r.MaxY = math.Max(r.MaxY, p.Y)
			ok = true
		}
	}
	return r, ok
}

// Width returns the horizontal span of r.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the vertical span of r.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Center returns the midpoint of r.
func (r Rect) Center() domain.Point {
	return domain.Point{X: (r.MinX + r.MaxX) / 2, Y: (r.MinY + r.MaxY) / 2}
}

// Mapping is a reversible uniform scale-and-translate from a design-space
// extent into the solver's target domain. The scale is isotropic, so aspect
// ratio is preserved and the object occupies at most scaleFraction of the
// target along either axis.
type Mapping struct {
	scale        float64
	extentCenter domain.Point
	targetCenter domain.Point
}

// NewMapping builds the mapping that centers extent inside target, scaled so
// the object spans at most scaleFraction of the target in each axis.
func NewMapping(extent, target Rect, scaleFraction float64) (Mapping, error) {
	if scaleFraction <= 0 || scaleFraction >= 1 {
		return Mapping{}, fmt.Errorf("scale fraction must be in (0, 1), got %v", scaleFraction)
	}

	// A zero-span extent (single point, or axis-aligned segment) still gets
	// a finite scale from the other axis; a point extent falls back to 1.
	sx, sy := math.Inf(1), math.Inf(1)
	if w := extent.Width(); w > 0 {
		sx = target.Width() * scaleFraction / w
	}
	if h := extent.Height(); h > 0 {
		sy = target.Height() * scaleFraction / h
	}
	scale := math.Min(sx, sy)
	if math.IsInf(scale, 1) {
		scale = 1
	}

	return Mapping{
		scale:        scale,
		extentCenter: extent.Center(),
		targetCenter: target.Center(),
	}, nil
}

// Scale exposes the uniform scale factor.
func (m Mapping) Scale() float64 { return m.scale }

// Forward maps a design-space point into the target domain.
func (m Mapping) Forward(p domain.Point) domain.Point {
	return domain.Point{
		X: (p.X-m.extentCenter.X)*m.scale + m.targetCenter.X,
		Y: (p.Y-m.extentCenter.Y)*m.scale + m.targetCenter.Y,
		Z: p.Z,
	}
}

// Inverse maps a target-domain point back into design space. For any p,
// Inverse(Forward(p)) == p up to floating tolerance.
func (m Mapping) Inverse(p domain.Point) domain.Point {
	return domain.Point{
		X: (p.X-m.targetCenter.X)/m.scale + m.extentCenter.X,
		Y: (p.Y-m.targetCenter.Y)/m.scale + m.extentCenter.Y,
		Z: p.Z,
	}
}

// ForwardPolyline maps every vertex of pl into the target domain.
func (m Mapping) ForwardPolyline(pl Simplified) Simplified {
	out := pl
	out.Points = make([]domain.Point, len(pl.Points))
	for i, p := range pl.Points {
		out.Points[i] = m.Forward(p)
	}
	return out
}
