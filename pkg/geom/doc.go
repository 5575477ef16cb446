// Package geom reduces raw design-surface polylines to solver-ready vertex
// counts and maps arbitrary real-world extents into the solver's normalized
// coordinate space.
package geom
