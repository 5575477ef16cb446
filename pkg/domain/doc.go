// Package domain holds the wire-level types shared by the consumer-side
// controller and the solver-side service: geometry primitives, the simulation
// request schema, and the sentinel errors both sides report.
//
// The types here are deliberately free of behavior beyond decoding and
// validation; the geometry math lives in pkg/geom and pkg/sdf.
package domain
