/*
Package flowbridge bridges an interactive 2D design surface to a long-running
numerical flow solver running in a separate process.

The consumer side hands obstacle polylines and simulation parameters to the
solver over loopback HTTP and watches results arrive through a shared artifact
directory. The solver side runs one solve at a time, streams best-effort
preview frames while it works, and delivers the finished result file through a
stage-then-rename handoff so a reader can never observe a torn write.

# Architecture

The repo follows a ports-and-adapters split:

  - pkg/geom: polyline simplification (Douglas-Peucker) and the reversible
    mapping from design-space extents into the solver's normalized domain.
  - pkg/sdf: signed-distance fields over polygon unions, with a deterministic
    fallback shape for degenerate geometry.
  - pkg/domain: the wire-level request/parameter schema shared by both sides.
  - internal/service: the solver-side HTTP control plane.
  - internal/solver: the default field solver producing frames and the final
    animation artifact.
  - internal/controller: the consumer-side session lifecycle (start, apply,
    stop, crash observation).
  - internal/handoff: the file-based frame/artifact synchronization layer.

The consumer never blocks on a solve: ApplyParameters returns once the request
is on the wire, and completion is observed by polling for the final artifact
path, whose appearance is made atomic by the rename in the handoff layer.
*/
package flowbridge

// Version is the current flowbridge release.
const Version = "0.3.1"
