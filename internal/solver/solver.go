// Package solver runs one numerical solve at a time against a compiled
// signed-distance field. The service treats implementations as opaque: they
// consume the encoded geometry and parameters, emit preview frames while
// running, and hand back one final artifact encoder.
package solver

import (
	"context"
	"io"

	"github.com/caforneris/flowbridge/pkg/domain"
	"github.com/caforneris/flowbridge/pkg/sdf"
)

// Request is one solve's input: the obstacle field already mapped into the
// solver domain, plus the validated parameters and the run identity.
type Request struct {
	Field  *sdf.Field
	Params domain.Parameters
	RunID  string
}

// FrameSink receives best-effort preview frames during a solve. The handoff
// Publisher satisfies it.
type FrameSink interface {
	PublishFrame(encode func(io.Writer) error) error
}

// Artifact is the durable result of a finished solve. Name is the suggested
// file name; Encode writes the complete content in one pass so the handoff
// layer can stage and rename it.
type Artifact struct {
	Name   string
	Encode func(io.Writer) error
}

// Solver is the interface the service dispatches requests to.
type Solver interface {
	Solve(ctx context.Context, req Request, frames FrameSink) (Artifact, error)
}
