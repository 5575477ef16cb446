package solver_test

import (
	"bytes"
	"context"
	"image/gif"
	"image/png"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caforneris/flowbridge/internal/solver"
	"github.com/caforneris/flowbridge/pkg/domain"
	"github.com/caforneris/flowbridge/pkg/sdf"
)

// captureSink records every published frame.
type captureSink struct {
	frames [][]byte
}

func (c *captureSink) PublishFrame(encode func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := encode(&buf); err != nil {
		return err
	}
	c.frames = append(c.frames, buf.Bytes())
	return nil
}

func smallRequest() solver.Request {
	params := domain.DefaultParameters()
	params.GridResolutionX = 24
	params.GridResolutionY = 12
	params.SolveIterations = 8
	return solver.Request{
		Field:  sdf.FromCircle(sdf.Circle{CX: 2, CY: 1, R: 0.3}),
		Params: params,
		RunID:  "test-run",
	}
}

func TestFieldSolver_ProducesFramesAndGIF(t *testing.T) {
	s := solver.NewFieldSolver(nil)
	sink := &captureSink{}

	artifact, err := s.Solve(context.Background(), smallRequest(), sink)
	require.NoError(t, err)
	assert.Equal(t, "test-run.gif", artifact.Name)
	require.NotEmpty(t, sink.frames, "no live frames published")

	// Each live frame is a decodable PNG of the grid size.
	img, err := png.Decode(bytes.NewReader(sink.frames[len(sink.frames)-1]))
	require.NoError(t, err)
	assert.Equal(t, 24, img.Bounds().Dx())
	assert.Equal(t, 12, img.Bounds().Dy())

	// The artifact is a decodable animation with one image per frame.
	var buf bytes.Buffer
	require.NoError(t, artifact.Encode(&buf))
	anim, err := gif.DecodeAll(&buf)
	require.NoError(t, err)
	assert.Len(t, anim.Image, len(sink.frames))
}

func TestFieldSolver_ObstacleRenderedSolid(t *testing.T) {
	s := solver.NewFieldSolver(nil)
	sink := &captureSink{}

	req := smallRequest()
	artifact, err := s.Solve(context.Background(), req, sink)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, artifact.Encode(&buf))
	anim, err := gif.DecodeAll(&buf)
	require.NoError(t, err)

	// The obstacle sits at the domain center; its cell must be black while
	// the far field is not.
	last := anim.Image[len(anim.Image)-1]
	cx := int(req.Params.DomainWidth / 2 / (req.Params.DomainWidth / 24))
	cy := 12 - 1 - int(req.Params.DomainHeight/2/(req.Params.DomainHeight/12))
	assert.Equal(t, uint8(0), last.ColorIndexAt(cx, cy), "obstacle cell not solid")
}

func TestFieldSolver_HonorsCancellation(t *testing.T) {
	s := solver.NewFieldSolver(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Solve(ctx, smallRequest(), &captureSink{})
	assert.ErrorIs(t, err, context.Canceled)
}
