package solver

import (
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"io"
	"log/slog"
	"math"

	"github.com/caforneris/flowbridge/internal/logging"
)

// maxCapturedFrames bounds GIF size for long solves; progress frames beyond
// this are spread evenly across the iteration count.
const maxCapturedFrames = 30

// FieldSolver is the default solver. It relaxes a streamfunction around the
// obstacle field with Jacobi iterations and renders the flow-speed magnitude:
// a stand-in for heavier external physics, but a genuine iterative solve that
// exercises the full frame/artifact path.
type FieldSolver struct {
	logger *slog.Logger
}

// NewFieldSolver returns the default solver.
func NewFieldSolver(logger *slog.Logger) *FieldSolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FieldSolver{logger: logger}
}

// Solve implements Solver. Frame publication failures are logged and
// swallowed; previews are best-effort by contract.
func (s *FieldSolver) Solve(ctx context.Context, req Request, frames FrameSink) (Artifact, error) {
	nx, ny := req.Params.GridResolutionX, req.Params.GridResolutionY
	w, h := req.Params.DomainWidth, req.Params.DomainHeight
	iters := req.Params.SolveIterations

	grid := newGrid(nx, ny)
	dx, dy := w/float64(nx), h/float64(ny)
	for j := 0; j < ny; j++ {
		y := (float64(j) + 0.5) * dy
		for i := 0; i < nx; i++ {
			x := (float64(i) + 0.5) * dx
			grid.solid[grid.idx(i, j)] = req.Field.Eval(x, y) < 0
			// Free stream: psi grows linearly with y.
			grid.psi[grid.idx(i, j)] = y
		}
	}
	// The obstacle sits on one streamline.
	for k, solid := range grid.solid {
		if solid {
			grid.psi[k] = h / 2
		}
	}

	frameEvery := iters / maxCapturedFrames
	if frameEvery < 1 {
		frameEvery = 1
	}

	var captured []*image.Paletted
	var delays []int
	for it := 1; it <= iters; it++ {
		if err := ctx.Err(); err != nil {
			return Artifact{}, err
		}
		grid.relax(h)

		if it%frameEvery == 0 || it == iters {
			img := grid.render(dx, dy)
			captured = append(captured, img)
			delays = append(delays, 5)
			if err := frames.PublishFrame(func(w io.Writer) error {
				return png.Encode(w, img)
			}); err != nil {
				s.logger.Warn("live frame publish failed", "run_id", req.RunID, "iteration", it, "err", err)
			}
		}
	}

	anim := &gif.GIF{Image: captured, Delay: delays}
	return Artifact{
		Name: req.RunID + ".gif",
		Encode: func(w io.Writer) error {
			return gif.EncodeAll(w, anim)
		},
	}, nil
}

// grid holds the solve state in flat row-major arrays.
type grid struct {
	nx, ny int
	psi    []float64
	next   []float64
	solid  []bool
}

func newGrid(nx, ny int) *grid {
	n := nx * ny
	return &grid{
		nx:    nx,
		ny:    ny,
		psi:   make([]float64, n),
		next:  make([]float64, n),
		solid: make([]bool, n),
	}
}

func (g *grid) idx(i, j int) int { return j*g.nx + i }

// relax performs one Jacobi sweep. Border cells and obstacle cells keep their
// boundary values.
func (g *grid) relax(domainHeight float64) {
	for j := 1; j < g.ny-1; j++ {
		for i := 1; i < g.nx-1; i++ {
			k := g.idx(i, j)
			if g.solid[k] {
				g.next[k] = g.psi[k]
				continue
			}
			g.next[k] = 0.25 * (g.psi[k-1] + g.psi[k+1] + g.psi[k-g.nx] + g.psi[k+g.nx])
		}
	}
	for i := 0; i < g.nx; i++ {
		g.next[g.idx(i, 0)] = g.psi[g.idx(i, 0)]
		g.next[g.idx(i, g.ny-1)] = g.psi[g.idx(i, g.ny-1)]
	}
	for j := 0; j < g.ny; j++ {
		g.next[g.idx(0, j)] = g.psi[g.idx(0, j)]
		g.next[g.idx(g.nx-1, j)] = g.psi[g.idx(g.nx-1, j)]
	}
	g.psi, g.next = g.next, g.psi
}

// render rasterizes the flow-speed magnitude to a grayscale paletted image,
// obstacle cells in black.
func (g *grid) render(dx, dy float64) *image.Paletted {
	palette := make(color.Palette, 256)
	for i := range palette {
		palette[i] = color.Gray{Y: uint8(i)}
	}
	img := image.NewPaletted(image.Rect(0, 0, g.nx, g.ny), palette)

	speed := make([]float64, g.nx*g.ny)
	maxSpeed := 0.0
	for j := 1; j < g.ny-1; j++ {
		for i := 1; i < g.nx-1; i++ {
			k := g.idx(i, j)
			if g.solid[k] {
				continue
			}
			u := (g.psi[k+g.nx] - g.psi[k-g.nx]) / (2 * dy)
			v := -(g.psi[k+1] - g.psi[k-1]) / (2 * dx)
			speed[k] = math.Hypot(u, v)
			maxSpeed = math.Max(maxSpeed, speed[k])
		}
	}
	if maxSpeed == 0 {
		maxSpeed = 1
	}

	for j := 0; j < g.ny; j++ {
		for i := 0; i < g.nx; i++ {
			k := g.idx(i, j)
			if g.solid[k] {
				img.SetColorIndex(i, g.ny-1-j, 0)
				continue
			}
			v := speed[k] / maxSpeed
			img.SetColorIndex(i, g.ny-1-j, uint8(31+v*224))
		}
	}
	return img
}
