// Package service is the solver-side process: a single loopback HTTP listener
// that accepts geometry+parameter payloads, runs one solve at a time, and
// produces frames and the final artifact through the handoff layer.
//
// Dispatch is deliberately sequential. The solve saturates the machine on its
// own, so concurrent solves would only thrash; requests queue on the solve
// lock instead.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/caforneris/flowbridge/internal/handoff"
	"github.com/caforneris/flowbridge/internal/logging"
	"github.com/caforneris/flowbridge/internal/solver"
	"github.com/caforneris/flowbridge/pkg/config"
	"github.com/caforneris/flowbridge/pkg/domain"
	"github.com/caforneris/flowbridge/pkg/sdf"
)

// Service wires the HTTP control plane to the solver and the handoff
// publisher. All process-wide flags (the cooperative stop flag in
// particular) live here rather than in package globals, so tests can run
// several services side by side.
type Service struct {
	cfg        config.Service
	handoffCfg config.Handoff
	solver     solver.Solver
	pub        *handoff.Publisher
	logger     *slog.Logger

	stop    atomic.Bool
	solveMu sync.Mutex
	baseCtx context.Context

	registry        *prometheus.Registry
	solvesStarted   prometheus.Counter
	solvesCompleted prometheus.Counter
	decodeRejected  prometheus.Counter
	fallbacksUsed   prometheus.Counter
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithSolver overrides the default field solver.
func WithSolver(sv solver.Solver) ServiceOption {
	return func(s *Service) { s.solver = sv }
}

// New creates a Service publishing into the configured handoff directory.
func New(cfg config.Service, handoffCfg config.Handoff, opts ...ServiceOption) (*Service, error) {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	s := &Service{
		cfg:        cfg,
		handoffCfg: handoffCfg,
		logger:     logging.NewNop(),
		baseCtx:    context.Background(),
		registry:   registry,
		solvesStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "flowbridge_solves_started_total",
			Help: "Solve requests accepted for dispatch.",
		}),
		solvesCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "flowbridge_solves_completed_total",
			Help: "Solves that delivered a final artifact.",
		}),
		decodeRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "flowbridge_requests_rejected_total",
			Help: "Requests rejected for malformed bodies or schema errors.",
		}),
		fallbacksUsed: factory.NewCounter(prometheus.CounterOpts{
			Name: "flowbridge_geometry_fallbacks_total",
			Help: "Solves that ran against the fallback shape.",
		}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.solver == nil {
		s.solver = solver.NewFieldSolver(s.logger)
	}

	pub, err := handoff.NewPublisher(handoffCfg.Dir, handoff.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	s.pub = pub
	return s, nil
}

// Publisher exposes the handoff publisher (the CLI uses it for paths).
func (s *Service) Publisher() *handoff.Publisher { return s.pub }

// StopRequested reports whether the cooperative stop flag is set.
func (s *Service) StopRequested() bool { return s.stop.Load() }

// Handler builds the HTTP routes.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/", s.handleProcess)
	r.Post("/process", s.handleProcess)
	r.Get("/status", s.handleStatus)
	r.Get("/shutdown", s.handleShutdown)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return r
}

// Run serves until the stop flag is set (observed between requests on the
// configured poll interval) or ctx is canceled. A solve in flight always
// runs to completion first.
func (s *Service) Run(ctx context.Context) error {
	s.baseCtx = ctx
	srv := &http.Server{Addr: s.cfg.Addr, Handler: s.Handler()}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("solver service listening", "addr", s.cfg.Addr, "artifact_dir", s.handoffCfg.Dir)
		serverErrors <- srv.ListenAndServe()
	}()

	ticker := time.NewTicker(s.cfg.ShutdownPoll.Std())
	defer ticker.Stop()

	for {
		select {
		case err := <-serverErrors:
			return fmt.Errorf("listener failed: %w", err)
		case <-ctx.Done():
			return s.shutdown(srv)
		case <-ticker.C:
			if s.stop.Load() {
				return s.shutdown(srv)
			}
		}
	}
}

func (s *Service) shutdown(srv *http.Server) error {
	// Wait for the in-flight solve, if any.
	s.solveMu.Lock()
	s.solveMu.Unlock() //nolint:staticcheck // barrier, not critical section

	if err := s.pub.CleanSession(); err != nil {
		s.logger.Warn("session cleanup failed", "err", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown incomplete, closing", "err", err)
		return srv.Close()
	}
	s.logger.Info("solver service stopped")
	return nil
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	io.WriteString(w, "ok\n")
}

func (s *Service) handleShutdown(w http.ResponseWriter, _ *http.Request) {
	s.stop.Store(true)
	s.logger.Info("shutdown requested")
	io.WriteString(w, "shutting down\n")
}

func (s *Service) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req domain.SimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.decodeRejected.Inc()
		s.logger.Warn("malformed request body", "err", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	params, err := domain.DecodeParameters(req.Parameters)
	if err != nil {
		s.decodeRejected.Inc()
		s.logger.Warn("parameter schema rejected", "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	runID := uuid.NewString()
	s.solvesStarted.Inc()

	// One solve at a time; later requests queue here.
	s.solveMu.Lock()
	defer s.solveMu.Unlock()

	finalPath, err := s.runSolve(runID, req, params)
	if err != nil {
		s.logger.Error("solve failed", "run_id", runID, "err", err)
		http.Error(w, fmt.Sprintf("solve failed: %v", err), http.StatusInternalServerError)
		return
	}
	s.solvesCompleted.Inc()

	// The artifact is already durably delivered; the acknowledgement is
	// best-effort. A caller that timed out during a long solve just loses
	// the ack, not the result.
	if _, err := fmt.Fprintf(w, "ok %s\n", finalPath); err != nil {
		s.logger.Warn("acknowledgement write failed after completed solve",
			"run_id", runID, "artifact", finalPath, "err", err)
	}
}

// runSolve executes the full geometry pipeline and one solve. The solve runs
// on the service's base context, not the request context: a disconnected
// caller must not cancel a solve whose artifact is the source of truth.
func (s *Service) runSolve(runID string, req domain.SimulationRequest, params domain.Parameters) (string, error) {
	field, fallback := encodeGeometry(req.Polylines, params)
	if fallback != sdf.FallbackNone {
		s.fallbacksUsed.Inc()
		s.logger.Warn("using fallback shape", "run_id", runID, "reason", fallback.String())
	}

	sink := s.pub
	if params.FrameOutputPath != "" {
		override, err := handoff.NewPublisher(s.pub.Dir(),
			handoff.WithFramePath(params.FrameOutputPath),
			handoff.WithLogger(s.logger))
		if err != nil {
			return "", err
		}
		sink = override
	}

	started := time.Now()
	artifact, err := s.solver.Solve(s.baseCtx, solver.Request{
		Field:  field,
		Params: params,
		RunID:  runID,
	}, sink)
	if err != nil {
		return "", fmt.Errorf("solver: %w", err)
	}
	s.logger.Info("solve finished", "run_id", runID, "elapsed", time.Since(started))

	var finalPath string
	if params.ResultOutputPath != "" {
		finalPath = params.ResultOutputPath
		err = s.pub.DeliverAt(finalPath, artifact.Encode)
	} else {
		finalPath, err = s.pub.Deliver(artifact.Name, artifact.Encode)
	}
	if err != nil {
		return "", err
	}

	if removed, err := s.pub.Prune(s.handoffCfg.Retention); err != nil {
		s.logger.Warn("artifact pruning failed", "err", err)
	} else if len(removed) > 0 {
		s.logger.Info("pruned old artifacts", "count", len(removed))
	}
	return finalPath, nil
}
