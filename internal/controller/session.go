// Package controller manages the consumer-side lifecycle of the solver
// process: spawning it, probing readiness, posting requests, and stopping it
// with a kill fallback. No call here blocks its caller beyond the time needed
// to issue the underlying network or spawn call.
package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/caforneris/flowbridge/internal/logging"
	"github.com/caforneris/flowbridge/pkg/config"
	"github.com/caforneris/flowbridge/pkg/domain"
)

// State is the lifecycle state of the solver session.
type State string

const (
	Stopped  State = "stopped"
	Starting State = "starting"
	Running  State = "running"
	Stopping State = "stopping"
	// Crashed marks an unexpected process exit. Externally it behaves like
	// Stopped; it exists so the distinct cause stays visible in logs and
	// inspection.
	Crashed State = "crashed"
)

// Session owns the state machine for one solver process. All mutation goes
// through the session; no other component touches the state.
type Session struct {
	cfg      config.Controller
	launcher Launcher
	client   *http.Client
	logger   *slog.Logger

	mu    sync.Mutex
	state State
	proc  Process
	// exited is closed by the process watcher when the current process
	// ends; Stop selects on it for the grace wait.
	exited chan struct{}
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLauncher substitutes the process launcher (tests use fakes).
func WithLauncher(l Launcher) SessionOption {
	return func(s *Session) { s.launcher = l }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// WithHTTPClient substitutes the HTTP client.
func WithHTTPClient(c *http.Client) SessionOption {
	return func(s *Session) { s.client = c }
}

// NewSession creates a session in the Stopped state.
func NewSession(cfg config.Controller, opts ...SessionOption) *Session {
	s := &Session{
		cfg:      cfg,
		launcher: ExecLauncher{},
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logging.NewNop(),
		state:    Stopped,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start locates and spawns the solver process. It fails fast, staying
// Stopped, when the executable cannot be found; the check precedes the
// spawn. On success the session is Starting and a background probe promotes
// it to Running once /status answers — Start itself does not wait for that.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Starting, Running:
		s.logger.Warn("start ignored, solver already up", "state", s.state)
		return nil
	case Stopping:
		return fmt.Errorf("solver session is stopping, retry after it stops")
	}

	path, err := s.launcher.Locate(s.cfg.Command)
	if err != nil {
		s.logger.Error("solver executable missing", "command", s.cfg.Command, "err", err)
		return err
	}

	proc, err := s.launcher.Start(path, s.cfg.Args...)
	if err != nil {
		return err
	}

	s.proc = proc
	s.state = Starting
	s.exited = make(chan struct{})
	s.logger.Info("solver process spawned", "path", path)

	go s.watchExit(proc, s.exited)
	go s.probeReady()
	return nil
}

// watchExit observes the process ending. An exit while not Stopping is a
// crash: logged distinctly, treated as Stopped from then on.
func (s *Session) watchExit(proc Process, exited chan struct{}) {
	err := proc.Wait()
	close(exited)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc != proc {
		return
	}
	s.proc = nil
	switch s.state {
	case Stopping, Stopped:
		// Expected exit path; Stop owns the transition.
	default:
		s.logger.Error("solver process exited unexpectedly", "state", s.state, "err", err)
		s.state = Crashed
	}
}

// probeReady polls /status until the service answers or the startup window
// closes. On timeout the process is stopped and the session returns to
// Stopped.
func (s *Session) probeReady() {
	deadline := time.Now().Add(s.cfg.StartTimeout.Std())
	ticker := time.NewTicker(s.cfg.StatusPoll.Std())
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		if s.state != Starting {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		if s.statusOK() {
			s.mu.Lock()
			if s.state == Starting {
				s.state = Running
				s.logger.Info("solver ready")
			}
			s.mu.Unlock()
			return
		}

		if time.Now().After(deadline) {
			s.logger.Error("solver never became ready", "timeout", s.cfg.StartTimeout.Std(), "err", domain.ErrStartTimeout)
			s.Stop()
			return
		}
	}
}

func (s *Session) statusOK() bool {
	resp, err := s.client.Get(s.cfg.BaseURL + "/status")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// WaitReady blocks until the session reaches Running, the session leaves the
// Starting path, or ctx is done. It is a convenience for CLI flows and tests;
// event-loop consumers rely on State instead.
func (s *Session) WaitReady(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.StatusPoll.Std())
	defer ticker.Stop()
	for {
		switch s.State() {
		case Running:
			return nil
		case Stopped, Crashed:
			return domain.ErrStartTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Stop shuts the solver down: a cooperative /shutdown request, a grace wait
// for the process to exit, then a forced kill. It always leaves the session
// Stopped and is idempotent — stopping a stopped session is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state == Stopped || s.state == Stopping {
		s.mu.Unlock()
		return
	}
	proc := s.proc
	exited := s.exited
	s.state = Stopping
	s.mu.Unlock()

	if proc == nil {
		// Process already gone (crashed or never spawned).
		s.finishStop()
		return
	}

	// Cooperative path: the service polls its stop flag between requests
	// and exits once the in-flight solve (if any) completes.
	if resp, err := s.client.Get(s.cfg.BaseURL + "/shutdown"); err != nil {
		s.logger.Warn("shutdown request failed, will force-terminate", "err", err)
	} else {
		resp.Body.Close()
	}

	select {
	case <-exited:
		s.logger.Info("solver exited cooperatively")
	case <-time.After(s.cfg.StopGrace.Std()):
		s.logger.Warn("grace period elapsed, killing solver", "grace", s.cfg.StopGrace.Std())
		if err := proc.Kill(); err != nil {
			s.logger.Warn("kill failed", "err", err)
		}
		<-exited
	}
	s.finishStop()
}

func (s *Session) finishStop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proc = nil
	s.state = Stopped
	s.logger.Info("solver session stopped")
}

// Apply serializes the request and posts it without waiting for the solve.
// Completion is observed through the artifact handoff, not the HTTP
// response. When the session is not Running this is a warning-level no-op:
// domain.ErrNotRunning comes back and no network call is made.
func (s *Session) Apply(req domain.SimulationRequest) error {
	if st := s.State(); st != Running {
		s.logger.Warn("apply ignored, solver not running", "state", st)
		return domain.ErrNotRunning
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to serialize request: %w", err)
	}

	go func() {
		// The solve can outlive any sane HTTP timeout; the response is
		// only an acknowledgement and losing it is harmless.
		resp, err := s.client.Post(s.cfg.BaseURL+"/process", "application/json", bytes.NewReader(body))
		if err != nil {
			s.logger.Warn("apply acknowledgement not received", "err", err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			s.logger.Warn("solver rejected request", "status", resp.StatusCode)
			return
		}
		s.logger.Debug("solver acknowledged request")
	}()
	return nil
}
