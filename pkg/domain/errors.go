package domain

import "errors"

// ErrNotRunning is returned when a request is applied to a session whose
// solver process is not in the Running state. Callers treat it as a warning:
// no network call was made and the session is unchanged.
var ErrNotRunning = errors.New("solver session not running")

// ErrExecutableNotFound is returned by session start when the solver
// executable cannot be located. The check happens before spawning, so the
// session stays Stopped.
var ErrExecutableNotFound = errors.New("solver executable not found")

// ErrStartTimeout is returned when the solver process spawned but never
// answered its liveness probe within the configured startup window.
var ErrStartTimeout = errors.New("solver did not become ready in time")

// ErrHandoff wraps failures of the final-artifact rename. The staged file is
// left in place for manual recovery; the run cannot complete.
var ErrHandoff = errors.New("artifact handoff failed")
