package controller

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/caforneris/flowbridge/pkg/domain"
)

// Process is a handle to a spawned solver process.
type Process interface {
	// Wait blocks until the process exits.
	Wait() error
	// Kill force-terminates the process.
	Kill() error
}

// Launcher spawns solver processes. The exec-backed implementation is the
// default; tests substitute fakes.
type Launcher interface {
	// Locate resolves the command to a runnable path, or fails without
	// spawning anything.
	Locate(command string) (string, error)
	// Start spawns the process.
	Start(path string, args ...string) (Process, error)
}

// ExecLauncher runs solver processes with os/exec.
type ExecLauncher struct{}

// Locate checks the executable exists before any spawn attempt: a missing
// solver is a lifecycle error, not a failed health check.
func (ExecLauncher) Locate(command string) (string, error) {
	if strings.ContainsRune(command, os.PathSeparator) {
		info, err := os.Stat(command)
		if err != nil || info.IsDir() {
			return "", fmt.Errorf("%w: %s", domain.ErrExecutableNotFound, command)
		}
		return command, nil
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrExecutableNotFound, command)
	}
	return path, nil
}

// Start spawns the process detached from any request context; its lifetime
// is managed by the session, not a deadline.
func (ExecLauncher) Start(path string, args ...string) (Process, error) {
	cmd := exec.Command(path, args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to spawn solver: %w", err)
	}
	return execProcess{cmd}, nil
}

type execProcess struct{ cmd *exec.Cmd }

func (p execProcess) Wait() error { return p.cmd.Wait() }

func (p execProcess) Kill() error { return p.cmd.Process.Kill() }
