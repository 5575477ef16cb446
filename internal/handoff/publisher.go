// Package handoff implements the file-based synchronization protocol between
// the solver service (the single writer) and any number of consumers.
//
// Two patterns coexist. Live preview frames overwrite one fixed path in place
// and are read defensively; there is no completeness guarantee. The final
// artifact is written to a staging file in the destination directory and then
// atomically renamed into its final path, so the final path never exposes a
// torn write. No locks are involved on either side.
package handoff

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/caforneris/flowbridge/internal/logging"
	"github.com/caforneris/flowbridge/pkg/domain"
)

const (
	// frameName is the fixed live-preview path inside the artifact dir.
	frameName = "preview.png"
	// stagePrefix marks in-flight staging files so pruning and session
	// cleanup can recognize them.
	stagePrefix = ".stage-"
)

// DefaultFramePath returns the live-frame path a Publisher rooted at dir
// uses when no override is configured.
func DefaultFramePath(dir string) string {
	return filepath.Join(dir, frameName)
}

// IsFinalArtifact reports whether name (a plain file name inside the
// artifact directory) is a delivered final artifact, as opposed to the live
// frame or a staging file.
func IsFinalArtifact(name string) bool {
	return name != frameName && !strings.HasPrefix(name, stagePrefix)
}

// Publisher is the producer side of the handoff protocol. It owns the
// artifact directory; nothing else writes there.
type Publisher struct {
	dir       string
	framePath string
	logger    *slog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithFramePath overrides the live-frame location. An empty path keeps the
// default inside the artifact directory.
func WithFramePath(path string) Option {
	return func(p *Publisher) {
		if path != "" {
			p.framePath = path
		}
	}
}

// NewPublisher creates the artifact directory if needed and returns a
// Publisher rooted there.
func NewPublisher(dir string, opts ...Option) (*Publisher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure artifact directory: %w", err)
	}
	p := &Publisher{
		dir:       dir,
		framePath: filepath.Join(dir, frameName),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Dir returns the artifact directory.
func (p *Publisher) Dir() string { return p.dir }

// FramePath returns the fixed live-frame path consumers poll.
func (p *Publisher) FramePath() string { return p.framePath }

// PublishFrame overwrites the live frame in place with the output of encode.
// Frames are best-effort: a failure is returned for logging but readers are
// expected to tolerate torn or missing frames on their own.
func (p *Publisher) PublishFrame(encode func(io.Writer) error) error {
	f, err := os.OpenFile(p.framePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open live frame: %w", err)
	}
	if err := encode(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode live frame: %w", err)
	}
	return f.Close()
}

// Deliver writes the final artifact for a run. The content is written to a
// staging file in the same directory as the final path (same volume, so the
// rename is atomic), fsynced, closed, and renamed into place. Once the final
// path exists it is complete.
//
// If the rename itself fails the staging file is deliberately left behind for
// manual recovery and the error wraps domain.ErrHandoff.
func (p *Publisher) Deliver(name string, write func(io.Writer) error) (string, error) {
	finalPath := filepath.Join(p.dir, name)
	return finalPath, p.DeliverAt(finalPath, write)
}

// DeliverAt is Deliver with an explicit final path, used when the request
// overrides the output location. Staging always happens next to finalPath.
func (p *Publisher) DeliverAt(finalPath string, write func(io.Writer) error) error {
	dir := filepath.Dir(finalPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, stagePrefix+"*"+filepath.Ext(finalPath))
	if err != nil {
		return fmt.Errorf("failed to create staging file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write staged artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to fsync staged artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close staged artifact: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		// Keep the staged file; it holds the only complete copy of the
		// result and the operator can recover it by hand.
		p.logger.Error("artifact rename failed, staged copy retained",
			"staged", tmpPath, "final", finalPath, "err", err)
		return fmt.Errorf("%w: rename %s -> %s: %v", domain.ErrHandoff, tmpPath, finalPath, err)
	}
	return nil
}

// Prune removes final artifacts beyond retain, oldest first by modification
// time. Staging files and the live frame are never counted.
func (p *Publisher) Prune(retain int) ([]string, error) {
	if retain < 0 {
		retain = 0
	}
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifact directory: %w", err)
	}

	type finalFile struct {
		path string
		mod  int64
	}
	var finals []finalFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == frameName || strings.HasPrefix(name, stagePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		finals = append(finals, finalFile{filepath.Join(p.dir, name), info.ModTime().UnixNano()})
	}
	if len(finals) <= retain {
		return nil, nil
	}

	sort.Slice(finals, func(i, j int) bool { return finals[i].mod < finals[j].mod })

	var removed []string
	for _, f := range finals[:len(finals)-retain] {
		if err := os.Remove(f.path); err != nil {
			p.logger.Warn("failed to prune artifact", "path", f.path, "err", err)
			continue
		}
		removed = append(removed, f.path)
	}
	return removed, nil
}

// CleanSession removes the live frame when the owning session ends. Final
// artifacts are left to the retention policy, and staging files are left
// alone: a leftover one holds the only complete copy of a result whose
// rename failed.
func (p *Publisher) CleanSession() error {
	if err := os.Remove(p.framePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove live frame: %w", err)
	}
	return nil
}
