package handoff

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/caforneris/flowbridge/internal/logging"
)

// Watcher is the consumer side of the handoff protocol. All of its reads are
// non-blocking checks meant to be driven by an interval timer; a slow poller
// only delays display, never the solve.
type Watcher struct {
	framePath  string
	staleAfter time.Duration
	logger     *slog.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger attaches a logger.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = logger }
}

// NewWatcher returns a Watcher polling framePath for live frames, treating
// frames older than staleAfter as "no active preview".
func NewWatcher(framePath string, staleAfter time.Duration, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		framePath:  framePath,
		staleAfter: staleAfter,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ReadFrame returns the current live-frame bytes, or ok=false when there is
// no frame to show this tick. A read failure is never an error: the writer
// may be mid-overwrite, so the consumer simply tries again next tick. A frame
// whose modification time falls outside the freshness window is also skipped;
// it belongs to a solve that is no longer producing.
func (w *Watcher) ReadFrame(now time.Time) (data []byte, ok bool) {
	info, err := os.Stat(w.framePath)
	if err != nil {
		return nil, false
	}
	if w.staleAfter > 0 && now.Sub(info.ModTime()) > w.staleAfter {
		return nil, false
	}
	data, err = os.ReadFile(w.framePath)
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}

// ArtifactReady reports whether the final artifact exists at path. Because
// the producer renames atomically, existence implies completeness; no size
// stability check is needed.
func (w *Watcher) ArtifactReady(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// AwaitArtifact polls for the final artifact at path on the given interval
// until it appears or ctx is done.
func (w *Watcher) AwaitArtifact(ctx context.Context, path string, interval time.Duration) error {
	if w.ArtifactReady(path) {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if w.ArtifactReady(path) {
				w.logger.Debug("final artifact arrived", "path", path)
				return nil
			}
		}
	}
}
