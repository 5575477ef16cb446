package handoff_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caforneris/flowbridge/internal/handoff"
)

func TestWatcher_ReadFrame(t *testing.T) {
	dir := t.TempDir()
	framePath := filepath.Join(dir, "preview.png")
	w := handoff.NewWatcher(framePath, 3*time.Second)

	// Missing frame is "try again next tick", never an error.
	_, ok := w.ReadFrame(time.Now())
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(framePath, []byte("fresh"), 0o644))
	data, ok := w.ReadFrame(time.Now())
	require.True(t, ok)
	assert.Equal(t, "fresh", string(data))

	// A frame outside the freshness window is "no active preview".
	old := time.Now().Add(-time.Minute)
	require.NoError(t, os.Chtimes(framePath, old, old))
	_, ok = w.ReadFrame(time.Now())
	assert.False(t, ok)

	// Empty files (a writer mid-truncate) are skipped too.
	require.NoError(t, os.WriteFile(framePath, nil, 0o644))
	_, ok = w.ReadFrame(time.Now())
	assert.False(t, ok)
}

func TestWatcher_ArtifactReady(t *testing.T) {
	dir := t.TempDir()
	w := handoff.NewWatcher(filepath.Join(dir, "preview.png"), time.Second)

	final := filepath.Join(dir, "run.gif")
	assert.False(t, w.ArtifactReady(final))

	require.NoError(t, os.WriteFile(final, []byte("done"), 0o644))
	assert.True(t, w.ArtifactReady(final))

	assert.False(t, w.ArtifactReady(dir), "directories are not artifacts")
}

func TestWatcher_AwaitArtifact(t *testing.T) {
	dir := t.TempDir()
	w := handoff.NewWatcher(filepath.Join(dir, "preview.png"), time.Second)
	final := filepath.Join(dir, "run.gif")

	go func() {
		time.Sleep(30 * time.Millisecond)
		os.WriteFile(final, []byte("done"), 0o644)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, w.AwaitArtifact(ctx, final, 5*time.Millisecond))
}

func TestWatcher_AwaitArtifactHonorsContext(t *testing.T) {
	dir := t.TempDir()
	w := handoff.NewWatcher(filepath.Join(dir, "preview.png"), time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := w.AwaitArtifact(ctx, filepath.Join(dir, "never.gif"), 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
