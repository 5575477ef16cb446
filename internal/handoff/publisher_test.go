package handoff_test

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caforneris/flowbridge/internal/handoff"
)

func writeString(s string) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	}
}

func TestPublisher_DeliverIsCompleteOnArrival(t *testing.T) {
	dir := t.TempDir()
	pub, err := handoff.NewPublisher(dir)
	require.NoError(t, err)

	path, err := pub.Deliver("run-1.gif", writeString("RESULT"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run-1.gif"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "RESULT", string(data))

	// No staging leftovers after a clean delivery.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPublisher_DeliverAtCreatesParent(t *testing.T) {
	dir := t.TempDir()
	pub, err := handoff.NewPublisher(dir)
	require.NoError(t, err)

	target := filepath.Join(dir, "out", "nested", "final.gif")
	require.NoError(t, pub.DeliverAt(target, writeString("X")))
	assert.FileExists(t, target)
}

func TestPublisher_PublishFrameOverwritesInPlace(t *testing.T) {
	dir := t.TempDir()
	pub, err := handoff.NewPublisher(dir)
	require.NoError(t, err)

	require.NoError(t, pub.PublishFrame(writeString("frame-one")))
	require.NoError(t, pub.PublishFrame(writeString("two")))

	data, err := os.ReadFile(pub.FramePath())
	require.NoError(t, err)
	assert.Equal(t, "two", string(data), "overwrite must truncate")
}

func TestPublisher_PruneOldestFirst(t *testing.T) {
	dir := t.TempDir()
	pub, err := handoff.NewPublisher(dir)
	require.NoError(t, err)

	var paths []string
	for i := 0; i < 5; i++ {
		p, err := pub.Deliver(fmt.Sprintf("run-%d.gif", i), writeString("x"))
		require.NoError(t, err)
		// Spread modification times so ordering is unambiguous.
		mod := time.Now().Add(time.Duration(i-10) * time.Minute)
		require.NoError(t, os.Chtimes(p, mod, mod))
		paths = append(paths, p)
	}
	// The live frame must never be counted against retention.
	require.NoError(t, pub.PublishFrame(writeString("frame")))

	removed, err := pub.Prune(2)
	require.NoError(t, err)
	assert.ElementsMatch(t, paths[:3], removed)

	assert.NoFileExists(t, paths[0])
	assert.FileExists(t, paths[3])
	assert.FileExists(t, paths[4])
	assert.FileExists(t, pub.FramePath())
}

func TestPublisher_CleanSessionRemovesOnlyLiveFrame(t *testing.T) {
	dir := t.TempDir()
	pub, err := handoff.NewPublisher(dir)
	require.NoError(t, err)

	require.NoError(t, pub.PublishFrame(writeString("frame")))
	final, err := pub.Deliver("keep.gif", writeString("x"))
	require.NoError(t, err)

	require.NoError(t, pub.CleanSession())
	assert.NoFileExists(t, pub.FramePath())
	assert.FileExists(t, final)

	// Idempotent when the frame is already gone.
	require.NoError(t, pub.CleanSession())
}

// TestPublisher_RenameRaceFreedom hammers the stage-then-rename path with a
// writer republishing payloads of varying sizes while a reader polls the
// final path in a tight loop. The reader must never observe a payload
// shorter than its own embedded length header.
func TestPublisher_RenameRaceFreedom(t *testing.T) {
	dir := t.TempDir()
	pub, err := handoff.NewPublisher(dir)
	require.NoError(t, err)

	const rounds = 200
	finalPath := filepath.Join(dir, "result.bin")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			size := 1 + (i*7919)%50000
			payload := make([]byte, size)
			for j := range payload {
				payload[j] = byte(i)
			}
			header := fmt.Sprintf("%08d", size)
			err := pub.DeliverAt(finalPath, func(w io.Writer) error {
				if _, err := io.WriteString(w, header); err != nil {
					return err
				}
				_, err := w.Write(payload)
				return err
			})
			if err != nil {
				t.Errorf("deliver round %d: %v", i, err)
				return
			}
		}
	}()

	writerDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(writerDone)
	}()

	reads := 0
	for done := false; !done; {
		select {
		case <-writerDone:
			done = true
		default:
		}
		data, err := os.ReadFile(finalPath)
		if err != nil {
			continue // not yet delivered
		}
		require.GreaterOrEqual(t, len(data), 8, "torn read: shorter than header")
		size, err := strconv.Atoi(string(data[:8]))
		require.NoError(t, err, "torn read: corrupt header")
		require.Equal(t, 8+size, len(data), "torn read: payload truncated")
		reads++
	}
	assert.Greater(t, reads, 0, "reader never observed the artifact")
}
