package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caforneris/flowbridge/pkg/config"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_ParsesDurationsAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flowbridge.yaml")
	content := `
service:
  addr: "127.0.0.1:9999"
  shutdown_poll: "50ms"
controller:
  command: /opt/solver/bin/solve
  stop_grace: "10s"
handoff:
  dir: /tmp/artifacts
  frame_stale_after: "2s"
  retention: 9
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.Service.Addr)
	assert.Equal(t, 50*time.Millisecond, cfg.Service.ShutdownPoll.Std())
	assert.Equal(t, "/opt/solver/bin/solve", cfg.Controller.Command)
	assert.Equal(t, 10*time.Second, cfg.Controller.StopGrace.Std())
	assert.Equal(t, 9, cfg.Handoff.Retention)
	assert.Equal(t, 2*time.Second, cfg.Handoff.FrameStaleAfter.Std())

	// Untouched sections keep their defaults.
	assert.Equal(t, config.Default().Controller.StatusPoll, cfg.Controller.StatusPoll)
}

func TestLoad_RejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flowbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("service:\n  shutdown_poll: \"soon\"\n"), 0o644))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flowbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\t::not yaml"), 0o644))

	_, err := config.Load(path)
	assert.Error(t, err)
}
