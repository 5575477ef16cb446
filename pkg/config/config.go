// Package config loads the shared flowbridge configuration file. One YAML
// schema covers both processes: the solver-side service reads the service and
// handoff sections, the consumer-side controller reads the controller and
// handoff sections. A missing file yields the defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so intervals can be written as "250ms" or
// "3s" in YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"250ms\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Service configures the solver-side process.
type Service struct {
	// Addr is the loopback listen address.
	Addr string `yaml:"addr"`
	// ShutdownPoll is how often the dispatch loop checks the cooperative
	// stop flag between requests.
	ShutdownPoll Duration `yaml:"shutdown_poll"`
}

// Controller configures the consumer-side lifecycle manager.
type Controller struct {
	// Command is the solver executable; Args its entry arguments.
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	// BaseURL is where the spawned service answers.
	BaseURL string `yaml:"base_url"`
	// StatusPoll and StartTimeout bound the readiness probe loop.
	StatusPoll   Duration `yaml:"status_poll"`
	StartTimeout Duration `yaml:"start_timeout"`
	// StopGrace is how long to wait for a cooperative exit before the
	// process is force-terminated.
	StopGrace Duration `yaml:"stop_grace"`
}

// Handoff configures the shared artifact directory protocol.
type Handoff struct {
	// Dir is the artifact directory; exactly one writer (the service) and
	// any number of readers.
	Dir string `yaml:"dir"`
	// FramePoll is the consumer's live-frame polling cadence;
	// FrameStaleAfter is the freshness window beyond which a frame is
	// treated as "no active preview".
	FramePoll       Duration `yaml:"frame_poll"`
	FrameStaleAfter Duration `yaml:"frame_stale_after"`
	// ArtifactPoll is the cadence for checking final-artifact existence.
	ArtifactPoll Duration `yaml:"artifact_poll"`
	// Retention is how many final artifacts to keep; older ones are pruned.
	Retention int `yaml:"retention"`
}

// Config is the full file schema.
type Config struct {
	Service    Service    `yaml:"service"`
	Controller Controller `yaml:"controller"`
	Handoff    Handoff    `yaml:"handoff"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Service: Service{
			Addr:         "127.0.0.1:8089",
			ShutdownPoll: Duration(100 * time.Millisecond),
		},
		Controller: Controller{
			Command:      "flowbridge",
			Args:         []string{"serve"},
			BaseURL:      "http://127.0.0.1:8089",
			StatusPoll:   Duration(250 * time.Millisecond),
			StartTimeout: Duration(10 * time.Second),
			StopGrace:    Duration(3 * time.Second),
		},
		Handoff: Handoff{
			Dir:             ".flowbridge/artifacts",
			FramePoll:       Duration(500 * time.Millisecond),
			FrameStaleAfter: Duration(3 * time.Second),
			ArtifactPoll:    Duration(500 * time.Millisecond),
			Retention:       5,
		},
	}
}

// Load reads the config file at path. A missing file is not an error; it
// returns Default().
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
