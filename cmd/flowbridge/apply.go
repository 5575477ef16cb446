package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/caforneris/flowbridge/internal/controller"
	"github.com/caforneris/flowbridge/internal/handoff"
	"github.com/caforneris/flowbridge/internal/logging"
	"github.com/caforneris/flowbridge/pkg/config"
	"github.com/caforneris/flowbridge/pkg/domain"
)

var applyCmd = &cobra.Command{
	Use:   "apply <request.json>",
	Short: "Start the solver, post a request, and wait for the artifact",
	Long: `Drives the consumer-side lifecycle end to end: spawns the solver
service, posts the simulation request from the given JSON file, polls the
artifact directory until the result lands, then stops the solver.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Flags().GetString("config")
		verbose, _ := cmd.Flags().GetBool("verbose")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger := logging.New(level)

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read request file: %w", err)
		}
		var req domain.SimulationRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("invalid request file: %w", err)
		}

		session := controller.NewSession(cfg.Controller, controller.WithLogger(logger))
		if err := session.Start(); err != nil {
			return err
		}
		defer session.Stop()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		if err := session.WaitReady(ctx); err != nil {
			return fmt.Errorf("solver not ready: %w", err)
		}
		if err := session.Apply(req); err != nil {
			return err
		}

		watcher := handoff.NewWatcher(
			handoff.DefaultFramePath(cfg.Handoff.Dir),
			cfg.Handoff.FrameStaleAfter.Std(),
			handoff.WithWatcherLogger(logger),
		)

		// The artifact name is chosen by the service per run, so watch the
		// directory for any new final file instead of one fixed path.
		before := snapshotArtifacts(cfg.Handoff.Dir)
		ticker := time.NewTicker(cfg.Handoff.ArtifactPoll.Std())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return fmt.Errorf("timed out waiting for artifact: %w", ctx.Err())
			case <-ticker.C:
				if _, ok := watcher.ReadFrame(time.Now()); ok {
					logger.Debug("live preview updating")
				}
				if path := newArtifact(cfg.Handoff.Dir, before); path != "" {
					fmt.Printf("artifact: %s\n", path)
					return nil
				}
			}
		}
	},
}

// snapshotArtifacts records the final files currently present.
func snapshotArtifacts(dir string) map[string]bool {
	seen := make(map[string]bool)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return seen
	}
	for _, e := range entries {
		seen[e.Name()] = true
	}
	return seen
}

// newArtifact returns the path of a final artifact not present in the
// snapshot, skipping the live frame and staging files.
func newArtifact(dir string, before map[string]bool) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		name := e.Name()
		if before[name] || e.IsDir() || !handoff.IsFinalArtifact(name) {
			continue
		}
		return filepath.Join(dir, name)
	}
	return ""
}

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().Duration("timeout", 5*time.Minute, "How long to wait for the final artifact")
}
