package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/caforneris/flowbridge/internal/logging"
	"github.com/caforneris/flowbridge/internal/service"
	"github.com/caforneris/flowbridge/pkg/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the solver-side service",
	Long: `Starts the solver service: a loopback HTTP listener that accepts
simulation requests, runs one solve at a time, and delivers frames and the
final artifact through the shared artifact directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Flags().GetString("config")
		verbose, _ := cmd.Flags().GetBool("verbose")
		addr, _ := cmd.Flags().GetString("addr")

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if addr != "" {
			cfg.Service.Addr = addr
		}

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger := logging.New(level)

		svc, err := service.New(cfg.Service, cfg.Handoff, service.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("failed to initialize service: %w", err)
		}

		// SIGINT/SIGTERM behave like a /shutdown request: the in-flight
		// solve finishes before the listener goes down.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return svc.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address override (defaults to the config file)")
}
