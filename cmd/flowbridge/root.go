package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "flowbridge",
	Short: "Flowbridge bridges 2D design geometry to an external flow solver",
	Long: `Flowbridge hands obstacle polylines and simulation parameters to a
long-running solver process, watches its progress frames, and retrieves the
finished result artifact without ever exposing a partial write.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "flowbridge.yaml", "Path to the flowbridge config file")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
}
