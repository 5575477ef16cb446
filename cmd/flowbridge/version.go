package main

import (
	"fmt"

	"github.com/caforneris/flowbridge"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of flowbridge",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("flowbridge version %s\n", flowbridge.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
