package main

import (
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "bloco",
	Short: "Bloco toy-robotics platform tools",
	Long: `Bloco runs the two halves of the toy-robotics platform: the reader
board that scans block tokens and beams the program, and the robot that
executes it. It also carries utilities for programming token images and
a single-process demo that wires both halves over an in-memory link.`,
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("bloco version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "bloco.yaml", "path to the device config file")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
