// Package main is the entry point for the tinystore CLI.
//
// The CLI loads a store from a seed file and lets you inspect it, apply
// updates to it, and watch the seed file for changes.
//
// Usage:
//
//	tinystore get -c seed.yaml [keys...]     # Print state
//	tinystore set -c seed.yaml count+=1      # Apply an update
//	tinystore watch -c seed.yaml             # Apply seed file edits live
//	tinystore validate -c seed.yaml          # Validate a seed file
//	tinystore version                        # Show version info
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "tinystore",
	Short: "An observable key-value state store",
	Long: `tinystore runs a small observable key-value store seeded from a file.

Effects subscribed to a key run after every update that touches the key;
the "all" subscription runs after every update.

Quick start:
  1. Create a seed file (seed.yaml)
  2. Run: tinystore set -c seed.yaml count+=1
  3. Run: tinystore watch -c seed.yaml and edit the file

Example seed:
  name: session
  log_level: info
  state:
    user: ${USER:-anonymous}
    count: 0`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// cobra already prints the error
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this tinystore binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "tinystore %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// newLogger creates a JSON logger for CLI use.
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// addConfigFlag registers the required -c/--config flag on cmd.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "path to seed file (required)")
	_ = cmd.MarkFlagRequired("config")
}
