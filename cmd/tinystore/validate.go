package main

import (
	"fmt"

	"github.com/jpalmerr/tinystore/config"
	"github.com/spf13/cobra"
)

// validateCmd validates a seed file without applying anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a seed file",
	Long: `Validate a tinystore seed file.

This command parses the YAML or TOML, expands environment variables, and
validates all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Seed is valid
  1 - Seed is invalid (error details printed to stderr)

Example:
  tinystore validate -c seed.yaml
  tinystore validate --config seed.toml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	addConfigFlag(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid seed: %w", err)
	}

	name := cfg.Name
	if name == "" {
		name = "(unnamed)"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Seed is valid!\n")
	fmt.Fprintf(out, "  Name:           %s\n", name)
	fmt.Fprintf(out, "  Log level:      %s\n", cfg.Level())
	fmt.Fprintf(out, "  Recover panics: %t\n", cfg.RecoverPanics)
	fmt.Fprintf(out, "  Keys:           %d\n", len(cfg.State))

	return nil
}
