package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jpalmerr/tinystore"
	"github.com/jpalmerr/tinystore/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatYAML = "yaml"
	formatJSON = "json"
)

// getCmd prints the seeded state.
var getCmd = &cobra.Command{
	Use:   "get [keys...]",
	Short: "Print the store state",
	Long: `Load a store from a seed file and print its state.

With no keys the whole state is printed. Requested keys that are not in
the state are printed as null.

Example:
  tinystore get -c seed.yaml
  tinystore get -c seed.yaml user count --format json`,
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
	addConfigFlag(getCmd)
	getCmd.Flags().StringP("format", "f", formatYAML, "output format: yaml or json")
}

func runGet(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}

	_, st, err := loadStore(cmd)
	if err != nil {
		return err
	}

	return writeState(cmd.OutOrStdout(), format, st.GetStore(args...))
}

// loadStore loads the seed named by the --config flag and builds its store.
func loadStore(cmd *cobra.Command, opts ...tinystore.Option) (*config.Config, *tinystore.Store, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load seed: %w", err)
	}

	st, err := config.BuildStore(cfg, newLogger(cfg.Level()), opts...)
	if err != nil {
		return nil, nil, err
	}
	return cfg, st, nil
}

func checkFormat(format string) error {
	switch format {
	case formatYAML, formatJSON:
		return nil
	default:
		return fmt.Errorf("--format must be %s or %s, got %q", formatYAML, formatJSON, format)
	}
}

// writeState writes state to w in the given format.
func writeState(w io.Writer, format string, state tinystore.State) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]any(state)); err != nil {
			return fmt.Errorf("failed to encode state: %w", err)
		}
		return nil
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any(state)); err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	return enc.Close()
}
