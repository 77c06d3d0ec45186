package main

import (
	"fmt"
	"io"

	"github.com/jpalmerr/tinystore"
	"github.com/jpalmerr/tinystore/config"
	"github.com/spf13/cobra"
)

// setCmd applies assignments to the seeded store.
var setCmd = &cobra.Command{
	Use:   "set key=value [key=value...]",
	Short: "Apply an update and print the result",
	Long: `Load a store from a seed file, apply the given assignments as a single
update, and print each change followed by the resulting state.

Assignments:
  key=value   set key to value (decoded as YAML: 5, true, [a, b], {x: 1})
  key+=n      add n to the key's current number

The seed file itself is not modified.

Example:
  tinystore set -c seed.yaml user=bob count+=1`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSet,
}

func init() {
	rootCmd.AddCommand(setCmd)
	addConfigFlag(setCmd)
	setCmd.Flags().StringP("format", "f", formatYAML, "output format: yaml or json")
}

func runSet(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}

	update, err := config.BuildUpdate(args)
	if err != nil {
		return err
	}

	_, st, err := loadStore(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	// keys new to the state cannot be subscribed; the wildcard reports them
	err = st.SubscribeEffect(tinystore.All, func(prev, curr tinystore.State) error {
		for _, key := range update.Keys() {
			if _, existed := prev[key]; !existed {
				printChange(out, key, "(unset)", curr[key])
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, key := range update.Keys() {
		if _, ok := st.Lookup(key); !ok {
			continue
		}
		key := key // per-iteration copy; go directive lowered below 1.22 for the local toolchain
		err := st.SubscribeEffect(key, func(prev, curr tinystore.State) error {
			printChange(out, key, prev[key], curr[key])
			return nil
		})
		if err != nil {
			return err
		}
	}

	if err := st.SetState(update); err != nil {
		return fmt.Errorf("failed to apply update: %w", err)
	}

	fmt.Fprintln(out, "---")
	return writeState(out, format, st.GetStore())
}

func printChange(w io.Writer, key string, prev, curr any) {
	fmt.Fprintf(w, "%s: %v -> %v\n", key, prev, curr)
}
