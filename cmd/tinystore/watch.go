package main

import (
	"context"
	"os/signal"
	"reflect"
	"sort"
	"syscall"

	"github.com/jpalmerr/tinystore"
	"github.com/jpalmerr/tinystore/config"
	"github.com/spf13/cobra"
)

// watchCmd keeps a store in sync with its seed file.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Apply seed file edits to a running store",
	Long: `Load a store from a seed file and keep it running. Every time the seed
file is saved, the keys whose values changed are applied to the store as one
update and printed.

Keys removed from the file are set to null. Invalid edits are logged and
skipped; the store keeps its last good state.

The command runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  tinystore watch -c seed.yaml`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addConfigFlag(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Level())
	st, err := config.BuildStore(cfg, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	err = st.SubscribeEffect(tinystore.All, func(prev, curr tinystore.State) error {
		for _, key := range changedKeys(prev, curr) {
			printChange(out, key, prev[key], curr[key])
		}
		return nil
	})
	if err != nil {
		return err
	}

	seed := cfg.State

	onChange := func(next *config.Config) {
		update := config.Diff(seed, next.State)
		seed = next.State
		if update == nil {
			logger.Debug("seed unchanged")
			return
		}
		if err := st.SetState(update); err != nil {
			logger.Warn("failed to apply seed change", "keys", update.Keys(), "error", err)
			return
		}
		logger.Info("seed applied", "keys", update.Keys())
	}
	onError := func(err error) {
		logger.Warn("failed to reload seed", "error", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	// cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("watching seed", "path", configFile, "keys", len(seed))
	if err := config.Watch(ctx, configFile, onChange, onError); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// changedKeys returns the sorted keys whose values differ between prev and curr.
func changedKeys(prev, curr tinystore.State) []string {
	var keys []string
	for k, v := range curr {
		if old, ok := prev[k]; !ok || !reflect.DeepEqual(old, v) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
