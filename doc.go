// Package tinystore provides a minimal in-process observable state container.
//
// A [Store] holds a key-value [State], applies atomic multi-key updates, and
// notifies effects subscribed to individual keys or to every change. It is
// meant for application state where consumers react to the keys they care
// about instead of polling.
//
// # Quick Start
//
//	st := tinystore.CreateStore(tinystore.State{"count": 0, "user": "anon"})
//
//	_ = st.SubscribeEffect("count", func(prev, curr tinystore.State) error {
//	    fmt.Printf("count: %v -> %v\n", prev["count"], curr["count"])
//	    return nil
//	})
//
//	err := st.SetState(tinystore.NewUpdate().
//	    Apply("count", tinystore.Typed(func(n int) int { return n + 1 })).
//	    Set("user", "alice"))
//
// # Updates
//
// An [Update] is an ordered set of entries. Each entry is either a [Literal]
// value or an [Updater] that derives the new value from the previous one.
// Updaters always see the state from before the call, so the entries of one
// update never observe each other. Use [Values] to build an update from a
// plain map.
//
// # Dispatch
//
// After the new state is in place, SetState calls the [All] effect with the
// complete previous and current state, then the effect of each updated key
// with single-key states, in update order. Effect errors are collected and
// returned together as [EffectError] values once every effect has run.
//
// SetState is guarded against re-entry: calling it from an effect or updater
// fails with [ErrReentrant]. The guard is released on every exit path, so a
// failing or panicking effect never leaves the store stuck.
//
// # Configuration
//
// Stores are configured with functional options:
//
//	st, err := tinystore.New(initial,
//	    tinystore.WithName("session"),
//	    tinystore.WithLogger(logger),
//	    tinystore.WithPanicRecovery(true),
//	    tinystore.WithObserver(observer),
//	)
//
// # Architecture
//
// The module consists of:
//
//   - tinystore: the Store, updates, errors and observer hooks
//   - internal/registry: the per-store listener registry
//   - metrics: a Prometheus [Observer]
//   - config: YAML/TOML seed files, assignments and file watching
//   - cmd/tinystore: a command-line front end over seed files
package tinystore
