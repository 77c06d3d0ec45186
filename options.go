package tinystore

import (
	"errors"
	"log/slog"
)

// storeConfig holds mutable state during Store construction.
type storeConfig struct {
	name          string
	logger        *slog.Logger
	recoverPanics bool
	observers     []Observer
}

// Option is a function that configures a [Store] during construction.
//
// Option implements the functional options pattern. Options return an error
// if validation fails, in which case [New] returns that error.
//
// Built-in options: [WithLogger], [WithName], [WithPanicRecovery], [WithObserver].
type Option func(*storeConfig) error

// WithLogger sets a custom [slog.Logger] for the store.
//
// The store logs applied updates at Debug level, failing effects at Warn
// level, and recovered panics at Error level. If not specified,
// [slog.Default] is used.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
//	st, err := tinystore.New(initial, tinystore.WithLogger(logger))
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *storeConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithName sets a human-readable name attached to log lines and events.
//
// Returns an error if the name is empty.
func WithName(name string) Option {
	return func(cfg *storeConfig) error {
		if name == "" {
			return errors.New("store name cannot be empty")
		}
		cfg.name = name
		return nil
	}
}

// WithPanicRecovery controls whether panics in effects and updaters are
// recovered.
//
// When enabled, a panicking updater aborts the update before any state is
// changed and SetState returns an error. A panicking effect is reported as an
// [EffectError] and the remaining effects still run. Every recovered panic is
// logged with its stack trace and a correlation ID that also appears in the
// returned error.
//
// When disabled (the default), panics propagate to the SetState caller. The
// store remains usable either way.
func WithPanicRecovery(enabled bool) Option {
	return func(cfg *storeConfig) error {
		cfg.recoverPanics = enabled
		return nil
	}
}

// WithObserver registers an [Observer] for store events.
//
// Can be used multiple times; observers are notified in registration order.
// Nil observers are silently ignored.
func WithObserver(o Observer) Option {
	return func(cfg *storeConfig) error {
		if o == nil {
			return nil
		}
		cfg.observers = append(cfg.observers, o)
		return nil
	}
}
