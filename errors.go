package tinystore

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by [Store] operations.
//
// Errors returned by the store wrap these values with additional context;
// use [errors.Is] to test for them.
var (
	// ErrReentrant is returned when SetState is called while another SetState
	// on the same store is still running, e.g. from inside an effect or updater.
	ErrReentrant = errors.New("state update already in progress")

	// ErrEmptyUpdate is returned when SetState receives an update with no keys.
	ErrEmptyUpdate = errors.New("update must contain at least one key")

	// ErrUnknownKey is returned when subscribing to or unsubscribing from a
	// target that is neither a present state key nor the wildcard.
	ErrUnknownKey = errors.New("unknown state key")

	// ErrInvalidCallback is returned when an effect or updater is nil.
	ErrInvalidCallback = errors.New("callback must not be nil")
)

// EffectError reports a failure of the effect registered for Target.
//
// SetState returns one EffectError per failed effect, combined with
// [errors.Join]. The state change that triggered the effect has already been
// committed when an EffectError is returned.
type EffectError struct {
	// Target is the key (or [All]) whose effect failed.
	Target string

	// Err is the error returned by the effect, or the recovered panic.
	Err error
}

// Error implements the error interface.
func (e *EffectError) Error() string {
	return fmt.Sprintf("effect for %q failed: %v", e.Target, e.Err)
}

// Unwrap enables error unwrapping for errors.Is and errors.As.
func (e *EffectError) Unwrap() error {
	return e.Err
}
