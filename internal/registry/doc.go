// Package registry provides the listener registry used by the tinystore Store.
//
// This package is internal to tinystore. A [Registry] maps a subscription
// target (a state key, or the [Wildcard] target) to exactly one listener.
// Registering a listener for a target that already has one replaces it.
//
// The wildcard entry is pre-populated when the registry is created, so every
// new registry starts with exactly one target. Each registry owns its own map;
// nothing is shared between instances.
//
// The registry is safe for concurrent access. Lookups never hold the lock
// while a listener runs, so listeners may register or remove other listeners
// during dispatch.
//
// Users of the tinystore library should not need to interact with this
// package directly. Subscriptions are managed through the Store.
package registry
