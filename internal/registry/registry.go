package registry

import (
	"sort"
	"sync"
)

// Wildcard is the reserved target that receives every update.
const Wildcard = "all"

// Registry is a target-keyed listener table with one listener per target.
//
// The type parameter is the listener's function type; the registry never
// calls listeners itself, it only stores and returns them.
type Registry[F any] struct {
	mu        sync.RWMutex
	listeners map[string]F
}

// New creates a [Registry] whose [Wildcard] target is bound to wildcard.
func New[F any](wildcard F) *Registry[F] {
	return &Registry[F]{
		listeners: map[string]F{Wildcard: wildcard},
	}
}

// Set registers listener for target, replacing any previous registration.
func (r *Registry[F]) Set(target string, listener F) {
	r.mu.Lock()
	r.listeners[target] = listener
	r.mu.Unlock()
}

// Remove deletes the registration for target.
//
// Returns true if a listener was registered. Safe to call for targets that
// were never registered, including the wildcard after it has been removed.
func (r *Registry[F]) Remove(target string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.listeners[target]; !ok {
		return false
	}
	delete(r.listeners, target)
	return true
}

// Get returns the listener registered for target.
func (r *Registry[F]) Get(target string) (F, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	listener, ok := r.listeners[target]
	return listener, ok
}

// Has reports whether target has a registered listener.
func (r *Registry[F]) Has(target string) bool {
	_, ok := r.Get(target)
	return ok
}

// Targets returns the registered targets in sorted order.
//
// The returned slice is a copy; modifying it does not affect the registry.
func (r *Registry[F]) Targets() []string {
	r.mu.RLock()
	targets := make([]string, 0, len(r.listeners))
	for target := range r.listeners {
		targets = append(targets, target)
	}
	r.mu.RUnlock()

	sort.Strings(targets)
	return targets
}

// Len returns the number of registered targets.
func (r *Registry[F]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}
