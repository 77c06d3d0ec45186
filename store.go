package tinystore

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jpalmerr/tinystore/internal/registry"
)

// All is the wildcard subscription target.
//
// The effect registered for All runs on every successful update and receives
// the full previous and current state. It is always a valid target for
// [Store.SubscribeEffect] and [Store.UnsubscribeEffect], whether or not a
// state key with the same name exists.
const All = registry.Wildcard

// State is a mapping from key to arbitrary value.
//
// The store replaces its State wholesale on every update; nested values are
// shared between the old and new State, never copied.
type State map[string]any

// Effect is a listener invoked after an update.
//
// For a key target, prev and curr each contain exactly that key. For the
// [All] target they are the complete previous and current state. Both maps
// must be treated as read-only.
//
// A returned error is reported by SetState as an [EffectError]; it does not
// stop the remaining effects from running.
type Effect func(prev, curr State) error

// noopEffect is the default wildcard listener.
func noopEffect(State, State) error { return nil }

// Store is an observable key-value state container.
//
// Store holds a [State], applies atomic multi-key updates through
// [Store.SetState], and notifies effects registered for individual keys or for
// the [All] wildcard. It is created with [New] or [CreateStore].
//
// Effects and updaters run synchronously on the caller's goroutine. SetState
// is not re-entrant: a second SetState while one is running, whether from an
// effect, an updater, an observer, or another goroutine, fails immediately
// with [ErrReentrant] instead of waiting. Reads are safe from any goroutine,
// but callers that write from several goroutines must serialize their
// SetState calls themselves, for example with a [sync.Mutex] held around
// each call. Such a lock must never be taken inside an effect or updater.
type Store struct {
	id            string
	name          string
	logger        *slog.Logger
	recoverPanics bool
	observers     []Observer

	mu        sync.RWMutex
	state     State
	listeners *registry.Registry[Effect]
	updating  atomic.Bool
}

// New creates a [Store] holding initial.
//
// The map is kept by reference as the starting state; a nil map starts the
// store empty. The wildcard target is registered with a no-op effect.
//
// Returns an error if any option is invalid.
//
// Example:
//
//	st, err := tinystore.New(tinystore.State{"count": 0},
//	    tinystore.WithName("counter"),
//	    tinystore.WithLogger(logger),
//	)
func New(initial State, opts ...Option) (*Store, error) {
	cfg := &storeConfig{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	if initial == nil {
		initial = State{}
	}

	id := uuid.NewString()
	attrs := []any{"store_id", id}
	if cfg.name != "" {
		attrs = append(attrs, "store", cfg.name)
	}

	s := &Store{
		id:            id,
		name:          cfg.name,
		logger:        logger.With(attrs...),
		recoverPanics: cfg.recoverPanics,
		observers:     cfg.observers,
		state:         initial,
		listeners:     registry.New[Effect](noopEffect),
	}

	s.emit(EventStoreCreate, map[string]any{"keys": len(initial)})
	return s, nil
}

// CreateStore creates a [Store] holding initial with default options.
func CreateStore(initial State) *Store {
	// New only fails on invalid options
	s, _ := New(initial)
	return s
}

// ID returns the store's randomly generated instance identifier.
func (s *Store) ID() string {
	return s.id
}

// Name returns the name set with [WithName], or "".
func (s *Store) Name() string {
	return s.name
}

// GetStore returns the requested keys, or the entire state when called
// without arguments.
//
// With no keys, the store's current State itself is returned; it must not be
// modified. With keys, a new State containing exactly those keys is returned,
// with nil for keys that are not present.
func (s *Store) GetStore(keys ...string) State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(keys) == 0 {
		return s.state
	}

	result := make(State, len(keys))
	for _, k := range keys {
		result[k] = s.state[k]
	}
	return result
}

// GetState returns the current value for key, or nil if it is not present.
func (s *Store) GetState(key string) any {
	v, _ := s.Lookup(key)
	return v
}

// Lookup returns the current value for key and whether it is present.
func (s *Store) Lookup(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.state[key]
	return v, ok
}

// Get returns the value for key as a T.
//
// The second result is false if the key is absent or holds a value of
// another type.
func Get[T any](s *Store, key string) (T, bool) {
	v, ok := s.Lookup(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// SetState applies u atomically and dispatches effects.
//
// Every entry is resolved against the state as it was when SetState was
// called, so an [Updater] never observes a value produced earlier in the
// same update. The resolved values are merged over a shallow copy of the
// previous state, which then replaces it.
//
// Effects are dispatched in a fixed order: the [All] effect first with the
// full previous and current state, then the effect of each key in u, in u's
// order, with single-key states. Targets without a registered effect are
// skipped.
//
// Errors:
//   - [ErrReentrant] if another SetState on this store is running
//   - [ErrEmptyUpdate] if u is nil or has no keys
//   - [ErrInvalidCallback] if u contains a nil [Updater]
//
// None of these change the state. If effects return errors, all effects still
// run and the errors are returned joined, each wrapped in an [EffectError];
// the new state remains in place.
func (s *Store) SetState(u *Update) error {
	if !s.updating.CompareAndSwap(false, true) {
		s.reject(RejectReentrant)
		return ErrReentrant
	}
	// released on every exit path, including panics from user code
	defer s.updating.Store(false)

	if u.Len() == 0 {
		s.reject(RejectEmpty)
		return ErrEmptyUpdate
	}
	if key, ok := u.validate(); !ok {
		s.reject(RejectInvalidCallback)
		return fmt.Errorf("%w: updater for %q", ErrInvalidCallback, key)
	}

	start := time.Now()

	s.mu.RLock()
	previous := s.state
	s.mu.RUnlock()

	resolved, err := s.resolve(u, previous)
	if err != nil {
		s.reject(RejectUpdaterPanic)
		return err
	}

	next := make(State, len(previous)+len(resolved))
	for k, v := range previous {
		next[k] = v
	}
	for k, v := range resolved {
		next[k] = v
	}

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	invoked, errs := s.dispatch(u.keys, previous, next)
	duration := time.Since(start)

	s.logger.Debug("state updated",
		"keys", u.Keys(),
		"effects", invoked,
		"errors", len(errs),
		"duration_ms", duration.Milliseconds(),
	)
	s.emit(EventStateUpdate, map[string]any{
		"keys":     u.Keys(),
		"effects":  invoked,
		"errors":   len(errs),
		"duration": duration,
	})

	return errors.Join(errs...)
}

// SubscribeEffect registers effect for target, replacing any effect already
// registered for it.
//
// target must be [All] or a key present in the current state.
//
// Errors:
//   - [ErrUnknownKey] if target is not All and not a present key
//   - [ErrInvalidCallback] if effect is nil
func (s *Store) SubscribeEffect(target string, effect Effect) error {
	if err := s.checkTarget(target); err != nil {
		return err
	}
	if effect == nil {
		return fmt.Errorf("%w: effect for %q", ErrInvalidCallback, target)
	}

	replaced := s.listeners.Has(target)
	s.listeners.Set(target, effect)

	s.emit(EventEffectSubscribe, map[string]any{"target": target, "replaced": replaced})
	return nil
}

// UnsubscribeEffect removes the effect registered for target.
//
// target must be [All] or a key present in the current state; removing a
// target with no registered effect is not an error. Once the [All] effect is
// removed, updates no longer notify a wildcard listener until one is
// subscribed again.
//
// Returns [ErrUnknownKey] if target is not All and not a present key.
func (s *Store) UnsubscribeEffect(target string) error {
	if err := s.checkTarget(target); err != nil {
		return err
	}

	removed := s.listeners.Remove(target)

	s.emit(EventEffectUnsubscribe, map[string]any{"target": target, "removed": removed})
	return nil
}

// Subscribed reports whether target has a registered effect.
func (s *Store) Subscribed(target string) bool {
	return s.listeners.Has(target)
}

// Targets returns the targets with a registered effect, sorted.
func (s *Store) Targets() []string {
	return s.listeners.Targets()
}

// checkTarget validates a subscription target.
func (s *Store) checkTarget(target string) error {
	if target == All {
		return nil
	}
	if _, ok := s.Lookup(target); !ok {
		return fmt.Errorf("%w: %q (must be an existing key or %q)", ErrUnknownKey, target, All)
	}
	return nil
}

// resolve computes the new value of every key in u against previous.
func (s *Store) resolve(u *Update, previous State) (State, error) {
	resolved := make(State, len(u.keys))
	for _, k := range u.keys {
		v, err := s.resolveEntry(k, u.entries[k], previous[k])
		if err != nil {
			return nil, err
		}
		resolved[k] = v
	}
	return resolved, nil
}

// resolveEntry resolves a single entry, recovering panics when configured.
func (s *Store) resolveEntry(key string, e Entry, prev any) (value any, err error) {
	if s.recoverPanics {
		defer func() {
			if r := recover(); r != nil {
				value = nil
				err = s.recovered("updater", key, r)
			}
		}()
	}
	return e.resolve(prev), nil
}

// dispatch invokes the effects for the wildcard and each updated key.
func (s *Store) dispatch(keys []string, previous, next State) (int, []error) {
	var (
		invoked int
		errs    []error
	)

	for _, target := range dispatchTargets(keys) {
		// looked up per target: earlier effects may (un)subscribe later ones
		effect, ok := s.listeners.Get(target)
		if !ok {
			continue
		}

		prev, curr := previous, next
		if target != All {
			prev = State{target: previous[target]}
			curr = State{target: next[target]}
		}

		invoked++
		if err := s.invoke(target, effect, prev, curr); err != nil {
			errs = append(errs, &EffectError{Target: target, Err: err})
			s.logger.Warn("effect failed", "target", target, "error", err.Error())
			s.emit(EventEffectError, map[string]any{"target": target, "error": err.Error()})
		}
	}

	return invoked, errs
}

// dispatchTargets returns the wildcard followed by keys, in order.
func dispatchTargets(keys []string) []string {
	targets := make([]string, 0, len(keys)+1)
	targets = append(targets, All)
	for _, k := range keys {
		// the wildcard has already been notified with the full state
		if k == All {
			continue
		}
		targets = append(targets, k)
	}
	return targets
}

// invoke calls effect, recovering panics when configured.
func (s *Store) invoke(target string, effect Effect, prev, curr State) (err error) {
	if s.recoverPanics {
		defer func() {
			if r := recover(); r != nil {
				err = s.recovered("effect", target, r)
			}
		}()
	}
	return effect(prev, curr)
}

// recovered logs a recovered panic with a correlation ID and converts it to
// an error carrying the same ID.
func (s *Store) recovered(kind, target string, r any) error {
	correlationID := uuid.NewString()

	s.logger.Error(kind+" panic",
		"correlation_id", correlationID,
		"target", target,
		"panic", fmt.Sprintf("%v", r),
		"stack", string(debug.Stack()),
	)

	return fmt.Errorf("%s panic for %q (correlation_id: %s)", kind, target, correlationID)
}

// reject reports a SetState call that changed nothing.
func (s *Store) reject(reason string) {
	s.logger.Debug("state update rejected", "reason", reason)
	s.emit(EventStateReject, map[string]any{"reason": reason})
}

// emit delivers an event to every observer.
func (s *Store) emit(t EventType, data map[string]any) {
	if len(s.observers) == 0 {
		return
	}

	event := Event{
		Type:      t,
		Timestamp: time.Now(),
		StoreID:   s.id,
		StoreName: s.name,
		Data:      data,
	}
	for _, o := range s.observers {
		o.OnEvent(event)
	}
}
