package tinystore

import "sort"

// Entry is a single key's contribution to an [Update].
//
// Entry is a closed union with two variants: [Literal], which replaces the
// key's value as-is, and [Updater], which derives the new value from the
// previous one. Functions stored as a Literal are kept as values and never
// invoked by the store.
type Entry interface {
	resolve(prev any) any
}

// Literal is an [Entry] that sets a key to Value.
type Literal struct {
	Value any
}

func (l Literal) resolve(any) any {
	return l.Value
}

// Updater is an [Entry] that computes a key's new value from its value
// before the current SetState call. The argument is nil if the key is absent.
type Updater func(prev any) any

func (u Updater) resolve(prev any) any {
	return u(prev)
}

// Typed adapts a function over a concrete type into an [Updater].
//
// If the previous value is absent or not a T, fn receives the zero value of T.
//
// Example:
//
//	update := tinystore.NewUpdate().Apply("count", tinystore.Typed(func(n int) int {
//	    return n + 1
//	}))
func Typed[T any](fn func(T) T) Updater {
	if fn == nil {
		return nil
	}
	return func(prev any) any {
		v, _ := prev.(T)
		return fn(v)
	}
}

// Update is an ordered set of key entries applied atomically by
// [Store.SetState].
//
// Keys keep the order in which they were first added; that order determines
// the order in which key effects are dispatched. Adding a key again replaces
// its entry but keeps its original position.
//
// The zero value is not usable; create updates with [NewUpdate] or [Values].
type Update struct {
	keys    []string
	entries map[string]Entry
}

// NewUpdate creates an empty [Update].
//
// Example:
//
//	err := st.SetState(tinystore.NewUpdate().
//	    Set("user", "alice").
//	    Apply("visits", func(prev any) any { n, _ := prev.(int); return n + 1 }))
func NewUpdate() *Update {
	return &Update{
		entries: make(map[string]Entry),
	}
}

// Values creates an [Update] of literal values, ordered by key.
//
// Go maps have no order, so keys are sorted to keep dispatch deterministic.
// Use [NewUpdate] when a specific dispatch order matters.
func Values(values map[string]any) *Update {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	u := NewUpdate()
	for _, k := range keys {
		u.Set(k, values[k])
	}
	return u
}

// Set adds a literal value for key.
func (u *Update) Set(key string, value any) *Update {
	return u.With(key, Literal{Value: value})
}

// Apply adds an updater function for key.
func (u *Update) Apply(key string, fn Updater) *Update {
	return u.With(key, fn)
}

// With adds an arbitrary [Entry] for key.
func (u *Update) With(key string, e Entry) *Update {
	if _, exists := u.entries[key]; !exists {
		u.keys = append(u.keys, key)
	}
	u.entries[key] = e
	return u
}

// Keys returns the update's keys in dispatch order.
//
// The returned slice is a copy; modifying it does not affect the update.
func (u *Update) Keys() []string {
	if u == nil {
		return nil
	}
	cp := make([]string, len(u.keys))
	copy(cp, u.keys)
	return cp
}

// Len returns the number of keys in the update.
func (u *Update) Len() int {
	if u == nil {
		return 0
	}
	return len(u.keys)
}

// validate reports the first entry that cannot be resolved.
func (u *Update) validate() (string, bool) {
	for _, k := range u.keys {
		switch e := u.entries[k].(type) {
		case nil:
			return k, false
		case Updater:
			if e == nil {
				return k, false
			}
		}
	}
	return "", true
}
