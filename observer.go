package tinystore

import "time"

// Observer receives lifecycle events from a [Store].
//
// Observers are called synchronously from the goroutine performing the store
// operation, in registration order. They receive execution metadata (keys,
// counts, durations), never state values. An observer must not call SetState
// on the store that emitted the event; doing so fails with [ErrReentrant].
type Observer interface {
	OnEvent(event Event)
}

// ObserverFunc adapts an ordinary function to the [Observer] interface.
type ObserverFunc func(event Event)

// OnEvent calls f(event).
func (f ObserverFunc) OnEvent(event Event) {
	f(event)
}

// Event describes something that happened inside a [Store].
type Event struct {
	// Type categorizes the event.
	Type EventType

	// Timestamp records when the event occurred.
	Timestamp time.Time

	// StoreID is the [Store.ID] of the emitting store.
	StoreID string

	// StoreName is the name set with [WithName], if any.
	StoreName string

	// Data carries event-specific metadata:
	//   - state.update: "keys" ([]string), "effects" (int), "errors" (int), "duration" (time.Duration)
	//   - state.reject: "reason" (string)
	//   - effect.error: "target" (string), "error" (string)
	//   - effect.subscribe, effect.unsubscribe: "target" (string)
	//   - store.create: "keys" (int)
	Data map[string]any
}

// EventType categorizes store events.
type EventType string

const (
	EventStoreCreate       EventType = "store.create"
	EventStateUpdate       EventType = "state.update"
	EventStateReject       EventType = "state.reject"
	EventEffectError       EventType = "effect.error"
	EventEffectSubscribe   EventType = "effect.subscribe"
	EventEffectUnsubscribe EventType = "effect.unsubscribe"
)

// Rejection reasons reported in state.reject events.
const (
	RejectReentrant       = "reentrant"
	RejectEmpty           = "empty"
	RejectInvalidCallback = "invalid_callback"
	RejectUpdaterPanic    = "updater_panic"
)
