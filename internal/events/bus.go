package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
// Usage: bus.Publish(ServiceStateChangedEvent{...})
func (b *Bus) Publish(ev Event) {
	// Type switch calls the generic Publish with the concrete type
	switch e := ev.(type) {
	case ServiceStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case ModeDetectedEvent:
		event.Publish(b.dispatcher, e)
	case UPSStatusEvent:
		event.Publish(b.dispatcher, e)
	case CoordinatedRestartEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler type determines which events it receives.
// Returns an unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e ServiceStateChangedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(ServiceStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ModeDetectedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(UPSStatusEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CoordinatedRestartEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// No-op for unrecognized handler types
		return func() {}
	}
}
