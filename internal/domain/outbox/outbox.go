package outbox

import "context"

// Event is a named fact about the order lifecycle.
type Event interface {
	EventName() string
}

// Handler reacts to one delivered event.
type Handler func(ctx context.Context, e Event) error

// Publisher hands an event to whatever transport is wired in: the in-process
// bus, with an optional broker bridge behind it.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber registers a handler for one event name.
type Subscriber interface {
	Subscribe(eventName string, h Handler)
}
