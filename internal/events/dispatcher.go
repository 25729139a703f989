package events

import (
	"context"
	"errors"
	"sync"
)

// EventHandler reacts to a single account lifecycle event.
type EventHandler func(context.Context, Event) error

// Dispatcher fans account lifecycle events out to subscribers.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

type inMemoryDispatcher struct {
	mu          sync.RWMutex
	subscribers map[EventType][]EventHandler
}

// NewInMemoryDispatcher returns a synchronous in-process dispatcher.
func NewInMemoryDispatcher() Dispatcher {
	return &inMemoryDispatcher{
		subscribers: make(map[EventType][]EventHandler),
	}
}

// Publish delivers the event to every subscriber of its type. A failing
// handler does not stop delivery to the rest; the combined errors are
// returned.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := append([]EventHandler(nil), d.subscribers[event.Type]...)
	d.mu.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers a handler for the given event type.
func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers[eventType] = append(d.subscribers[eventType], handler)
}
