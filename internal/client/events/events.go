// Package events is the in-process notification bus of the client.
//
// The request executor publishes EventAuthExpired when it detects an
// invalidated session; front ends subscribe to it to tell the user.
package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	// EventAuthExpired is published once per expiry episode. It carries no
	// payload beyond its type.
	EventAuthExpired EventType = "auth:expired"
)

// Event is a notification published on the dispatcher.
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
}

// NewEvent stamps an event of the given type.
func NewEvent(t EventType) Event {
	return Event{
		ID:        ulid.Make().String(),
		Type:      t,
		Timestamp: time.Now(),
	}
}

// Handler handles a published event.
type Handler func(context.Context, Event) error

// Dispatcher allows event publication and subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	// Subscribe registers handler and returns a func that removes it.
	Subscribe(eventType EventType, handler Handler) (unsubscribe func())
}

type subscription struct {
	id      uint64
	handler Handler
}

// inMemoryDispatcher invokes handlers synchronously in subscription order.
type inMemoryDispatcher struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[EventType][]subscription
}

// NewInMemoryDispatcher creates a dispatcher instance.
func NewInMemoryDispatcher() Dispatcher {
	return &inMemoryDispatcher{
		listeners: make(map[EventType][]subscription),
	}
}

// Publish invokes every handler for the event type. A failing handler does
// not stop the others; their errors are joined.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	subs := append([]subscription{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler Handler) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	d.listeners[eventType] = append(d.listeners[eventType], subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()

			subs := d.listeners[eventType]
			for i, s := range subs {
				if s.id == id {
					d.listeners[eventType] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
		})
	}
}
