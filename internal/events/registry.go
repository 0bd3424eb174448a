package events

import (
	"context"
	"log"
)

// Handler reacts to a single event. Handlers run in registration order and
// must tolerate at-least-once delivery.
type Handler func(ctx context.Context, e Event) error

// Registry is a compile-time table mapping event name to its ordered
// handlers. Registration happens during wiring, before any dispatch, so no
// locking is needed afterwards.
type Registry struct {
	handlers map[string][]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string][]Handler)}
}

// Register appends a handler for the named event.
func (r *Registry) Register(name string, h Handler) {
	r.handlers[name] = append(r.handlers[name], h)
}

// Dispatch runs every handler registered for the event. A failing handler is
// logged and the rest still run; dispatch happens after commit, so failures
// must not affect the ledger.
func (r *Registry) Dispatch(ctx context.Context, e Event) {
	for _, h := range r.handlers[e.EventName()] {
		if err := h(ctx, e); err != nil {
			log.Printf("event handler failed for %s (%s): %v", e.EventName(), e.EventID(), err)
		}
	}
}
