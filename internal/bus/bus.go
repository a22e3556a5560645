package bus

import (
	"sync"

	"github.com/meszmate/stanzaroute/internal/event"
)

// Notification is what subscribers receive for each emitted event
type Notification struct {
	Name    string
	Source  any
	Payload event.Event
}

// Handler is a function that handles notifications
type Handler func(n Notification)

// EventBus handles event subscription and delivery. Handlers run
// synchronously on the emitting goroutine, in subscription order.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	all      []Handler
}

// New creates a new event bus
func New() *EventBus {
	return &EventBus{
		handlers: make(map[string][]Handler),
	}
}

// Subscribe subscribes to one event name
func (b *EventBus) Subscribe(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], handler)
}

// SubscribeAll subscribes to every event name
func (b *EventBus) SubscribeAll(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, handler)
}

// Emit delivers the payload to the subscribers of name, then to the
// catch-all subscribers
func (b *EventBus) Emit(name string, source any, payload event.Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[name])+len(b.all))
	handlers = append(handlers, b.handlers[name]...)
	handlers = append(handlers, b.all...)
	b.mu.RUnlock()

	n := Notification{Name: name, Source: source, Payload: payload}
	for _, handler := range handlers {
		handler(n)
	}
}

// Clear removes all handlers
func (b *EventBus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[string][]Handler)
	b.all = nil
}
