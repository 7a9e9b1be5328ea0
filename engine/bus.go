package engine

import "sync"

type EventType int

type Event struct {
	Type    EventType
	Payload any
}

type EventHandler func(Event)

// EventBus is a synchronous in-process pub/sub. Handlers run on the
// emitter's goroutine; anything slow forks its own.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]EventHandler
}

func NewEventBus() *EventBus {
	return &EventBus{handlers: make(map[EventType][]EventHandler)}
}

// SubscribeTypes registers a handler for the given event types.
func (b *EventBus) SubscribeTypes(handler EventHandler, types ...EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range types {
		b.handlers[t] = append(b.handlers[t], handler)
	}
}

func (b *EventBus) Emit(evt Event) {
	b.mu.RLock()
	handlers := b.handlers[evt.Type]
	b.mu.RUnlock()
	for _, h := range handlers {
		h(evt)
	}
}
