package events

import (
	"context"
	"fmt"
	"sync"

	"fieldservice_backend/platform/logger"
)

// InMemoryBus is a simple synchronous-registration, async-dispatch event bus.
// Handlers registered for an event name receive every published event of that
// name. Publish dispatches on a new goroutine per handler; a panicking handler
// is recovered and logged so one subscriber cannot take down the process.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logger.Logger
}

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for a specific event type.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish sends an event to all registered handlers asynchronously.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.EventName()]))
	copy(handlers, b.handlers[event.EventName()])
	b.mu.RUnlock()

	for _, h := range handlers {
		go b.dispatch(ctx, event, h)
	}
}

// PublishSync sends an event and waits for all handlers to complete.
// Returns the first handler error encountered, if any.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.EventName()]))
	copy(handlers, b.handlers[event.EventName()])
	b.mu.RUnlock()

	var firstErr error
	for _, h := range handlers {
		if err := b.safeHandle(ctx, event, h); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (b *InMemoryBus) dispatch(ctx context.Context, event Event, h Handler) {
	if err := b.safeHandle(ctx, event, h); err != nil && b.log != nil {
		b.log.Error("event handler failed", "event", event.EventName(), "error", err)
	}
}

func (b *InMemoryBus) safeHandle(ctx context.Context, event Event, h Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, event)
}
