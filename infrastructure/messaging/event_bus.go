package messaging

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"loom-backend/domain/events"
)

// EventBus is an in-process publish/subscribe bus for domain events.
// Handlers run synchronously on the publisher's goroutine; a panicking
// handler is recovered and logged so one bad subscriber cannot take
// down a mutation.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]func(ctx context.Context, event events.DomainEvent)
	logger   *zap.Logger
}

// NewEventBus creates an event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		handlers: make(map[string][]func(ctx context.Context, event events.DomainEvent)),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event type. The wildcard "*"
// receives every event.
func (b *EventBus) Subscribe(eventType string, handler func(ctx context.Context, event events.DomainEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish delivers an event to its subscribers
func (b *EventBus) Publish(ctx context.Context, event events.DomainEvent) error {
	b.mu.RLock()
	handlers := make([]func(ctx context.Context, event events.DomainEvent), 0,
		len(b.handlers[event.GetEventType()])+len(b.handlers["*"]))
	handlers = append(handlers, b.handlers[event.GetEventType()]...)
	handlers = append(handlers, b.handlers["*"]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.dispatch(ctx, event, handler)
	}
	return nil
}

func (b *EventBus) dispatch(ctx context.Context, event events.DomainEvent, handler func(ctx context.Context, event events.DomainEvent)) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("event_type", event.GetEventType()),
				zap.Any("panic", r))
		}
	}()
	handler(ctx, event)
}
