package eventx

import (
	"context"
	"reflect"
	"sync"

	"github.com/Abraxas-365/rxintake/logx"
)

// Handler processes one event
type Handler func(ctx context.Context, e Event) error

// Bus delivers events to whatever is listening downstream
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Close(ctx context.Context) error
}

// NopBus drops every event
type NopBus struct{}

func (NopBus) Publish(context.Context, Event) error { return nil }
func (NopBus) Close(context.Context) error          { return nil }

// MemoryBus dispatches synchronously to in-process subscribers. A failing
// handler is logged and does not stop the others.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	closed   bool
}

var (
	_ Bus = NopBus{}
	_ Bus = (*MemoryBus)(nil)
)

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: make(map[string][]Handler)}
}

// Subscribe registers h for eventType; "*" receives every event
func (b *MemoryBus) Subscribe(eventType string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], h)
}

func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrorRegistry.New(ErrBusClosed).WithDetail("event_type", event.Type())
	}
	handlers := append([]Handler{}, b.handlers[event.Type()]...)
	handlers = append(handlers, b.handlers["*"]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, event); err != nil {
			logx.Error("event %s (%s) handler failed: %v", event.ID(), event.Type(), err)
		}
	}
	return nil
}

func (b *MemoryBus) Close(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// SubscribeTyped registers a handler that receives the typed event
func SubscribeTyped[T any](bus *MemoryBus, eventType string, handler func(context.Context, TypedEvent[T]) error) {
	bus.Subscribe(eventType, func(ctx context.Context, e Event) error {
		if typed, ok := e.(TypedEvent[T]); ok {
			return handler(ctx, typed)
		}
		return ErrorRegistry.New(ErrInvalidEventType).
			WithDetail("expected_type", reflect.TypeOf((*T)(nil)).Elem().String()).
			WithDetail("actual_type", reflect.TypeOf(e.Payload()).String())
	})
}
