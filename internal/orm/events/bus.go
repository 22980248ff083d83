package events

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Handler consumes one event
type Handler func(ctx context.Context, event Event) error

// AnyResource subscribes to events of every resource
const AnyResource = "*"

type subscription struct {
	resource string
	types    map[Type]bool
	handler  Handler
}

func (s subscription) matches(event Event) bool {
	if s.resource != AnyResource && s.resource != event.Resource {
		return false
	}
	return len(s.types) == 0 || s.types[event.Type]
}

// Bus delivers events to in-process subscribers on a worker queue, so a slow
// subscriber never delays the request that caused the change.
type Bus struct {
	mu            sync.RWMutex
	subscriptions []subscription
	queue         *Queue
}

// NewBus creates a bus with its own started worker queue
func NewBus(workers int, logger *zap.Logger) *Bus {
	queue := NewQueue(workers, 0, logger)
	queue.Start()
	return &Bus{queue: queue}
}

// Subscribe registers handler for resource (or AnyResource). No types means all types.
func (b *Bus) Subscribe(resource string, handler Handler, types ...Type) {
	set := make(map[Type]bool, len(types))
	for _, t := range types {
		set[t] = true
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscriptions = append(b.subscriptions, subscription{
		resource: resource,
		types:    set,
		handler:  handler,
	})
}

// Emit queues event for every matching subscriber
func (b *Bus) Emit(_ context.Context, event Event) error {
	b.mu.RLock()
	var matched []Handler
	for _, sub := range b.subscriptions {
		if sub.matches(event) {
			matched = append(matched, sub.handler)
		}
	}
	b.mu.RUnlock()

	for i, handler := range matched {
		handler := handler
		err := b.queue.Enqueue(Task{
			Name: fmt.Sprintf("%s.%s#%d", event.Resource, event.Type, i),
			Fn: func(ctx context.Context) error {
				return handler(ctx, event)
			},
		})
		if err != nil {
			return fmt.Errorf("emit %s %s: %w", event.Resource, event.Type, err)
		}
	}
	return nil
}

// Close waits for queued deliveries to finish
func (b *Bus) Close() {
	b.queue.Shutdown()
}
