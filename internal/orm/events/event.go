// Package events carries record lifecycle notifications (created, updated,
// deleted) from the data-access layer to subscribers.
package events

import (
	"context"
	"errors"
	"time"
)

// Type identifies the lifecycle transition
type Type string

const (
	Created Type = "created"
	Updated Type = "updated"
	Deleted Type = "deleted"
)

// Event describes one committed change
type Event struct {
	Type     Type                   `msgpack:"type" json:"type"`
	Resource string                 `msgpack:"resource" json:"resource"`
	ID       interface{}            `msgpack:"id" json:"id"`
	Record   map[string]interface{} `msgpack:"record" json:"record"`
	Previous map[string]interface{} `msgpack:"previous,omitempty" json:"previous,omitempty"`
	At       time.Time              `msgpack:"at" json:"at"`
}

// Emitter receives events after the change is committed
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// EmitterFunc adapts a function to Emitter
type EmitterFunc func(ctx context.Context, event Event) error

// Emit calls f
func (f EmitterFunc) Emit(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Nop discards every event
type Nop struct{}

// Emit does nothing
func (Nop) Emit(context.Context, Event) error { return nil }

// Multi fans an event out to several emitters. All emitters are called; their
// errors are joined.
type Multi []Emitter

// Emit forwards event to every emitter
func (m Multi) Emit(ctx context.Context, event Event) error {
	var errs []error
	for _, emitter := range m {
		if emitter == nil {
			continue
		}
		if err := emitter.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
