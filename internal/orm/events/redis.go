package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultChannel is the channel prefix used when none is configured
const DefaultChannel = "scaffold"

// RedisPublisher publishes msgpack-encoded events on
// "<channel>:<resource>:<type>", so consumers can PSUBSCRIBE to a resource.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisPublisher creates a publisher on client
func NewRedisPublisher(client redis.UniversalClient, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

// Channel returns the channel an event is published on
func (p *RedisPublisher) Channel(resource string, t Type) string {
	return fmt.Sprintf("%s:%s:%s", p.channel, strings.ToLower(resource), t)
}

// Emit encodes and publishes event
func (p *RedisPublisher) Emit(ctx context.Context, event Event) error {
	payload, err := Encode(event)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.Channel(event.Resource, event.Type), payload).Err(); err != nil {
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}
	return nil
}

// Encode serializes an event as msgpack
func Encode(event Event) ([]byte, error) {
	payload, err := msgpack.Marshal(&event)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	return payload, nil
}

// Decode parses a msgpack payload produced by Encode
func Decode(payload []byte) (Event, error) {
	var event Event
	if err := msgpack.Unmarshal(payload, &event); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return event, nil
}
