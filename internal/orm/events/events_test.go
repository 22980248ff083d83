package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleEvent(t Type) Event {
	return Event{
		Type:     t,
		Resource: "Post",
		ID:       int64(7),
		Record:   map[string]interface{}{"id": int64(7), "title": "Hello"},
		At:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMulti(t *testing.T) {
	var got []Type
	record := EmitterFunc(func(_ context.Context, e Event) error {
		got = append(got, e.Type)
		return nil
	})
	failing := EmitterFunc(func(context.Context, Event) error {
		return errors.New("boom")
	})

	err := Multi{record, nil, failing, record, Nop{}}.Emit(context.Background(), sampleEvent(Created))
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, []Type{Created, Created}, got)
}

func TestBus(t *testing.T) {
	bus := NewBus(2, zap.NewNop())

	var mu sync.Mutex
	received := map[string][]Type{}
	record := func(name string) Handler {
		return func(_ context.Context, e Event) error {
			mu.Lock()
			defer mu.Unlock()
			received[name] = append(received[name], e.Type)
			return nil
		}
	}

	bus.Subscribe("Post", record("posts"))
	bus.Subscribe("Post", record("deletes"), Deleted)
	bus.Subscribe(AnyResource, record("all"))
	bus.Subscribe("Comment", record("comments"))
	bus.Subscribe("Post", func(context.Context, Event) error { panic("subscriber bug") })

	ctx := context.Background()
	require.NoError(t, bus.Emit(ctx, sampleEvent(Created)))
	require.NoError(t, bus.Emit(ctx, sampleEvent(Deleted)))
	bus.Close()

	assert.ElementsMatch(t, []Type{Created, Deleted}, received["posts"])
	assert.Equal(t, []Type{Deleted}, received["deletes"])
	assert.ElementsMatch(t, []Type{Created, Deleted}, received["all"])
	assert.Empty(t, received["comments"])

	assert.Error(t, bus.Emit(ctx, sampleEvent(Updated)), "closed bus must reject events")
}

func TestQueueRequiresStart(t *testing.T) {
	q := NewQueue(1, 1, nil)
	err := q.Enqueue(Task{Name: "x", Fn: func(context.Context) error { return nil }})
	assert.Error(t, err)

	q.Start()
	done := make(chan struct{})
	require.NoError(t, q.Enqueue(Task{Name: "x", Fn: func(context.Context) error {
		close(done)
		return errors.New("logged, not returned")
	}}))
	<-done
	q.Shutdown()
	q.Shutdown()
}

func TestEncodeDecode(t *testing.T) {
	event := sampleEvent(Updated)
	event.Previous = map[string]interface{}{"title": "Before"}

	payload, err := Encode(event)
	require.NoError(t, err)

	decoded, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, Updated, decoded.Type)
	assert.Equal(t, "Post", decoded.Resource)
	assert.Equal(t, "Hello", decoded.Record["title"])
	assert.Equal(t, "Before", decoded.Previous["title"])
	assert.True(t, event.At.Equal(decoded.At))

	_, err = Decode([]byte{0xc1})
	assert.Error(t, err)
}

func TestRedisPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	publisher := NewRedisPublisher(client, "")
	channel := publisher.Channel("Post", Created)
	assert.Equal(t, "scaffold:post:created", channel)

	sub := client.Subscribe(ctx, channel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, publisher.Emit(ctx, sampleEvent(Created)))

	msgCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(msgCtx)
	require.NoError(t, err)

	event, err := Decode([]byte(msg.Payload))
	require.NoError(t, err)
	assert.Equal(t, Created, event.Type)
	assert.Equal(t, "Hello", event.Record["title"])
}

func TestRedisPublisherError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	err := NewRedisPublisher(client, "app").Emit(context.Background(), sampleEvent(Deleted))
	assert.ErrorContains(t, err, "publish deleted event")
}
