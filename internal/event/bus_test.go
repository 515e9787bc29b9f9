package event

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestBus_PublishFillsDefaults(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	bus.Publish(Event{Type: TypeLoginFailed, ClientIP: "203.0.113.9"})

	select {
	case e := <-ch:
		assert.Equal(t, TypeLoginFailed, e.Type)
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus()
	_, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for i := 0; i < subscriberBuffer+5; i++ {
		bus.Publish(Event{Type: TypeLogout})
	}
	assert.Equal(t, int64(5), bus.Dropped())
}

func TestBus_UnsubscribeIsIdempotent(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe()
	unsubscribe()
	unsubscribe()

	_, open := <-ch
	assert.False(t, open)
	bus.Publish(Event{Type: TypeLogout})
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestLogSubscriber(t *testing.T) {
	defer goleak.VerifyNone(t)

	var out syncBuffer
	logger := slog.New(slog.NewTextHandler(&out, nil))
	bus := NewBus()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- LogSubscriber(ctx, bus, logger) }()

	require.Eventually(t, func() bool {
		bus.mu.RLock()
		defer bus.mu.RUnlock()
		return len(bus.subscribers) == 1
	}, time.Second, time.Millisecond)

	bus.Publish(Event{Type: TypePasswordChanged, ActorID: "u-1", Payload: map[string]string{"via": "settings"}})

	assert.Eventually(t, func() bool {
		s := out.String()
		return bytes.Contains([]byte(s), []byte("type=user.password.changed")) &&
			bytes.Contains([]byte(s), []byte("actor_id=u-1"))
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
