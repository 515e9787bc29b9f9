package event

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const subscriberBuffer = 100

type InMemoryBus struct {
	mu          sync.RWMutex
	subscribers map[string]chan Event
	dropped     atomic.Int64
}

func NewBus() *InMemoryBus {
	return &InMemoryBus{
		subscribers: make(map[string]chan Event),
	}
}

// Publish fans e out without blocking. A subscriber whose buffer is full
// misses the event.
func (b *InMemoryBus) Publish(e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

func (b *InMemoryBus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan Event, subscriberBuffer)
	b.subscribers[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			close(ch)
			delete(b.subscribers, id)
		})
	}

	return ch, unsubscribe
}

// Dropped reports how many deliveries were skipped for slow subscribers.
func (b *InMemoryBus) Dropped() int64 {
	return b.dropped.Load()
}

// LogSubscriber writes every event to logger as an audit trail until ctx
// is done.
func LogSubscriber(ctx context.Context, bus Bus, logger *slog.Logger) error {
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			attrs := []any{"event_id", e.ID, "type", string(e.Type)}
			if e.ActorID != "" {
				attrs = append(attrs, "actor_id", e.ActorID)
			}
			if e.ClientIP != "" {
				attrs = append(attrs, "client_ip", e.ClientIP)
			}
			for k, v := range e.Payload {
				attrs = append(attrs, k, v)
			}
			logger.Info("security event", attrs...)
		}
	}
}
