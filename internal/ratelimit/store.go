package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Entry is the counter state for one key in the current window.
type Entry struct {
	Count   int
	ResetAt time.Time
}

// Store holds window counters. MemoryStore serves a single process; a
// shared implementation (Redis, SQL) can replace it for multi-instance
// deployments without changing Limiter.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)

	// Increment adds one to an existing entry and returns the new state.
	Increment(ctx context.Context, key string) (Entry, error)

	// Reset starts a new window for key with a count of one.
	Reset(ctx context.Context, key string, resetAt time.Time) (Entry, error)
}

// MemoryStore is a mutex-guarded in-process Store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]Entry{}}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	return entry, ok, nil
}

func (s *MemoryStore) Increment(_ context.Context, key string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.entries[key]
	entry.Count++
	s.entries[key] = entry
	return entry, nil
}

func (s *MemoryStore) Reset(_ context.Context, key string, resetAt time.Time) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := Entry{Count: 1, ResetAt: resetAt}
	s.entries[key] = entry
	return entry, nil
}

// Prune drops entries whose window ended at or before now.
func (s *MemoryStore) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.entries {
		if !now.Before(entry.ResetAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Janitor periodically prunes a MemoryStore so idle keys do not accumulate.
type Janitor struct {
	store    *MemoryStore
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

// StartJanitor launches the prune loop. Call Stop to end it.
func StartJanitor(store *MemoryStore, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}

	j := &Janitor{
		store:    store,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go j.run()
	return j
}

func (j *Janitor) run() {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stop:
			return
		case now := <-ticker.C:
			j.store.Prune(now)
		}
	}
}

// Stop ends the loop and waits for it to exit. Safe to call more than once.
func (j *Janitor) Stop() {
	j.once.Do(func() { close(j.stop) })
	<-j.done
}
