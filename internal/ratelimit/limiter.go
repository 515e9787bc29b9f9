// Package ratelimit implements fixed-window request limiting keyed by
// action and caller identity.
package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"
)

// Policy is a per-action limit.
type Policy struct {
	Action string
	Limit  int
	Window time.Duration
}

// Result describes the outcome of a Check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Key composes the counter key for an action and caller identity. An empty
// identity yields an empty key, which callers treat as "do not limit".
func Key(action, identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return ""
	}
	return action + ":" + identifier
}

// Limiter applies the fixed-window algorithm on top of a Store.
type Limiter struct {
	store Store
	// mu serializes the read-modify-write sequence for this process.
	mu  sync.Mutex
	now func() time.Time
}

func New(store Store) *Limiter {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Limiter{store: store, now: time.Now}
}

// SetNowFunc overrides the clock. Intended for tests.
func (l *Limiter) SetNowFunc(fn func() time.Time) {
	if fn == nil {
		fn = time.Now
	}
	l.now = fn
}

// Check counts one request against key. A new window starts when none
// exists or the previous one has ended. Once the limit is reached further
// calls are denied without incrementing, so Remaining stays at zero and
// ResetAt stays fixed until the window rolls over.
func (l *Limiter) Check(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	if limit <= 0 || window <= 0 {
		return Result{}, oops.Code("RATE_LIMIT_INVALID_POLICY").
			With("limit", limit).
			With("window", window.String()).
			Errorf("limit and window must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	entry, ok, err := l.store.Get(ctx, key)
	if err != nil {
		return Result{}, oops.Code("RATE_LIMIT_STORE_FAILED").With("operation", "get").Wrap(err)
	}

	if !ok || !now.Before(entry.ResetAt) {
		entry, err = l.store.Reset(ctx, key, now.Add(window))
		if err != nil {
			return Result{}, oops.Code("RATE_LIMIT_STORE_FAILED").With("operation", "reset").Wrap(err)
		}
		return Result{Allowed: true, Limit: limit, Remaining: limit - 1, ResetAt: entry.ResetAt}, nil
	}

	if entry.Count >= limit {
		return Result{Allowed: false, Limit: limit, Remaining: 0, ResetAt: entry.ResetAt}, nil
	}

	entry, err = l.store.Increment(ctx, key)
	if err != nil {
		return Result{}, oops.Code("RATE_LIMIT_STORE_FAILED").With("operation", "increment").Wrap(err)
	}

	return Result{Allowed: true, Limit: limit, Remaining: max(limit-entry.Count, 0), ResetAt: entry.ResetAt}, nil
}

// CheckPolicy is Check with the key built from p.Action and identifier.
// An empty identifier bypasses limiting.
func (l *Limiter) CheckPolicy(ctx context.Context, p Policy, identifier string) (Result, error) {
	key := Key(p.Action, identifier)
	if key == "" {
		return Result{Allowed: true, Limit: p.Limit, Remaining: p.Limit}, nil
	}
	return l.Check(ctx, key, p.Limit, p.Window)
}
