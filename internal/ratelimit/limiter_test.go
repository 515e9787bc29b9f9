package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-trip-planner/pkg/errutil"
)

func newTestLimiter(now *time.Time) *Limiter {
	l := New(NewMemoryStore())
	l.SetNowFunc(func() time.Time { return *now })
	return l
}

func TestLimiter_FixedWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	l := newTestLimiter(&now)
	ctx := context.Background()
	window := 600000 * time.Millisecond

	for i := 1; i <= 10; i++ {
		res, err := l.Check(ctx, "login:203.0.113.5", 10, window)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "call %d", i)
		assert.Equal(t, 10-i, res.Remaining)
		assert.Equal(t, now.Add(window), res.ResetAt)
	}

	res, err := l.Check(ctx, "login:203.0.113.5", 10, window)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	resetAt := res.ResetAt

	now = now.Add(5 * time.Minute)
	res, err = l.Check(ctx, "login:203.0.113.5", 10, window)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, resetAt, res.ResetAt)

	now = resetAt
	res, err = l.Check(ctx, "login:203.0.113.5", 10, window)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 9, res.Remaining)
	assert.Equal(t, now.Add(window), res.ResetAt)
}

func TestLimiter_DenialDoesNotIncrement(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	l := New(store)
	l.SetNowFunc(func() time.Time { return now })
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := l.Check(ctx, "reset:a", 2, time.Minute)
		require.NoError(t, err)
	}

	entry, ok, err := store.Get(ctx, "reset:a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, entry.Count)
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	l := newTestLimiter(&now)
	ctx := context.Background()

	res, err := l.Check(ctx, Key("login", "198.51.100.1"), 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Check(ctx, Key("login", "198.51.100.1"), 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	res, err = l.Check(ctx, Key("reset", "198.51.100.1"), 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Check(ctx, Key("login", "198.51.100.2"), 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLimiter_ConcurrentChecksNeverExceedLimit(t *testing.T) {
	t.Parallel()

	l := New(NewMemoryStore())
	ctx := context.Background()

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := l.Check(ctx, "login:192.0.2.7", 10, time.Minute)
			if err == nil && res.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), allowed.Load())
}

func TestLimiter_InvalidPolicy(t *testing.T) {
	t.Parallel()

	l := New(nil)
	_, err := l.Check(context.Background(), "k", 0, time.Minute)
	errutil.AssertErrorCode(t, err, "RATE_LIMIT_INVALID_POLICY")

	_, err = l.Check(context.Background(), "k", 1, 0)
	errutil.AssertErrorCode(t, err, "RATE_LIMIT_INVALID_POLICY")
}

func TestLimiter_CheckPolicyBypassesAnonymousCallers(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	l := New(store)
	policy := Policy{Action: "login", Limit: 1, Window: time.Minute}

	for i := 0; i < 3; i++ {
		res, err := l.CheckPolicy(context.Background(), policy, "  ")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	assert.Equal(t, 0, store.Len())
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (Entry, bool, error) {
	return Entry{}, false, errors.New("redis unavailable")
}

func (failingStore) Increment(context.Context, string) (Entry, error) {
	return Entry{}, errors.New("redis unavailable")
}

func (failingStore) Reset(context.Context, string, time.Time) (Entry, error) {
	return Entry{}, errors.New("redis unavailable")
}

func TestLimiter_StoreErrors(t *testing.T) {
	t.Parallel()

	l := New(failingStore{})
	_, err := l.Check(context.Background(), "login:x", 5, time.Minute)
	errutil.AssertErrorCode(t, err, "RATE_LIMIT_STORE_FAILED")
}

func TestKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "login:203.0.113.5", Key("login", "203.0.113.5"))
	assert.Equal(t, "", Key("login", ""))
	assert.Equal(t, "", Key("login", "   "))
}
