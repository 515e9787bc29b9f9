package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-trip-planner/pkg/errutil"
)

type fakeResetStore struct {
	mu     sync.Mutex
	tokens map[string]*PasswordResetToken
	err    error
}

func newFakeResetStore() *fakeResetStore {
	return &fakeResetStore{tokens: map[string]*PasswordResetToken{}}
}

func (f *fakeResetStore) Create(_ context.Context, token *PasswordResetToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	stored := *token
	f.tokens[token.TokenHash] = &stored
	return nil
}

func (f *fakeResetStore) FindByHash(_ context.Context, tokenHash string) (*PasswordResetToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	token, ok := f.tokens[tokenHash]
	if !ok {
		return nil, ErrNotFound
	}
	out := *token
	return &out, nil
}

func (f *fakeResetStore) MarkUsed(_ context.Context, id ulid.ULID, usedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, token := range f.tokens {
		if token.ID == id {
			if token.Used || token.IsExpired(usedAt) {
				return false, nil
			}
			token.Used = true
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeResetStore) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for hash, token := range f.tokens {
		if token.IsExpired(before) {
			delete(f.tokens, hash)
			n++
		}
	}
	return n, nil
}

func newTestResetService(now *time.Time) (*PasswordResetTokenService, *fakeResetStore) {
	store := newFakeResetStore()
	svc := NewPasswordResetTokenService(store)
	svc.SetNowFunc(func() time.Time { return *now })
	return svc, store
}

func TestPasswordResetTokenService_IssueStoresOnlyHash(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	svc, store := newTestResetService(&now)

	raw, err := svc.Issue(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, raw, ResetTokenBytes*2)

	require.Len(t, store.tokens, 1)
	for hash, record := range store.tokens {
		assert.NotEqual(t, raw, hash)
		assert.Equal(t, HashResetToken(raw), hash)
		assert.Equal(t, "user-1", record.UserID)
		assert.Equal(t, now.Add(ResetTokenTTL), record.ExpiresAt)
		assert.False(t, record.Used)
	}
}

func TestPasswordResetTokenService_ConsumeOnce(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	svc, _ := newTestResetService(&now)
	ctx := context.Background()

	raw, err := svc.Issue(ctx, "user-1")
	require.NoError(t, err)

	userID, err := svc.Consume(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	_, err = svc.Consume(ctx, raw)
	require.ErrorIs(t, err, ErrResetTokenUsed)
	errutil.AssertErrorCode(t, err, "RESET_TOKEN_USED")
	assert.True(t, IsResetTokenFailure(err))
}

func TestPasswordResetTokenService_ConsumeExpired(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	svc, _ := newTestResetService(&now)
	ctx := context.Background()

	raw, err := svc.Issue(ctx, "user-1")
	require.NoError(t, err)

	now = now.Add(ResetTokenTTL + time.Second)
	_, err = svc.Consume(ctx, raw)
	require.ErrorIs(t, err, ErrResetTokenExpired)
	errutil.AssertErrorCode(t, err, "RESET_TOKEN_EXPIRED")
}

func TestPasswordResetTokenService_ConsumeUnknown(t *testing.T) {
	t.Parallel()

	now := time.Now()
	svc, _ := newTestResetService(&now)

	for _, raw := range []string{"", "deadbeef"} {
		_, err := svc.Consume(context.Background(), raw)
		require.ErrorIs(t, err, ErrResetTokenNotFound)
		errutil.AssertErrorCode(t, err, "RESET_TOKEN_NOT_FOUND")
	}
}

func TestPasswordResetTokenService_ConcurrentConsumeHasOneWinner(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	svc, _ := newTestResetService(&now)
	ctx := context.Background()

	raw, err := svc.Issue(ctx, "user-1")
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Consume(ctx, raw); err == nil {
				wins.Add(1)
			} else if !errors.Is(err, ErrResetTokenUsed) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestPasswordResetTokenService_StoreErrors(t *testing.T) {
	t.Parallel()

	now := time.Now()
	svc, store := newTestResetService(&now)
	store.err = errors.New("connection refused")

	_, err := svc.Issue(context.Background(), "user-1")
	errutil.AssertErrorCode(t, err, "RESET_ISSUE_FAILED")

	_, err = svc.Consume(context.Background(), "abc")
	errutil.AssertErrorCode(t, err, "RESET_CONSUME_FAILED")
	assert.False(t, IsResetTokenFailure(err))

	_, err = svc.Issue(context.Background(), "")
	errutil.AssertErrorCode(t, err, "RESET_USER_REQUIRED")
}

func TestPasswordResetTokenService_Purge(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	svc, store := newTestResetService(&now)
	ctx := context.Background()

	_, err := svc.Issue(ctx, "user-1")
	require.NoError(t, err)
	now = now.Add(30 * time.Minute)
	recent, err := svc.Issue(ctx, "user-2")
	require.NoError(t, err)

	// user-1 expired 75 minutes ago, user-2 only 45.
	now = now.Add(105 * time.Minute)
	n, err := svc.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Len(t, store.tokens, 1)

	_, err = svc.Consume(ctx, recent)
	require.ErrorIs(t, err, ErrResetTokenExpired)
	errutil.AssertErrorCode(t, err, "RESET_TOKEN_EXPIRED")
}
