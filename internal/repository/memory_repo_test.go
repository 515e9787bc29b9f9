package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-trip-planner/internal/auth"
	"go-trip-planner/internal/model"
)

func TestMemoryUserRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryUserRepository()
	require.NoError(t, repo.Create(ctx, model.User{ID: "u-1", Email: "Ana@Example.com", Role: model.RoleTraveler, Language: "en"}))
	require.Error(t, repo.Create(ctx, model.User{ID: "u-2", Email: "ana@example.com"}))

	u, err := repo.FindByEmail(ctx, " ANA@example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)

	require.NoError(t, repo.UpdateLanguage(ctx, "u-1", "it"))
	require.NoError(t, repo.UpdatePassword(ctx, "u-1", "hash"))
	u, err = repo.FindByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "it", u.Language)
	assert.Equal(t, "hash", u.PasswordHash)

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, auth.ErrNotFound)
	require.ErrorIs(t, repo.UpdatePassword(ctx, "missing", "x"), auth.ErrNotFound)
}

func TestMemoryResetTokenRepository_MarkUsedSingleWinner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryResetTokenRepository()
	now := time.Now().UTC()
	token := &auth.PasswordResetToken{ID: ulid.Make(), UserID: "u-1", TokenHash: "h", ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	require.NoError(t, repo.Create(ctx, token))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := repo.MarkUsed(ctx, token.ID, now)
			if err == nil && won {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	stored, err := repo.FindByHash(ctx, "h")
	require.NoError(t, err)
	assert.True(t, stored.Used)
}

func TestMemoryResetTokenRepository_ExpiredCannotBeMarked(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryResetTokenRepository()
	now := time.Now().UTC()
	token := &auth.PasswordResetToken{ID: ulid.Make(), UserID: "u-1", TokenHash: "h", ExpiresAt: now, CreatedAt: now.Add(-time.Hour)}
	require.NoError(t, repo.Create(ctx, token))

	won, err := repo.MarkUsed(ctx, token.ID, now)
	require.NoError(t, err)
	assert.False(t, won)

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 0, repo.Len())
}
