package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"go-trip-planner/internal/auth"
	"go-trip-planner/internal/model"
)

// MemoryUserRepository is an in-process identity store for tests and local runs.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]model.User
	byEmail map[string]string
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    map[string]model.User{},
		byEmail: map[string]string{},
	}
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return model.User{}, oops.Code("USER_NOT_FOUND").With("user_id", id).Wrap(auth.ErrNotFound)
	}
	return u, nil
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[normalizeEmail(email)]
	if !ok {
		return model.User{}, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return r.byID[id], nil
}

func (r *MemoryUserRepository) Create(_ context.Context, u model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := normalizeEmail(u.Email)
	if _, exists := r.byEmail[key]; exists {
		return oops.Code("USER_CREATE_FAILED").With("email", u.Email).Errorf("email already registered")
	}
	r.byID[u.ID] = u
	r.byEmail[key] = u.ID
	return nil
}

func (r *MemoryUserRepository) UpdatePassword(_ context.Context, userID string, passwordHash string) error {
	return r.update(userID, func(u *model.User) { u.PasswordHash = passwordHash })
}

func (r *MemoryUserRepository) UpdateLanguage(_ context.Context, userID string, language string) error {
	return r.update(userID, func(u *model.User) { u.Language = language })
}

func (r *MemoryUserRepository) update(userID string, fn func(*model.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok {
		return oops.Code("USER_NOT_FOUND").With("user_id", userID).Wrap(auth.ErrNotFound)
	}
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	r.byID[userID] = u
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MemoryResetTokenRepository is an in-process auth.ResetTokenStore.
type MemoryResetTokenRepository struct {
	mu     sync.Mutex
	byHash map[string]*auth.PasswordResetToken
}

func NewMemoryResetTokenRepository() *MemoryResetTokenRepository {
	return &MemoryResetTokenRepository{byHash: map[string]*auth.PasswordResetToken{}}
}

func (r *MemoryResetTokenRepository) Create(_ context.Context, token *auth.PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byHash[token.TokenHash]; exists {
		return oops.Code("RESET_CREATE_FAILED").Errorf("duplicate token hash")
	}
	stored := *token
	r.byHash[token.TokenHash] = &stored
	return nil
}

func (r *MemoryResetTokenRepository) FindByHash(_ context.Context, tokenHash string) (*auth.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.byHash[tokenHash]
	if !ok {
		return nil, oops.Code("RESET_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	out := *token
	return &out, nil
}

func (r *MemoryResetTokenRepository) MarkUsed(_ context.Context, id ulid.ULID, usedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, token := range r.byHash {
		if token.ID != id {
			continue
		}
		if token.Used || token.IsExpired(usedAt) {
			return false, nil
		}
		token.Used = true
		return true, nil
	}
	return false, nil
}

func (r *MemoryResetTokenRepository) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for hash, token := range r.byHash {
		if token.IsExpired(before) {
			delete(r.byHash, hash)
			removed++
		}
	}
	return removed, nil
}

// Len reports how many tokens are stored.
func (r *MemoryResetTokenRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byHash)
}
