package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

const (
	ResetTokenBytes = 32 // 64 hex chars
	ResetTokenTTL   = time.Hour

	// ResetPurgeGrace keeps expired tokens around long enough that a late
	// click still reports RESET_TOKEN_EXPIRED rather than not found.
	ResetPurgeGrace = ResetTokenTTL
)

// PasswordResetToken is the persisted half of a reset token. The raw token
// only ever exists in the message sent to the user.
type PasswordResetToken struct {
	ID        ulid.ULID
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// IsExpired reports whether the token can no longer be consumed at now.
func (t *PasswordResetToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// ResetTokenStore persists reset tokens.
type ResetTokenStore interface {
	Create(ctx context.Context, token *PasswordResetToken) error

	// FindByHash returns ErrNotFound when no token has the hash.
	FindByHash(ctx context.Context, tokenHash string) (*PasswordResetToken, error)

	// MarkUsed flips used from false to true and reports whether this call
	// won. It must be a single conditional write.
	MarkUsed(ctx context.Context, id ulid.ULID, usedAt time.Time) (bool, error)

	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// HashResetToken returns the hex SHA-256 digest stored in place of the raw token.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// PasswordResetTokenService issues and consumes single-use reset tokens.
type PasswordResetTokenService struct {
	store ResetTokenStore
	ttl   time.Duration
	now   func() time.Time
}

func NewPasswordResetTokenService(store ResetTokenStore) *PasswordResetTokenService {
	return &PasswordResetTokenService{
		store: store,
		ttl:   ResetTokenTTL,
		now:   time.Now,
	}
}

// SetNowFunc overrides the clock. Intended for tests.
func (s *PasswordResetTokenService) SetNowFunc(fn func() time.Time) {
	if fn == nil {
		fn = time.Now
	}
	s.now = fn
}

// Issue stores the hash of a new random token for userID and returns the
// raw token for out-of-band delivery.
func (s *PasswordResetTokenService) Issue(ctx context.Context, userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", oops.Code("RESET_USER_REQUIRED").Errorf("user id is required")
	}

	buf := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code("RESET_TOKEN_GENERATE_FAILED").Wrap(err)
	}
	raw := hex.EncodeToString(buf)

	now := s.now().UTC()
	record := &PasswordResetToken{
		ID:        ulid.Make(),
		UserID:    userID,
		TokenHash: HashResetToken(raw),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}

	if err := s.store.Create(ctx, record); err != nil {
		return "", oops.Code("RESET_ISSUE_FAILED").
			With("user_id", userID).
			Wrap(err)
	}

	return raw, nil
}

// Consume validates raw and marks it used. It returns the owning user id on
// success and one of ErrResetTokenNotFound, ErrResetTokenExpired or
// ErrResetTokenUsed otherwise.
func (s *PasswordResetTokenService) Consume(ctx context.Context, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", oops.Code("RESET_TOKEN_NOT_FOUND").Wrap(ErrResetTokenNotFound)
	}

	record, err := s.store.FindByHash(ctx, HashResetToken(raw))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", oops.Code("RESET_TOKEN_NOT_FOUND").Wrap(ErrResetTokenNotFound)
		}
		return "", oops.Code("RESET_CONSUME_FAILED").
			With("operation", "find by hash").
			Wrap(err)
	}

	now := s.now().UTC()
	if record.Used {
		return "", oops.Code("RESET_TOKEN_USED").With("token_id", record.ID.String()).Wrap(ErrResetTokenUsed)
	}
	if record.IsExpired(now) {
		return "", oops.Code("RESET_TOKEN_EXPIRED").With("token_id", record.ID.String()).Wrap(ErrResetTokenExpired)
	}

	won, err := s.store.MarkUsed(ctx, record.ID, now)
	if err != nil {
		return "", oops.Code("RESET_CONSUME_FAILED").
			With("operation", "mark used").
			With("token_id", record.ID.String()).
			Wrap(err)
	}
	if !won {
		return "", oops.Code("RESET_TOKEN_USED").With("token_id", record.ID.String()).Wrap(ErrResetTokenUsed)
	}

	return record.UserID, nil
}

// Purge deletes tokens that expired more than ResetPurgeGrace ago.
func (s *PasswordResetTokenService) Purge(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpired(ctx, s.now().UTC().Add(-ResetPurgeGrace))
	if err != nil {
		return 0, oops.Code("RESET_PURGE_FAILED").Wrap(err)
	}
	return n, nil
}

// TTL is how long an issued token stays consumable.
func (s *PasswordResetTokenService) TTL() time.Duration {
	return s.ttl
}
