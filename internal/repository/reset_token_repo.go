package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"go-trip-planner/internal/auth"
)

// ResetTokenRepository implements auth.ResetTokenStore on PostgreSQL.
type ResetTokenRepository struct {
	db DBTX
}

func NewResetTokenRepository(db DBTX) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

func (r *ResetTokenRepository) Create(ctx context.Context, token *auth.PasswordResetToken) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, used, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		token.ID.String(), token.UserID, token.TokenHash, token.ExpiresAt, token.Used, token.CreatedAt)
	if err != nil {
		return oops.Code("RESET_CREATE_FAILED").
			With("operation", "insert password_reset_token").
			With("user_id", token.UserID).
			Wrap(err)
	}
	return nil
}

func (r *ResetTokenRepository) FindByHash(ctx context.Context, tokenHash string) (*auth.PasswordResetToken, error) {
	var (
		idStr string
		token auth.PasswordResetToken
	)

	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, token_hash, expires_at, used, created_at
		 FROM password_reset_tokens WHERE token_hash = $1`, tokenHash).
		Scan(&idStr, &token.UserID, &token.TokenHash, &token.ExpiresAt, &token.Used, &token.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("RESET_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("RESET_LOOKUP_FAILED").With("operation", "find by token hash").Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("RESET_LOOKUP_FAILED").With("operation", "parse id").With("id", idStr).Wrap(err)
	}
	token.ID = id

	return &token, nil
}

// MarkUsed is a single conditional UPDATE, so of any number of concurrent
// callers for the same unexpired token exactly one sees a row affected.
func (r *ResetTokenRepository) MarkUsed(ctx context.Context, id ulid.ULID, usedAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE password_reset_tokens SET used = true, used_at = $2
		 WHERE id = $1 AND used = false AND expires_at > $2`,
		id.String(), usedAt)
	if err != nil {
		return false, oops.Code("RESET_MARK_USED_FAILED").With("id", id.String()).Wrap(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ResetTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM password_reset_tokens WHERE expires_at <= $1`, before)
	if err != nil {
		return 0, oops.Code("RESET_DELETE_EXPIRED_FAILED").Wrap(err)
	}
	return tag.RowsAffected(), nil
}
