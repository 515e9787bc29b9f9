// Package notify delivers password reset links to account owners.
package notify

import (
	"context"
	"log/slog"
	"time"
)

// ResetNotice is everything needed to tell a user how to reset their
// password. ResetURL carries the raw token and must never be logged in
// production.
type ResetNotice struct {
	UserID    string
	Email     string
	Language  string
	ResetURL  string
	ExpiresAt time.Time
}

type Notifier interface {
	SendPasswordReset(ctx context.Context, notice ResetNotice) error
}

// LogNotifier writes the reset link to the log. Development only.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendPasswordReset(_ context.Context, notice ResetNotice) error {
	n.logger.Info("password reset link (development mailer)",
		"user_id", notice.UserID,
		"email", notice.Email,
		"reset_url", notice.ResetURL,
		"expires_at", notice.ExpiresAt,
	)
	return nil
}
