package service

import (
	"context"
	"time"

	"go-trip-planner/internal/event"
	"go-trip-planner/internal/notify"
	"go-trip-planner/pkg/errutil"
)

const resetQueueSize = 256

type resetRequest struct {
	userID   string
	email    string
	language string
	clientIP string
}

// enqueueReset never blocks. A full queue drops the request.
func (s *AuthService) enqueueReset(req resetRequest) {
	select {
	case s.resetQueue <- req:
	default:
		s.metrics.ResetEvent("dropped")
		s.logger.Warn("password reset queue full, request dropped", "user_id", req.userID)
	}
}

// RunResetWorker issues tokens and sends notices for queued reset requests
// until ctx is done.
func (s *AuthService) RunResetWorker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-s.resetQueue:
			s.issueReset(ctx, req)
		}
	}
}

// DrainResetQueue processes everything queued so far and returns how many
// requests it handled.
func (s *AuthService) DrainResetQueue(ctx context.Context) int {
	n := 0
	for {
		select {
		case req := <-s.resetQueue:
			s.issueReset(ctx, req)
			n++
		default:
			return n
		}
	}
}

func (s *AuthService) issueReset(ctx context.Context, req resetRequest) {
	raw, err := s.resets.Issue(ctx, req.userID)
	if err != nil {
		errutil.LogError(s.logger, "password reset issue failed", err, "user_id", req.userID)
		return
	}

	notice := notify.ResetNotice{
		UserID:    req.userID,
		Email:     req.email,
		Language:  req.language,
		ResetURL:  s.resetURL(raw),
		ExpiresAt: time.Now().UTC().Add(s.resets.TTL()),
	}
	if err := s.notifier.SendPasswordReset(ctx, notice); err != nil {
		errutil.LogError(s.logger, "password reset notice failed", err, "user_id", req.userID)
	}

	s.publish(event.WithClientIP(ctx, req.clientIP), event.TypeResetRequested, req.userID, nil)
}
