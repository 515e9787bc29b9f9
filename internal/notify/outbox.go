package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"go-trip-planner/internal/metrics"
	"go-trip-planner/pkg/errutil"
)

const DefaultOutboxCapacity = 256

// Outbox decouples reset requests from delivery. Enqueue never blocks and
// never fails the caller, so the request path takes the same time whether
// or not a message was produced.
type Outbox struct {
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu       sync.Mutex
	queue    []ResetNotice
	capacity int
	wake     chan struct{}

	attempts  uint64
	retryBase time.Duration
}

type OutboxOption func(*Outbox)

func WithCapacity(n int) OutboxOption {
	return func(o *Outbox) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// WithRetry sets how many extra delivery attempts a notice gets.
func WithRetry(attempts uint64, base time.Duration) OutboxOption {
	return func(o *Outbox) {
		o.attempts = attempts
		if base > 0 {
			o.retryBase = base
		}
	}
}

func WithMetrics(m *metrics.Metrics) OutboxOption {
	return func(o *Outbox) { o.metrics = m }
}

func NewOutbox(notifier Notifier, logger *slog.Logger, opts ...OutboxOption) *Outbox {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Outbox{
		notifier:  notifier,
		logger:    logger,
		capacity:  DefaultOutboxCapacity,
		wake:      make(chan struct{}, 1),
		attempts:  2,
		retryBase: time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SendPasswordReset queues the notice. It satisfies Notifier so the outbox
// can stand in for a direct mailer.
func (o *Outbox) SendPasswordReset(_ context.Context, notice ResetNotice) error {
	o.Enqueue(notice)
	return nil
}

func (o *Outbox) Enqueue(notice ResetNotice) {
	o.mu.Lock()
	if len(o.queue) >= o.capacity {
		o.mu.Unlock()
		o.logger.Warn("notification outbox full, dropping notice", "user_id", notice.UserID)
		o.metrics.NotificationDelivered(false)
		return
	}
	o.queue = append(o.queue, notice)
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// Run delivers queued notices until ctx is done.
func (o *Outbox) Run(ctx context.Context) error {
	for {
		o.drain(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-o.wake:
		}
	}
}

func (o *Outbox) drain(ctx context.Context) {
	for {
		notice, ok := o.next()
		if !ok {
			return
		}
		if ctx.Err() != nil {
			return
		}
		o.deliver(ctx, notice)
	}
}

func (o *Outbox) next() (ResetNotice, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.queue) == 0 {
		return ResetNotice{}, false
	}
	n := o.queue[0]
	o.queue[0] = ResetNotice{}
	o.queue = o.queue[1:]
	return n, true
}

func (o *Outbox) deliver(ctx context.Context, notice ResetNotice) {
	backoff := retry.WithMaxRetries(o.attempts, retry.NewExponential(o.retryBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := o.notifier.SendPasswordReset(ctx, notice); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		o.metrics.NotificationDelivered(false)
		errutil.LogError(o.logger, "password reset notice not delivered",
			oops.Code("NOTIFY_GAVE_UP").With("user_id", notice.UserID).Wrap(err))
		return
	}
	o.metrics.NotificationDelivered(true)
}
