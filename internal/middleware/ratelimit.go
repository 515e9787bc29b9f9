package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"go-trip-planner/internal/metrics"
	"go-trip-planner/internal/ratelimit"
	"go-trip-planner/pkg/apierror"
	"go-trip-planner/pkg/errutil"
)

// Throttle is a coarse per-client token bucket in front of the whole API.
// The per-action fixed windows in ActionLimiter sit behind it.
type Throttle struct {
	rpm     int
	mu      sync.Mutex
	clients map[string]*throttleClient
	metrics *metrics.Metrics
}

type throttleClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewThrottle(rpm int, m *metrics.Metrics) *Throttle {
	if rpm <= 0 {
		rpm = 300
	}
	return &Throttle{rpm: rpm, clients: map[string]*throttleClient{}, metrics: m}
}

func (t *Throttle) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if ip == "" {
			next.ServeHTTP(w, r)
			return
		}

		if !t.limiter(ip).Allow() {
			t.metrics.RateLimited("general")
			w.Header().Set("Retry-After", "60")
			writeAPIError(w, apierror.RateLimited())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (t *Throttle) limiter(ip string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	if c, ok := t.clients[ip]; ok {
		c.lastSeen = now
		return c.limiter
	}

	c := &throttleClient{
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(t.rpm)), t.rpm),
		lastSeen: now,
	}
	t.clients[ip] = c
	t.gcLocked(now)
	return c.limiter
}

func (t *Throttle) gcLocked(now time.Time) {
	if len(t.clients) < 1000 {
		return
	}
	cutoff := now.Add(-10 * time.Minute)
	for ip, c := range t.clients {
		if c.lastSeen.Before(cutoff) {
			delete(t.clients, ip)
		}
	}
}

// ActionLimiter applies a fixed-window policy per client address.
type ActionLimiter struct {
	limiter *ratelimit.Limiter
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewActionLimiter(limiter *ratelimit.Limiter, m *metrics.Metrics, logger *slog.Logger) *ActionLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActionLimiter{limiter: limiter, metrics: m, logger: logger, now: time.Now}
}

// Limit enforces p before the wrapped handler runs. Requests whose client
// address cannot be determined are not limited.
func (a *ActionLimiter) Limit(p ratelimit.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ratelimit.Key(p.Action, clientIP(r))
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			res, err := a.limiter.Check(r.Context(), key, p.Limit, p.Window)
			if err != nil {
				errutil.LogError(a.logger, "rate limit check failed", err, "action", p.Action)
				writeAPIError(w, apierror.Internal())
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				a.metrics.RateLimited(p.Action)
				h.Set("Retry-After", strconv.Itoa(retryAfterSeconds(res.ResetAt, a.now())))
				writeAPIError(w, apierror.RateLimited())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func retryAfterSeconds(resetAt, now time.Time) int {
	secs := int(math.Ceil(resetAt.Sub(now).Seconds()))
	return max(secs, 1)
}
