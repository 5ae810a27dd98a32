package ratelimit

import (
	"context"
	"math"
	"time"

	"order-assistant/internal/util"

	"go.uber.org/zap"
)

const (
	backendLocal  = "local"
	backendRemote = "remote"
)

// RemoteCounter is a distributed fixed window counter. Increment counts one
// request for key, starting the window on the first one, and returns the count
// and the time left in the window.
type RemoteCounter interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Result describes a rate limit decision
type Result struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetTime  time.Time `json:"reset_time"`
	RetryAfter int       `json:"retry_after,omitempty"`
}

// Limiter checks request counts per identifier against a fixed window. When a
// remote counter is configured it is preferred; any remote failure falls back
// to the local counter for that call.
type Limiter struct {
	local         *MemoryCounter
	remote        RemoteCounter
	keyPrefix     string
	remoteTimeout time.Duration
	now           func() time.Time
	logger        *zap.Logger
}

// Option configures a Limiter
type Option func(*Limiter)

// WithRemote sets the distributed counter
func WithRemote(remote RemoteCounter) Option {
	return func(l *Limiter) { l.remote = remote }
}

// WithRemoteTimeout bounds each remote call
func WithRemoteTimeout(d time.Duration) Option {
	return func(l *Limiter) { l.remoteTimeout = d }
}

// WithKeyPrefix namespaces remote keys
func WithKeyPrefix(prefix string) Option {
	return func(l *Limiter) { l.keyPrefix = prefix }
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithSweepInterval sets how often the local counter drops expired entries on access
func WithSweepInterval(d time.Duration) Option {
	return func(l *Limiter) { l.local.sweepInterval = d }
}

// NewLimiter creates a limiter with a local counter and optional remote counter
func NewLimiter(opts ...Option) *Limiter {
	l := &Limiter{
		keyPrefix:     "ratelimit:",
		remoteTimeout: 200 * time.Millisecond,
		now:           time.Now,
		logger:        util.GetLogger(),
	}
	l.local = NewMemoryCounter(time.Minute, func() time.Time { return l.now() })
	for _, opt := range opts {
		opt(l)
	}
	l.local.lastSweep = l.now()
	return l
}

// Check counts a request for identifier and reports whether it is allowed. It never fails.
func (l *Limiter) Check(ctx context.Context, identifier string, window time.Duration, maxRequests int) Result {
	now := l.now()

	if l.remote != nil {
		count, ttl, err := l.checkRemote(ctx, identifier, window)
		if err == nil {
			if ttl <= 0 {
				ttl = window
			}
			return l.decide(backendRemote, count, now.Add(ttl), now, maxRequests)
		}

		util.RateLimitFallbacksTotal.Inc()
		l.logger.Warn("Remote rate limit check failed, falling back to local counter",
			zap.String("identifier", identifier),
			zap.Error(err))
	}

	count, reset := l.local.Increment(identifier, window)
	return l.decide(backendLocal, count, reset, now, maxRequests)
}

// Cleanup drops expired local entries
func (l *Limiter) Cleanup() int {
	return l.local.Cleanup()
}

func (l *Limiter) checkRemote(ctx context.Context, identifier string, window time.Duration) (int64, time.Duration, error) {
	if l.remoteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.remoteTimeout)
		defer cancel()
	}
	return l.remote.Increment(ctx, l.keyPrefix+identifier, window)
}

func (l *Limiter) decide(backend string, count int64, reset, now time.Time, maxRequests int) Result {
	res := Result{
		Allowed:   count <= int64(maxRequests),
		Limit:     maxRequests,
		ResetTime: reset,
	}

	if remaining := int64(maxRequests) - count; remaining > 0 {
		res.Remaining = int(remaining)
	}

	decision := "allowed"
	if !res.Allowed {
		decision = "denied"
		res.RetryAfter = int(math.Ceil(reset.Sub(now).Seconds()))
		if res.RetryAfter < 1 {
			res.RetryAfter = 1
		}
	}
	util.RateLimitDecisionsTotal.WithLabelValues(backend, decision).Inc()

	return res
}
