package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *clock {
	return &clock{now: time.Date(2024, time.May, 10, 9, 0, 0, 0, time.UTC)}
}

type fakeRemote struct {
	mu     sync.Mutex
	counts map[string]int64
	ttl    time.Duration
	err    error
	keys   []string
}

func (f *fakeRemote) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, 0, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.keys = append(f.keys, key)
	f.counts[key]++
	ttl := f.ttl
	if ttl == 0 {
		ttl = window
	}
	return f.counts[key], ttl, nil
}

func TestCheck_DeniesAfterMaxRequests(t *testing.T) {
	c := newClock()
	l := NewLimiter(WithClock(c.Now))

	for i := 1; i <= 5; i++ {
		res := l.Check(context.Background(), "add_item:t1:s1", time.Minute, 5)
		require.True(t, res.Allowed, "request %d", i)
		assert.Equal(t, 5-i, res.Remaining)
		assert.Equal(t, 5, res.Limit)
		assert.Zero(t, res.RetryAfter)
	}

	c.Advance(20 * time.Second)
	res := l.Check(context.Background(), "add_item:t1:s1", time.Minute, 5)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, 40, res.RetryAfter)
	assert.Equal(t, c.Now().Add(40*time.Second), res.ResetTime)
}

func TestCheck_NewWindowAfterReset(t *testing.T) {
	c := newClock()
	l := NewLimiter(WithClock(c.Now))

	for i := 0; i < 3; i++ {
		l.Check(context.Background(), "id", time.Minute, 2)
	}
	assert.False(t, l.Check(context.Background(), "id", time.Minute, 2).Allowed)

	c.Advance(time.Minute)
	res := l.Check(context.Background(), "id", time.Minute, 2)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)
	assert.Equal(t, c.Now().Add(time.Minute), res.ResetTime)
}

func TestCheck_RetryAfterRoundsUp(t *testing.T) {
	c := newClock()
	l := NewLimiter(WithClock(c.Now))

	l.Check(context.Background(), "id", 10*time.Second, 1)
	c.Advance(8500 * time.Millisecond)

	res := l.Check(context.Background(), "id", 10*time.Second, 1)
	assert.False(t, res.Allowed)
	assert.Equal(t, 2, res.RetryAfter)
}

func TestCheck_IdentifiersAreIndependent(t *testing.T) {
	l := NewLimiter()

	assert.True(t, l.Check(context.Background(), "a", time.Minute, 1).Allowed)
	assert.False(t, l.Check(context.Background(), "a", time.Minute, 1).Allowed)
	assert.True(t, l.Check(context.Background(), "b", time.Minute, 1).Allowed)
}

func TestCheck_UsesRemoteWhenConfigured(t *testing.T) {
	c := newClock()
	remote := &fakeRemote{ttl: 30 * time.Second}
	l := NewLimiter(WithClock(c.Now), WithRemote(remote))

	l.Check(context.Background(), "checkout:t1:s1", time.Minute, 1)
	res := l.Check(context.Background(), "checkout:t1:s1", time.Minute, 1)

	assert.False(t, res.Allowed)
	assert.Equal(t, 30, res.RetryAfter)
	assert.Equal(t, []string{"ratelimit:checkout:t1:s1", "ratelimit:checkout:t1:s1"}, remote.keys)
	assert.Equal(t, 0, l.local.Len())
}

func TestCheck_FallsBackToLocalOnRemoteError(t *testing.T) {
	c := newClock()
	remote := &fakeRemote{err: errors.New("dial tcp: connection refused")}
	l := NewLimiter(WithClock(c.Now), WithRemote(remote))

	first := l.Check(context.Background(), "id", time.Minute, 1)
	assert.True(t, first.Allowed)

	second := l.Check(context.Background(), "id", time.Minute, 1)
	assert.False(t, second.Allowed)
	assert.Equal(t, 60, second.RetryAfter)
	assert.Equal(t, 1, l.local.Len())
}

func TestCheck_RemoteTimeoutFallsBack(t *testing.T) {
	blocking := remoteFunc(func(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
		<-ctx.Done()
		return 0, 0, ctx.Err()
	})
	l := NewLimiter(WithRemote(blocking), WithRemoteTimeout(10*time.Millisecond))

	res := l.Check(context.Background(), "id", time.Minute, 3)
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Remaining)
}

type remoteFunc func(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)

func (f remoteFunc) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	return f(ctx, key, window)
}

func TestMemoryCounter_LazySweep(t *testing.T) {
	c := newClock()
	m := NewMemoryCounter(5*time.Minute, c.Now)

	m.Increment("a", time.Minute)
	m.Increment("b", time.Minute)
	c.Advance(2 * time.Minute)

	// sweep interval not reached, expired entries still tracked
	m.Increment("c", time.Minute)
	assert.Equal(t, 3, m.Len())

	c.Advance(4 * time.Minute)
	m.Increment("c", time.Minute)
	assert.Equal(t, 1, m.Len())
}

func TestMemoryCounter_Cleanup(t *testing.T) {
	c := newClock()
	m := NewMemoryCounter(0, c.Now)

	m.Increment("short", time.Second)
	m.Increment("long", time.Hour)
	c.Advance(time.Second)

	assert.Equal(t, 1, m.Cleanup())
	assert.Equal(t, 1, m.Len())
}

func TestCheck_Concurrent(t *testing.T) {
	l := NewLimiter()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Check(context.Background(), "hot", time.Minute, 10).Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, allowed)
}
