package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"order-assistant/internal/cart"
	"order-assistant/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestRunOnce_SweepsExpiredCarts(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := cart.NewMemoryStore(cart.WithClock(func() time.Time { return now }))
	store.Set("s1", &models.Cart{SessionID: "s1", UpdatedAt: now})

	now = now.Add(cart.DefaultTTL + time.Minute)

	w := NewSweepWorker(time.Hour, map[string]Sweeper{"carts": store})
	w.RunOnce()

	assert.Equal(t, 0, store.Len())
}

func TestStartStop(t *testing.T) {
	var calls int32
	w := NewSweepWorker(5*time.Millisecond, map[string]Sweeper{
		"counter": SweeperFunc(func() int {
			atomic.AddInt32(&calls, 1)
			return 0
		}),
	})

	w.Start(context.Background())
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 2 }, time.Second, 5*time.Millisecond)
	w.Stop()

	after := atomic.LoadInt32(&calls)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&calls), "no sweeps after Stop")
}
