package ratelimit

import (
	"sync"
	"time"
)

type entry struct {
	count     int64
	resetTime time.Time
}

// MemoryCounter is an in-process fixed window counter
type MemoryCounter struct {
	mu            sync.Mutex
	entries       map[string]*entry
	now           func() time.Time
	sweepInterval time.Duration
	lastSweep     time.Time
}

// NewMemoryCounter creates a counter that sweeps expired entries at most once per sweepInterval
func NewMemoryCounter(sweepInterval time.Duration, now func() time.Time) *MemoryCounter {
	if now == nil {
		now = time.Now
	}
	return &MemoryCounter{
		entries:       make(map[string]*entry),
		now:           now,
		sweepInterval: sweepInterval,
		lastSweep:     now(),
	}
}

// Increment counts one request for key and returns the count and window reset time
func (m *MemoryCounter) Increment(key string, window time.Duration) (int64, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.sweepInterval > 0 && now.Sub(m.lastSweep) >= m.sweepInterval {
		m.sweepLocked(now)
	}

	e, ok := m.entries[key]
	if !ok || !now.Before(e.resetTime) {
		e = &entry{count: 0, resetTime: now.Add(window)}
		m.entries[key] = e
	}
	e.count++
	return e.count, e.resetTime
}

// Cleanup removes every expired entry and returns how many were removed
func (m *MemoryCounter) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(m.now())
}

// Len returns the number of tracked identifiers
func (m *MemoryCounter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryCounter) sweepLocked(now time.Time) int {
	removed := 0
	for key, e := range m.entries {
		if !now.Before(e.resetTime) {
			delete(m.entries, key)
			removed++
		}
	}
	m.lastSweep = now
	return removed
}
