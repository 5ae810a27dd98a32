package cart

import (
	"sync"
	"time"

	"order-assistant/internal/models"
	"order-assistant/internal/util"

	"go.uber.org/zap"
)

const (
	DefaultTTL             = 2 * time.Hour
	DefaultCleanupInterval = 5 * time.Minute
)

// Store keeps carts by key, see Key
type Store interface {
	Get(key string) (*models.Cart, bool)
	Set(key string, cart *models.Cart)
	Delete(key string) bool
}

// Locker is implemented by stores that can serialize mutations of one cart.
// The returned func releases the lock and may be called more than once.
type Locker interface {
	Lock(key string) func()
}

// Key scopes a session id to its tenant, so two tenants reusing a session id
// never share a cart
func Key(tenantID, sessionID string) string {
	return tenantID + ":" + sessionID
}

// MemoryStore is a process-wide cart store with lazy TTL eviction. Carts are
// copied on the way in and out, so callers never share memory with the map.
type MemoryStore struct {
	mu          sync.RWMutex
	carts       map[string]*models.Cart
	lastCleanup time.Time

	ttl             time.Duration
	cleanupInterval time.Duration
	now             func() time.Time

	locksMu sync.Mutex
	locks   map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// Option configures a MemoryStore
type Option func(*MemoryStore)

// WithTTL sets how long an untouched cart survives
func WithTTL(ttl time.Duration) Option {
	return func(s *MemoryStore) { s.ttl = ttl }
}

// WithCleanupInterval sets the minimum time between two sweeps triggered by Get
func WithCleanupInterval(interval time.Duration) Option {
	return func(s *MemoryStore) { s.cleanupInterval = interval }
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates an empty store
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		carts:           make(map[string]*models.Cart),
		locks:           make(map[string]*keyLock),
		ttl:             DefaultTTL,
		cleanupInterval: DefaultCleanupInterval,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastCleanup = s.now()
	return s
}

// Get returns a copy of the cart stored under key. Expired carts are never returned.
func (s *MemoryStore) Get(key string) (*models.Cart, bool) {
	now := s.now()
	s.maybeCleanup(now)

	s.mu.RLock()
	cart, ok := s.carts[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if s.expired(cart, now) {
		return nil, false
	}
	return cart.Clone(), true
}

// Set stores a copy of the cart
func (s *MemoryStore) Set(key string, cart *models.Cart) {
	s.mu.Lock()
	s.carts[key] = cart.Clone()
	n := len(s.carts)
	s.mu.Unlock()

	util.ActiveCarts.Set(float64(n))
}

// Delete removes the cart and reports whether it existed
func (s *MemoryStore) Delete(key string) bool {
	s.mu.Lock()
	_, ok := s.carts[key]
	delete(s.carts, key)
	n := len(s.carts)
	s.mu.Unlock()

	util.ActiveCarts.Set(float64(n))
	return ok
}

// Len returns the number of stored carts, expired ones included until swept
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.carts)
}

// ForceCleanup sweeps every entry now and returns how many carts were evicted
func (s *MemoryStore) ForceCleanup() int {
	return s.sweep(s.now())
}

// Lock serializes mutations of one cart. Each key gets its own mutex, dropped
// once nobody holds or waits for it.
func (s *MemoryStore) Lock(key string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &keyLock{}
		s.locks[key] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()

			s.locksMu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(s.locks, key)
			}
			s.locksMu.Unlock()
		})
	}
}

func (s *MemoryStore) maybeCleanup(now time.Time) {
	s.mu.RLock()
	due := now.Sub(s.lastCleanup) >= s.cleanupInterval
	s.mu.RUnlock()
	if due {
		s.sweep(now)
	}
}

func (s *MemoryStore) sweep(now time.Time) int {
	s.mu.Lock()
	evicted := 0
	for id, cart := range s.carts {
		if s.expired(cart, now) {
			delete(s.carts, id)
			evicted++
		}
	}
	s.lastCleanup = now
	n := len(s.carts)
	s.mu.Unlock()

	if evicted > 0 {
		util.CartsEvictedTotal.Add(float64(evicted))
		util.GetLogger().Debug("Evicted expired carts", zap.Int("count", evicted))
	}
	util.ActiveCarts.Set(float64(n))
	return evicted
}

func (s *MemoryStore) expired(cart *models.Cart, now time.Time) bool {
	return now.Sub(cart.UpdatedAt) > s.ttl
}
