package chathub

import (
	"context"
	"sync"
	"time"
)

// Guard remembers recently resolved leave events so a late duplicate can be
// recognised. Entries expire after a TTL.
type Guard interface {
	Seen(ctx context.Context, key string) (bool, error)
	Remember(ctx context.Context, key string) error
}

// MemoryGuard is a bounded, expiring in-process Guard.
type MemoryGuard struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryGuard(ttl time.Duration, max int) *MemoryGuard {
	return &MemoryGuard{
		ttl:     ttl,
		max:     max,
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (g *MemoryGuard) WithClock(now func() time.Time) *MemoryGuard {
	g.now = now
	return g
}

func (g *MemoryGuard) Seen(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	expires, ok := g.entries[key]
	if !ok {
		return false, nil
	}
	if !g.now().Before(expires) {
		delete(g.entries, key)
		return false, nil
	}
	return true, nil
}

func (g *MemoryGuard) Remember(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.purgeLocked(now)
	if _, ok := g.entries[key]; !ok && g.max > 0 && len(g.entries) >= g.max {
		g.evictOldestLocked()
	}
	g.entries[key] = now.Add(g.ttl)
	return nil
}

func (g *MemoryGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

func (g *MemoryGuard) purgeLocked(now time.Time) {
	for k, exp := range g.entries {
		if !now.Before(exp) {
			delete(g.entries, k)
		}
	}
}

func (g *MemoryGuard) evictOldestLocked() {
	var oldest string
	var oldestExp time.Time
	for k, exp := range g.entries {
		if oldest == "" || exp.Before(oldestExp) {
			oldest, oldestExp = k, exp
		}
	}
	delete(g.entries, oldest)
}
