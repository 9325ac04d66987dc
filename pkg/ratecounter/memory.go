package ratecounter

import (
	"context"
	"sync"
	"time"
)

// MemoryCounter is an in-process Counter for single-instance deployments and
// tests. Windows are fixed: the first increment for a key stamps the reset
// time and the count is discarded once that time passes.
type MemoryCounter struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry

	lastSweep time.Time

	// now is swappable for tests.
	now func() time.Time
}

type memoryEntry struct {
	count   int64
	resetAt time.Time
}

// NewMemoryCounter returns an empty in-process counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		entries:   make(map[string]*memoryEntry),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (c *MemoryCounter) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.maybeSweep(now)

	e, ok := c.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = &memoryEntry{resetAt: now.Add(window)}
		c.entries[key] = e
	}

	e.count++
	return e.count, e.resetAt.Sub(now), nil
}

func (c *MemoryCounter) Close() error { return nil }

// maybeSweep drops lapsed windows so ephemeral keys don't accumulate.
// Caller must hold c.mu.
func (c *MemoryCounter) maybeSweep(now time.Time) {
	if now.Sub(c.lastSweep) < 5*time.Minute {
		return
	}
	c.lastSweep = now

	for key, e := range c.entries {
		if !now.Before(e.resetAt) {
			delete(c.entries, key)
		}
	}
}
