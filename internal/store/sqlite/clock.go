package sqlite

import (
	"sync"
	"time"

	"github.com/stockroomapp/stockroom-server/internal/domain"
)

// stampClock issues modification stamps for every write session of a store.
//
// Stamps are unique and strictly increasing across the store, so no two rows
// written here share a stamp. The clock also remembers the last stamp issued
// before each open write session, which bounds the stamps that session may
// still commit.
type stampClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
	open map[*session]time.Time
}

func newStampClock(now func() time.Time) *stampClock {
	return &stampClock{now: now, open: make(map[*session]time.Time)}
}

// setSource replaces the time source and forgets previously issued stamps.
func (c *stampClock) setSource(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
	c.last = time.Time{}
}

// stamp returns the next modification stamp.
func (c *stampClock) stamp() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(domain.TimestampPrecision)
	if !t.After(c.last) {
		t = c.last.Add(domain.TimestampPrecision)
	}
	c.last = t
	return t
}

// track registers a write session. Every stamp it takes is after the floor
// recorded here.
func (c *stampClock) track(s *session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	floor := c.now().UTC().Truncate(domain.TimestampPrecision).Add(-domain.TimestampPrecision)
	if c.last.After(floor) {
		floor = c.last
	}
	c.open[s] = floor
}

// untrack is called once the session's transaction has ended.
func (c *stampClock) untrack(s *session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.open, s)
}

// horizon returns a stamp that every write not yet committed, now or later,
// is strictly after. Rows at or before it that a reader cannot see yet do
// not exist.
func (c *stampClock) horizon() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now().UTC().Truncate(domain.TimestampPrecision)
	if now.After(c.last) {
		c.last = now
	}
	h := c.last
	for _, floor := range c.open {
		if floor.Before(h) {
			h = floor
		}
	}
	return h
}
