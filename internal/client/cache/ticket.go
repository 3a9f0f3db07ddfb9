package cache

import (
	"context"
	"time"
)

// Ticket is a reservation for a fill of one key, taken before the network
// call starts. A fill is dropped when a newer write for the key landed first
// or when an invalidation touched the key while the call was in flight.
type Ticket struct {
	req   Request
	key   string
	seq   uint64
	stale bool
}

// Reserve registers an in-flight read for req. Every ticket must end with
// Fill or Release.
func (c *Cache) Reserve(req Request) *Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &Ticket{req: req, key: req.Key(), seq: c.seq}
	c.inflight[t.seq] = t
	return t
}

// Release abandons a ticket without writing, e.g. after an error or abort.
func (c *Cache) Release(t *Ticket) {
	if t == nil {
		return
	}
	c.mu.Lock()
	delete(c.inflight, t.seq)
	c.mu.Unlock()
}

// Fill writes data for a reserved read and reports whether it was kept.
func (c *Cache) Fill(ctx context.Context, t *Ticket, data []byte, ttl time.Duration) bool {
	c.mu.Lock()
	delete(c.inflight, t.seq)
	if t.stale || c.written[t.key] > t.seq {
		c.mu.Unlock()
		c.metrics.rejected(ctx, t.req.Resource)
		c.log.Debug().Str("key", t.key).Msg("dropping stale cache fill")
		return false
	}
	c.written[t.key] = t.seq
	e := c.putLocked(t.key, t.req, data, ttl)
	c.mu.Unlock()
	c.persist(ctx, t.key, t.req, e)
	return true
}

// staleLocked marks in-flight tickets whose key matches as stale and forgets
// the last-write marks for those keys.
func (c *Cache) staleLocked(match func(string) bool) {
	c.gen++
	for _, t := range c.inflight {
		if match(t.key) {
			t.stale = true
		}
	}
	for k := range c.written {
		if match(k) {
			delete(c.written, k)
		}
	}
}

func (c *Cache) pendingLocked(key string) bool {
	for _, t := range c.inflight {
		if t.key == key {
			return true
		}
	}
	return false
}
