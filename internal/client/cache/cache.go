// Package cache is the client's response cache: a fast in-process map in
// front of an optional persistent Store, with per-resource TTLs, substring
// invalidation and a rule keeping sensitive keys out of the persistent layer.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Request identifies one cacheable read.
type Request struct {
	Resource Resource
	Endpoint string
	Params   Params
	// Detail marks single-record reads, which use the resource's DetailTTL.
	Detail bool
}

func (r Request) Key() string { return Key(r.Endpoint, r.Params) }

// Cache is safe for concurrent use. Writes to the same key are
// last-write-wins unless they go through Reserve/Fill.
type Cache struct {
	mu       sync.Mutex
	mem      map[string]Entry
	store    Store
	policies Policies
	now      func() time.Time
	log      zerolog.Logger
	metrics  *Metrics

	seq      uint64
	inflight map[uint64]*Ticket
	written  map[string]uint64
	// gen counts invalidations; a persistent read started under an older
	// gen is not promoted.
	gen uint64
}

type Option func(*Cache)

// WithStore sets the persistent layer. Without it the cache is memory-only.
func WithStore(s Store) Option { return func(c *Cache) { c.store = s } }

func WithPolicies(p Policies) Option { return func(c *Cache) { c.policies = p } }

func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }

func WithLogger(l zerolog.Logger) Option { return func(c *Cache) { c.log = l } }

func WithMetrics(m *Metrics) Option { return func(c *Cache) { c.metrics = m } }

func New(opts ...Option) *Cache {
	c := &Cache{
		mem:      make(map[string]Entry),
		policies: DefaultPolicies(),
		now:      time.Now,
		log:      zerolog.Nop(),
		inflight: make(map[uint64]*Ticket),
		written:  make(map[string]uint64),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the cached data for req. The memory layer is consulted first;
// on a miss the persistent layer is tried for non-sensitive keys and a valid
// hit is promoted back into memory unless the key was written or invalidated
// during the read. Expired entries are removed on the way.
func (c *Cache) Get(ctx context.Context, req Request) ([]byte, bool) {
	key := req.Key()
	now := c.now()

	c.mu.Lock()
	e, ok := c.mem[key]
	if ok && !e.expired(now) {
		c.mu.Unlock()
		c.metrics.hit(ctx, "memory", req.Resource)
		return e.Data, true
	}
	if ok {
		delete(c.mem, key)
	}
	gen := c.gen
	c.mu.Unlock()

	if c.store == nil || c.policies.Sensitive(req.Resource, key) {
		c.metrics.miss(ctx, req.Resource)
		return nil, false
	}

	pe, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.storeFault(ctx, "get", key, err)
		c.metrics.miss(ctx, req.Resource)
		return nil, false
	}
	if !ok {
		c.metrics.miss(ctx, req.Resource)
		return nil, false
	}
	if pe.expired(now) {
		if err := c.store.Delete(ctx, key); err != nil {
			c.storeFault(ctx, "delete", key, err)
		}
		c.metrics.miss(ctx, req.Resource)
		return nil, false
	}

	c.mu.Lock()
	if _, raced := c.mem[key]; !raced && c.gen == gen {
		c.mem[key] = pe
	}
	c.mu.Unlock()
	c.metrics.hit(ctx, "persistent", req.Resource)
	return pe.Data, true
}

// Set stores data under req. A zero ttl uses the resource policy. The
// persistent layer is skipped for sensitive keys.
func (c *Cache) Set(ctx context.Context, req Request, data []byte, ttl time.Duration) {
	key := req.Key()
	c.mu.Lock()
	c.seq++
	c.written[key] = c.seq
	e := c.putLocked(key, req, data, ttl)
	c.mu.Unlock()
	c.persist(ctx, key, req, e)
}

func (c *Cache) putLocked(key string, req Request, data []byte, ttl time.Duration) Entry {
	if ttl <= 0 {
		ttl = c.policies.TTL(req.Resource, req.Detail)
	}
	e := Entry{
		Data:      append([]byte(nil), data...),
		ExpiresAt: c.now().Add(ttl),
		Resource:  req.Resource,
	}
	c.mem[key] = e
	return e
}

func (c *Cache) persist(ctx context.Context, key string, req Request, e Entry) {
	if c.store == nil || c.policies.Sensitive(req.Resource, key) {
		return
	}
	if err := c.store.Put(ctx, key, e); err != nil {
		c.storeFault(ctx, "put", key, err)
	}
}

// Invalidate removes req's key from both layers.
func (c *Cache) Invalidate(ctx context.Context, req Request) {
	key := req.Key()
	c.mu.Lock()
	delete(c.mem, key)
	c.staleLocked(func(k string) bool { return k == key })
	c.mu.Unlock()

	if c.store == nil {
		return
	}
	if err := c.store.Delete(ctx, key); err != nil {
		c.storeFault(ctx, "delete", key, err)
	}
}

// InvalidatePattern removes every key containing substr from both layers and
// returns how many distinct keys were dropped.
func (c *Cache) InvalidatePattern(ctx context.Context, substr string) int {
	match := func(k string) bool { return strings.Contains(k, substr) }

	c.mu.Lock()
	dropped := make(map[string]struct{})
	for k := range c.mem {
		if match(k) {
			delete(c.mem, k)
			dropped[k] = struct{}{}
		}
	}
	c.staleLocked(match)
	c.mu.Unlock()

	if c.store == nil {
		return len(dropped)
	}
	keys, err := c.store.Keys(ctx)
	if err != nil {
		c.storeFault(ctx, "keys", substr, err)
		return len(dropped)
	}
	var doomed []string
	for _, k := range keys {
		if match(k) {
			doomed = append(doomed, k)
			dropped[k] = struct{}{}
		}
	}
	if len(doomed) > 0 {
		if err := c.store.Delete(ctx, doomed...); err != nil {
			c.storeFault(ctx, "delete", substr, err)
		}
	}
	return len(dropped)
}

// Clear drops every entry from both layers.
func (c *Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	c.mem = make(map[string]Entry)
	c.staleLocked(func(string) bool { return true })
	c.mu.Unlock()

	if c.store == nil {
		return
	}
	if err := c.store.Clear(ctx); err != nil {
		c.storeFault(ctx, "clear", "*", err)
	}
}

// Cleanup sweeps expired entries out of both layers. It is not needed for
// correctness; it bounds growth of the persistent layer.
func (c *Cache) Cleanup(ctx context.Context) (removed int) {
	now := c.now()
	c.mu.Lock()
	for k, e := range c.mem {
		if e.expired(now) {
			delete(c.mem, k)
			removed++
		}
	}
	for k := range c.written {
		if _, ok := c.mem[k]; !ok && !c.pendingLocked(k) {
			delete(c.written, k)
		}
	}
	c.mu.Unlock()

	if c.store == nil {
		return removed
	}
	if sw, ok := c.store.(Sweeper); ok {
		n, err := sw.DeleteExpired(ctx, now)
		if err != nil {
			c.storeFault(ctx, "sweep", "*", err)
		}
		return removed + n
	}
	keys, err := c.store.Keys(ctx)
	if err != nil {
		c.storeFault(ctx, "keys", "*", err)
		return removed
	}
	var doomed []string
	for _, k := range keys {
		e, ok, err := c.store.Get(ctx, k)
		if err != nil || !ok || e.expired(now) {
			doomed = append(doomed, k)
		}
	}
	if len(doomed) > 0 {
		if err := c.store.Delete(ctx, doomed...); err != nil {
			c.storeFault(ctx, "delete", "*", err)
			return removed
		}
	}
	return removed + len(doomed)
}

// Run calls Cleanup every interval until ctx ends.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := c.Cleanup(ctx); n > 0 {
				c.log.Debug().Int("removed", n).Msg("cache cleanup")
			}
		}
	}
}

func (c *Cache) storeFault(ctx context.Context, op, key string, err error) {
	c.metrics.storeError(ctx, op)
	c.log.Warn().Err(err).Str("op", op).Str("key", key).Msg("persistent cache layer fault, continuing from memory")
}
