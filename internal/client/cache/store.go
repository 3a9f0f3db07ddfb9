package cache

import (
	"context"
	"time"
)

// Entry is one cached response. Data is the JSON encoding of the view model;
// readers decode their own copy, so entries are never shared mutably.
type Entry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
	Resource  Resource  `json:"resource"`
}

func (e Entry) expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Store is the persistent layer behind the in-process map. Implementations
// report faults as errors; the Cache logs them and carries on from memory.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, e Entry) error
	Delete(ctx context.Context, keys ...string) error
	Keys(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}

// Sweeper is implemented by stores that can drop expired entries without the
// Cache reading every key back.
type Sweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
