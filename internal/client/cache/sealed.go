package cache

import (
	"context"
	"time"

	cryptohelper "github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/crypto"
)

// SealedStore encrypts entry payloads before they reach the wrapped store.
// Expiry and resource tag stay in clear so sweeping needs no key. Each payload
// is bound to its cache key.
type SealedStore struct {
	inner  Store
	sealer *cryptohelper.Sealer
}

func NewSealedStore(inner Store, sealer *cryptohelper.Sealer) *SealedStore {
	return &SealedStore{inner: inner, sealer: sealer}
}

func (s *SealedStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	e, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return e, ok, err
	}
	data, err := s.sealer.Open(e.Data, []byte(key))
	if err != nil {
		return Entry{}, false, err
	}
	e.Data = data
	return e, true, nil
}

func (s *SealedStore) Put(ctx context.Context, key string, e Entry) error {
	sealed, err := s.sealer.Seal(e.Data, []byte(key))
	if err != nil {
		return err
	}
	e.Data = sealed
	return s.inner.Put(ctx, key, e)
}

func (s *SealedStore) Delete(ctx context.Context, keys ...string) error {
	return s.inner.Delete(ctx, keys...)
}

func (s *SealedStore) Keys(ctx context.Context) ([]string, error) {
	return s.inner.Keys(ctx)
}

func (s *SealedStore) Clear(ctx context.Context) error {
	return s.inner.Clear(ctx)
}

func (s *SealedStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	if sw, ok := s.inner.(Sweeper); ok {
		return sw.DeleteExpired(ctx, now)
	}
	keys, err := s.inner.Keys(ctx)
	if err != nil {
		return 0, err
	}
	var doomed []string
	for _, k := range keys {
		if e, ok, err := s.inner.Get(ctx, k); err != nil || !ok || e.expired(now) {
			doomed = append(doomed, k)
		}
	}
	if len(doomed) == 0 {
		return 0, nil
	}
	return len(doomed), s.inner.Delete(ctx, doomed...)
}
