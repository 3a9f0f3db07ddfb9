package cache

import (
	"bytes"
	"context"
	"crypto/rand"
	"path/filepath"
	"strings"
	"testing"
	"time"

	bolt "github.com/boltdb/bolt"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptohelper "github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/crypto"
)

func newBolt(t *testing.T) *BoltStore {
	t.Helper()
	s, err := OpenBolt(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBoltStore_CRUD(t *testing.T) {
	s := newBolt(t)
	exp := time.Now().Add(time.Minute).UTC().Truncate(time.Second)

	_, ok, err := s.Get(ctx, "/bookings")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "/bookings", Entry{Data: []byte(`[1]`), ExpiresAt: exp, Resource: ResourceBookings}))
	require.NoError(t, s.Put(ctx, "/bookings/7", Entry{Data: []byte(`{}`), ExpiresAt: exp}))

	e, ok, err := s.Get(ctx, "/bookings")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[1]`, string(e.Data))
	assert.True(t, exp.Equal(e.ExpiresAt))
	assert.Equal(t, ResourceBookings, e.Resource)

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/bookings", "/bookings/7"}, keys)

	require.NoError(t, s.Delete(ctx, "/bookings", "/missing"))
	require.NoError(t, s.Clear(ctx))
	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestBoltStore_DeleteExpired(t *testing.T) {
	s := newBolt(t)
	now := time.Now()
	require.NoError(t, s.Put(ctx, "old", Entry{Data: []byte(`1`), ExpiresAt: now.Add(-time.Second)}))
	require.NoError(t, s.Put(ctx, "new", Entry{Data: []byte(`2`), ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(boltBucket)).Put([]byte("garbage"), []byte("{"))
	}))

	n, err := s.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	keys, _ := s.Keys(ctx)
	assert.Equal(t, []string{"new"}, keys)
}

func TestCache_WithBoltSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	req := Request{Resource: ResourceBookings, Endpoint: "/bookings", Params: Params{"page": 1}}

	s1, err := OpenBolt(path)
	require.NoError(t, err)
	New(WithStore(s1)).Set(ctx, req, []byte(`["b1"]`), 0)
	require.NoError(t, s1.Close())

	s2, err := OpenBolt(path)
	require.NoError(t, err)
	defer s2.Close()
	got, ok := New(WithStore(s2)).Get(ctx, req)
	require.True(t, ok)
	assert.Equal(t, `["b1"]`, string(got))
}

func TestSealedStore(t *testing.T) {
	key := make([]byte, cryptohelper.KeySize)
	_, _ = rand.Read(key)
	sealer, err := cryptohelper.NewSealer(key)
	require.NoError(t, err)

	inner := newBolt(t)
	s := NewSealedStore(inner, sealer)
	plain := []byte(`{"customer":"Aisha","phone":"+971500000000"}`)
	exp := time.Now().Add(time.Minute)
	require.NoError(t, s.Put(ctx, "/bookings/9", Entry{Data: plain, ExpiresAt: exp}))

	raw, ok, err := inner.Get(ctx, "/bookings/9")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, bytes.Contains(raw.Data, []byte("Aisha")))

	e, ok, err := s.Get(ctx, "/bookings/9")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, plain, e.Data)

	// A payload copied under another key does not open.
	require.NoError(t, inner.Put(ctx, "/bookings/10", raw))
	_, _, err = s.Get(ctx, "/bookings/10")
	assert.Error(t, err)

	n, err := s.DeleteExpired(ctx, exp.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

// fakeRedis implements RedisClient over a map.
type fakeRedis struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Scan(_ context.Context, _ uint64, match string, _ int64) *redis.ScanCmd {
	prefix := strings.TrimSuffix(match, "*")
	var keys []string
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return redis.NewScanCmdResult(keys, 0, nil)
}

func (f *fakeRedis) Ping(context.Context) *redis.StatusCmd { return redis.NewStatusResult("PONG", nil) }
func (f *fakeRedis) Close() error                          { return nil }

func TestRedisStore(t *testing.T) {
	fr := newFakeRedis()
	fr.data["other:key"] = "untouched"
	s := NewRedisStore(fr, "")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(ctx, "/inspections", Entry{Data: []byte(`[]`), ExpiresAt: now.Add(3 * time.Minute)}))
	assert.Equal(t, 3*time.Minute, fr.ttls["garage:cache:/inspections"])

	e, ok, err := s.Get(ctx, "/inspections")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[]`, string(e.Data))

	_, ok, err = s.Get(ctx, "/missing")
	require.NoError(t, err)
	assert.False(t, ok)

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/inspections"}, keys)

	require.NoError(t, s.Put(ctx, "/gone", Entry{Data: []byte(`1`), ExpiresAt: now.Add(-time.Second)}))
	_, ok, _ = s.Get(ctx, "/gone")
	assert.False(t, ok)

	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, map[string]string{"other:key": "untouched"}, fr.data)
}

func TestCache_WithRedisInvalidatePattern(t *testing.T) {
	s := NewRedisStore(newFakeRedis(), "t:")
	c := New(WithStore(s))
	c.Set(ctx, Request{Endpoint: "/disputes", Params: Params{"status": "open"}}, []byte(`[]`), 0)
	c.Set(ctx, Request{Endpoint: "/disputes/3"}, []byte(`{}`), 0)
	assert.Equal(t, 2, New(WithStore(s)).InvalidatePattern(ctx, "disputes"))
	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}
