package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

// mapStore is an in-memory Store standing in for the persistent layer.
type mapStore struct {
	mu   sync.Mutex
	data map[string]Entry
	fail error
}

func newMapStore() *mapStore { return &mapStore{data: map[string]Entry{}} }

func (s *mapStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return Entry{}, false, s.fail
	}
	e, ok := s.data[key]
	return e, ok, nil
}

func (s *mapStore) Put(_ context.Context, key string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.data[key] = e
	return nil
}

func (s *mapStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *mapStore) Keys(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	var out []string
	for k := range s.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

func (s *mapStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = map[string]Entry{}
	return nil
}

func (s *mapStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

func newTestCache(t *testing.T) (*Cache, *mapStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := newMapStore()
	return New(WithStore(store), WithClock(clock.Now)), store, clock
}

var ctx = context.Background()

func TestKey_Canonical(t *testing.T) {
	p1 := Params{"status": "pending", "page": 2, "limit": 20}
	p2 := Params{"limit": 20, "page": 2, "status": "pending"}
	assert.Equal(t, Key("/bookings", p1), Key("/bookings", p2))
	assert.Equal(t, "/bookings?limit=20&page=2&status=pending", Key("/bookings", p1))
	assert.Equal(t, "/bookings", Key("/bookings", nil))
	assert.Equal(t, "/bookings", Key("/bookings", Params{"search": "", "status": nil}))
	assert.Equal(t,
		Key("/disputes", Params{"ids": []string{"b", "a"}}),
		Key("/disputes", Params{"ids": []string{"a", "b"}}))
}

func TestGet_TTLExpiry(t *testing.T) {
	c, _, clock := newTestCache(t)
	req := Request{Endpoint: "/bookings"}
	c.Set(ctx, req, []byte(`[1]`), time.Second)

	got, ok := c.Get(ctx, req)
	require.True(t, ok)
	assert.JSONEq(t, `[1]`, string(got))

	clock.Advance(1100 * time.Millisecond)
	_, ok = c.Get(ctx, req)
	assert.False(t, ok)
}

func TestSet_ResourceTTL(t *testing.T) {
	c, _, clock := newTestCache(t)
	list := Request{Resource: ResourceChats, Endpoint: "/chat/conversations"}
	detail := Request{Resource: ResourceBookings, Endpoint: "/bookings/42", Detail: true}
	c.Set(ctx, list, []byte(`[]`), 0)
	c.Set(ctx, detail, []byte(`{}`), 0)

	clock.Advance(31 * time.Second)
	_, ok := c.Get(ctx, list)
	assert.False(t, ok, "chats live 30s")
	_, ok = c.Get(ctx, detail)
	assert.True(t, ok, "details live 600s")

	clock.Advance(570 * time.Second)
	_, ok = c.Get(ctx, detail)
	assert.False(t, ok)
}

func TestSet_SensitiveStaysInMemory(t *testing.T) {
	c, store, _ := newTestCache(t)

	untagged := Request{Endpoint: "auth/token"}
	c.Set(ctx, untagged, []byte(`"secret"`), 0)
	got, ok := c.Get(ctx, untagged)
	require.True(t, ok)
	assert.Equal(t, `"secret"`, string(got))
	assert.False(t, store.has("auth/token"))

	tagged := Request{Resource: ResourceAuth, Endpoint: "/me"}
	c.Set(ctx, tagged, []byte(`{}`), 0)
	assert.False(t, store.has("/me"))

	plain := Request{Resource: ResourceBookings, Endpoint: "/bookings"}
	c.Set(ctx, plain, []byte(`[]`), 0)
	assert.True(t, store.has("/bookings"))
}

func TestInvalidatePattern(t *testing.T) {
	c, store, _ := newTestCache(t)
	list := Request{Resource: ResourceBookings, Endpoint: "/bookings"}
	detail := Request{Resource: ResourceBookings, Endpoint: "/bookings/42", Detail: true}
	other := Request{Resource: ResourceInspections, Endpoint: "/inspections"}
	c.Set(ctx, list, []byte(`"a"`), 0)
	c.Set(ctx, detail, []byte(`"b"`), 0)
	c.Set(ctx, other, []byte(`"c"`), 0)

	assert.Equal(t, 2, c.InvalidatePattern(ctx, "bookings"))

	_, ok := c.Get(ctx, list)
	assert.False(t, ok)
	_, ok = c.Get(ctx, detail)
	assert.False(t, ok)
	assert.False(t, store.has("/bookings"))
	assert.False(t, store.has("/bookings/42"))
	_, ok = c.Get(ctx, other)
	assert.True(t, ok)
}

func TestInvalidate_SingleKey(t *testing.T) {
	c, store, _ := newTestCache(t)
	a := Request{Endpoint: "/bookings/1"}
	b := Request{Endpoint: "/bookings/2"}
	c.Set(ctx, a, []byte(`1`), 0)
	c.Set(ctx, b, []byte(`2`), 0)

	c.Invalidate(ctx, a)
	_, ok := c.Get(ctx, a)
	assert.False(t, ok)
	assert.False(t, store.has("/bookings/1"))
	_, ok = c.Get(ctx, b)
	assert.True(t, ok)
}

func TestGet_PromotesFromPersistentLayer(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	store := newMapStore()
	req := Request{Resource: ResourceProfile, Endpoint: "/profile"}

	first := New(WithStore(store), WithClock(clock.Now))
	first.Set(ctx, req, []byte(`{"name":"Garage"}`), 0)

	// A new process starts with an empty memory layer.
	second := New(WithStore(store), WithClock(clock.Now))
	got, ok := second.Get(ctx, req)
	require.True(t, ok)
	assert.JSONEq(t, `{"name":"Garage"}`, string(got))

	// Served from memory now, even if the store breaks.
	store.fail = errors.New("disk gone")
	got, ok = second.Get(ctx, req)
	require.True(t, ok)
	assert.JSONEq(t, `{"name":"Garage"}`, string(got))
}

// hookStore runs onGet after each persistent read returns.
type hookStore struct {
	*mapStore
	onGet func()
}

func (s *hookStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	e, ok, err := s.mapStore.Get(ctx, key)
	if s.onGet != nil {
		hook := s.onGet
		s.onGet = nil
		hook()
	}
	return e, ok, err
}

func TestGet_SkipsPromotionWhenInvalidatedDuringRead(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	store := &hookStore{mapStore: newMapStore()}
	c := New(WithStore(store), WithClock(clock.Now))
	req := Request{Resource: ResourceBookings, Endpoint: "/bookings"}
	store.data[req.Key()] = Entry{Data: []byte(`["old"]`), ExpiresAt: clock.Now().Add(time.Minute)}

	store.onGet = func() { c.InvalidatePattern(ctx, "bookings") }
	_, ok := c.Get(ctx, req)
	require.True(t, ok)

	_, ok = c.Get(ctx, req)
	assert.False(t, ok)
}

func TestGet_KeepsWriteThatLandedDuringRead(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	store := &hookStore{mapStore: newMapStore()}
	c := New(WithStore(store), WithClock(clock.Now))
	req := Request{Resource: ResourceBookings, Endpoint: "/bookings"}
	store.data[req.Key()] = Entry{Data: []byte(`["old"]`), ExpiresAt: clock.Now().Add(time.Minute)}

	store.onGet = func() { c.Set(ctx, req, []byte(`["new"]`), 0) }
	_, ok := c.Get(ctx, req)
	require.True(t, ok)

	got, ok := c.Get(ctx, req)
	require.True(t, ok)
	assert.Equal(t, `["new"]`, string(got))
}

func TestGet_RemovesExpiredPersistentEntry(t *testing.T) {
	c, store, clock := newTestCache(t)
	store.data["/bookings"] = Entry{Data: []byte(`[]`), ExpiresAt: clock.Now().Add(-time.Second)}

	_, ok := c.Get(ctx, Request{Endpoint: "/bookings"})
	assert.False(t, ok)
	assert.False(t, store.has("/bookings"))
}

func TestStoreFaultsNeverReachCaller(t *testing.T) {
	c, store, _ := newTestCache(t)
	store.fail = errors.New("quota exceeded")
	req := Request{Endpoint: "/notifications"}

	c.Set(ctx, req, []byte(`[]`), 0)
	got, ok := c.Get(ctx, req)
	require.True(t, ok)
	assert.Equal(t, `[]`, string(got))

	c.Invalidate(ctx, req)
	c.InvalidatePattern(ctx, "notifications")
	c.Clear(ctx)
	c.Cleanup(ctx)
	_, ok = c.Get(ctx, req)
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	c, store, _ := newTestCache(t)
	c.Set(ctx, Request{Endpoint: "/bookings"}, []byte(`1`), 0)
	c.Set(ctx, Request{Endpoint: "/profile"}, []byte(`2`), 0)
	c.Clear(ctx)
	_, ok := c.Get(ctx, Request{Endpoint: "/bookings"})
	assert.False(t, ok)
	keys, _ := store.Keys(ctx)
	assert.Empty(t, keys)
}

func TestCleanup_SweepsBothLayers(t *testing.T) {
	c, store, clock := newTestCache(t)
	c.Set(ctx, Request{Endpoint: "/a"}, []byte(`1`), time.Second)
	c.Set(ctx, Request{Endpoint: "/b"}, []byte(`2`), time.Hour)
	clock.Advance(2 * time.Second)

	removed := c.Cleanup(ctx)
	assert.Equal(t, 2, removed, "one memory entry and one persistent entry")
	assert.False(t, store.has("/a"))
	assert.True(t, store.has("/b"))
}

func TestRun_StopsWithContext(t *testing.T) {
	c, _, _ := newTestCache(t)
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		c.Run(runCtx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestFill_DropsOlderResponse(t *testing.T) {
	c, _, _ := newTestCache(t)
	req := Request{Endpoint: "/bookings"}

	slow := c.Reserve(req)
	fast := c.Reserve(req)
	assert.True(t, c.Fill(ctx, fast, []byte(`"new"`), 0))
	assert.False(t, c.Fill(ctx, slow, []byte(`"old"`), 0))

	got, _ := c.Get(ctx, req)
	assert.Equal(t, `"new"`, string(got))
}

func TestFill_DropsResponseRacingInvalidation(t *testing.T) {
	c, _, _ := newTestCache(t)
	req := Request{Endpoint: "/bookings"}

	tk := c.Reserve(req)
	c.InvalidatePattern(ctx, "bookings")
	assert.False(t, c.Fill(ctx, tk, []byte(`"pre-mutation"`), 0))
	_, ok := c.Get(ctx, req)
	assert.False(t, ok)

	next := c.Reserve(req)
	assert.True(t, c.Fill(ctx, next, []byte(`"post-mutation"`), 0))
}

func TestRelease(t *testing.T) {
	c, _, _ := newTestCache(t)
	tk := c.Reserve(Request{Endpoint: "/x"})
	c.Release(tk)
	c.Release(nil)
	assert.Empty(t, c.inflight)
}

func TestLoadPolicies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.TrimSpace(`
resources:
  bookings:
    ttl: 45s
  vehicles:
    ttl: 2m
    sensitive: true
`)), 0600))

	pols, err := LoadPolicies(path)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, pols.TTL(ResourceBookings, false))
	assert.Equal(t, DefaultDetailTTL, pols.TTL(ResourceBookings, true))
	assert.Equal(t, 2*time.Minute, pols.TTL("vehicles", false))
	assert.True(t, pols.Sensitive("vehicles", "/vehicles"))
	assert.Equal(t, 30*time.Second, pols.TTL(ResourceMessages, false))
	assert.Equal(t, DefaultTTL, pols.TTL("unknown", false))

	_, err = LoadPolicies(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
