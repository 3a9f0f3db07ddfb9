package realtime

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/retry"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/models"
)

const (
	FeedPath = "/realtime"

	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	writeWait  = 10 * time.Second
)

// Feed is a Subscriber backed by one websocket connection to the change
// feed. The connection is opened with the first subscription, re-dialed
// with jittered backoff when it drops, and closed by Close.
type Feed struct {
	url     string
	headers func() http.Header
	dialer  *websocket.Dialer
	backoff retry.Policy
	log     zerolog.Logger

	mu     sync.Mutex
	subs   map[string]map[uint64]func(models.ChangeEvent)
	nextID uint64
	cancel context.CancelFunc
	done   chan struct{}
}

type FeedOption func(*Feed)

func WithFeedLogger(l zerolog.Logger) FeedOption { return func(f *Feed) { f.log = l } }

func WithDialer(d *websocket.Dialer) FeedOption { return func(f *Feed) { f.dialer = d } }

// WithBackoff sets the reconnect delays; MaxRetries is ignored, the feed
// keeps trying until closed.
func WithBackoff(p retry.Policy) FeedOption { return func(f *Feed) { f.backoff = p } }

// NewFeed connects to baseURL's change feed. headers is called on every dial
// so a refreshed access token is picked up.
func NewFeed(baseURL string, headers func() http.Header, opts ...FeedOption) *Feed {
	f := &Feed{
		url:     WebSocketURL(baseURL),
		headers: headers,
		dialer:  websocket.DefaultDialer,
		backoff: retry.DefaultPolicy(),
		log:     zerolog.Nop(),
		subs:    make(map[string]map[uint64]func(models.ChangeEvent)),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// WebSocketURL maps an http(s) API base to the feed's ws(s) URL.
func WebSocketURL(base string) string {
	base = strings.TrimRight(base, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + FeedPath
}

func (f *Feed) Subscribe(ctx context.Context, resourceID string, onChange func(models.ChangeEvent)) func() {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	if f.subs[resourceID] == nil {
		f.subs[resourceID] = make(map[uint64]func(models.ChangeEvent))
	}
	f.subs[resourceID][id] = onChange
	if f.cancel == nil {
		runCtx, cancel := context.WithCancel(context.Background())
		f.cancel, f.done = cancel, make(chan struct{})
		go f.run(runCtx, f.done)
	}
	f.mu.Unlock()

	var once sync.Once
	remove := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs[resourceID], id)
			if len(f.subs[resourceID]) == 0 {
				delete(f.subs, resourceID)
			}
			f.mu.Unlock()
		})
	}
	stop := context.AfterFunc(ctx, remove)
	return func() {
		stop()
		remove()
	}
}

// Close stops the connection loop and waits for it to exit.
func (f *Feed) Close() error {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.cancel, f.done = nil, nil
	f.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}

func (f *Feed) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	attempt := 0
	for {
		connected, err := f.connect(ctx)
		if ctx.Err() != nil {
			return
		}
		if connected {
			attempt = 0
		}
		delay := retry.CalculateBackoff(attempt, f.backoff.BaseDelay, f.backoff.MaxDelay)
		attempt++
		f.log.Warn().Err(err).Dur("retry_in", delay).Msg("change feed disconnected")
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// connect holds one connection until it fails or ctx ends.
func (f *Feed) connect(ctx context.Context) (bool, error) {
	var h http.Header
	if f.headers != nil {
		h = f.headers()
	}
	conn, _, err := f.dialer.DialContext(ctx, f.url, h)
	if err != nil {
		return false, err
	}
	defer conn.Close()
	f.log.Debug().Str("url", f.url).Msg("change feed connected")

	stop := make(chan struct{})
	defer close(stop)
	go f.keepalive(ctx, conn, stop)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var ev models.ChangeEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return true, errors.New("change feed closed by server")
			}
			return true, err
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		f.dispatch(ev)
	}
}

// keepalive pings the server and closes the connection when ctx ends, which
// unblocks the reader.
func (f *Feed) keepalive(ctx context.Context, conn *websocket.Conn, stop <-chan struct{}) {
	t := time.NewTicker(pingPeriod)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			_ = conn.Close()
			return
		case <-t.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

// dispatch delivers ev to subscribers of its resource id and of its
// collection.
func (f *Feed) dispatch(ev models.ChangeEvent) {
	f.mu.Lock()
	var handlers []func(models.ChangeEvent)
	for _, key := range []string{ev.ResourceID, ev.Collection} {
		if key == "" {
			continue
		}
		for _, h := range f.subs[key] {
			handlers = append(handlers, h)
		}
		if ev.ResourceID == ev.Collection {
			break
		}
	}
	f.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}
