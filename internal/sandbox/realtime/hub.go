// Package realtime fans change events out to websocket subscribers.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

type conn struct {
	id     string
	userID string
	ws     *websocket.Conn
	send   chan []byte
}

// Hub keeps the open change feed connections per user.
type Hub struct {
	upgrader websocket.Upgrader
	log      zerolog.Logger

	mu    sync.RWMutex
	conns map[string]map[string]*conn
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log:   log,
		conns: map[string]map[string]*conn{},
	}
}

// Publish queues ev for every connection of ownerID. A connection whose
// buffer is full misses the event.
func (h *Hub) Publish(ownerID string, ev models.ChangeEvent) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.log.Error().Err(err).Msg("encode change event")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.conns[ownerID] {
		select {
		case c.send <- msg:
		default:
			h.log.Warn().Str("conn", c.id).Str("collection", ev.Collection).Msg("subscriber too slow, event dropped")
		}
	}
}

// Connections reports how many feeds userID has open.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

// Serve upgrades the request and streams events for userID until either
// side closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	c := &conn{id: uuid.NewString(), userID: userID, ws: ws, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	if h.conns[userID] == nil {
		h.conns[userID] = map[string]*conn{}
	}
	h.conns[userID][c.id] = c
	total := len(h.conns[userID])
	h.mu.Unlock()
	h.log.Info().Str("conn", c.id).Str("user", userID).Int("open", total).Msg("change feed connected")

	go h.write(c)
	h.read(c)
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c.userID][c.id]; !ok {
		return
	}
	delete(h.conns[c.userID], c.id)
	if len(h.conns[c.userID]) == 0 {
		delete(h.conns, c.userID)
	}
	close(c.send)
}

// read discards client frames; it exists to process pings and notice the
// close.
func (h *Hub) read(c *conn) {
	defer func() {
		h.remove(c)
		_ = c.ws.Close()
		h.log.Info().Str("conn", c.id).Msg("change feed disconnected")
	}()
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	c.ws.SetPingHandler(func(data string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return c.ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug().Err(err).Str("conn", c.id).Msg("websocket read")
			}
			return
		}
	}
}

func (h *Hub) write(c *conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.Debug().Err(err).Str("conn", c.id).Msg("websocket write")
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
