package wsserver

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/cheese-pvp-server/internal/obslog"
	"github.com/park285/cheese-pvp-server/pkg/pvpdto"
)

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub is the registry of live connections by connection id. Send never
// blocks: frames for unknown connections or full buffers are dropped.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	dropped atomic.Int64
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()
	obslog.L().Debug("ws_register", zap.String("conn_id", c.id), zap.Int("connections", n))
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
		close(c.send)
	}
	h.mu.Unlock()
}

// Send queues msg for connID. Strings and pvpdto.Text go out verbatim,
// anything else as JSON.
func (h *Hub) Send(connID string, msg any) {
	data, err := encode(msg)
	if err != nil {
		obslog.L().Error("ws_encode_error", zap.String("conn_id", connID), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		h.dropped.Add(1)
		obslog.L().Warn("ws_send_drop", zap.String("conn_id", connID))
	}
}

// Len returns the number of live connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many frames were discarded on full buffers.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

func encode(msg any) ([]byte, error) {
	switch v := msg.(type) {
	case pvpdto.Text:
		return []byte(v), nil
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}
