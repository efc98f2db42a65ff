// Package wsserver accepts websocket connections and bridges them to the
// session manager.
package wsserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/cheese-pvp-server/internal/msgcat"
	"github.com/park285/cheese-pvp-server/internal/obslog"
	"github.com/park285/cheese-pvp-server/pkg/pvpdto"
)

const writeWait = 10 * time.Second

// Dispatcher receives decoded records and connection closes.
type Dispatcher interface {
	Dispatch(ctx context.Context, connID string, in *pvpdto.Inbound) error
	Closed(connID string) error
}

type Options struct {
	OriginPatterns []string
	ReadLimit      int64
	SendBuffer     int
	PingInterval   time.Duration
}

// Server upgrades requests and runs one read loop and one write pump per
// connection.
type Server struct {
	hub   *Hub
	disp  Dispatcher
	cat   *msgcat.Catalog
	opts  Options
	newID func() string
}

func NewServer(hub *Hub, disp Dispatcher, cat *msgcat.Catalog, opts Options) *Server {
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = 4096
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if cat == nil {
		cat = msgcat.MustDefault()
	}
	return &Server{hub: hub, disp: disp, cat: cat, opts: opts, newID: uuid.NewString}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.opts.OriginPatterns,
	})
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	conn.SetReadLimit(s.opts.ReadLimit)

	c := &client{id: s.newID(), conn: conn, send: make(chan []byte, s.opts.SendBuffer)}
	s.hub.register(c)
	obslog.L().Info("ws_accept", zap.String("conn_id", c.id), zap.String("remote", r.RemoteAddr))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s.hub.Send(c.id, pvpdto.Text(s.cat.Text(msgcat.KeyConnected)))
	go s.writePump(ctx, c)

	status, reason := s.readLoop(ctx, c)

	s.hub.unregister(c.id)
	if err := s.disp.Closed(c.id); err != nil {
		obslog.L().Debug("ws_closed_undelivered", zap.String("conn_id", c.id), zap.Error(err))
	}
	_ = conn.Close(status, reason)
	obslog.L().Info("ws_close", zap.String("conn_id", c.id))
}

func (s *Server) readLoop(ctx context.Context, c *client) (websocket.StatusCode, string) {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			if st := websocket.CloseStatus(err); st == -1 && !errors.Is(err, context.Canceled) {
				obslog.L().Debug("ws_read_error", zap.String("conn_id", c.id), zap.Error(err))
			}
			return websocket.StatusNormalClosure, ""
		}
		if typ != websocket.MessageText {
			continue
		}
		in, err := pvpdto.Decode(data)
		if err != nil {
			obslog.L().Debug("ws_drop_frame", zap.String("conn_id", c.id), zap.Error(err))
			continue
		}
		if err := s.disp.Dispatch(ctx, c.id, in); err != nil {
			return websocket.StatusGoingAway, "server shutting down"
		}
	}
}

func (s *Server) writePump(ctx context.Context, c *client) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				obslog.L().Debug("ws_write_error", zap.String("conn_id", c.id), zap.Error(err))
				_ = c.conn.Close(websocket.StatusGoingAway, "write failure")
				return
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				obslog.L().Debug("ws_ping_error", zap.String("conn_id", c.id), zap.Error(err))
				_ = c.conn.Close(websocket.StatusGoingAway, "ping failure")
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
