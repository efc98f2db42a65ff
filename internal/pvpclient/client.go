// Package pvpclient is a reconnecting websocket client for the PvP server.
package pvpclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-pvp-server/internal/obslog"
	"github.com/park285/cheese-pvp-server/pkg/pvpdto"
)

var (
	ErrNotConnected = errors.New("not connected")
	ErrNoGame       = errors.New("no active game")
)

type Option func(*Client)

// WithSessionID overrides the generated session token.
func WithSessionID(id string) Option { return func(c *Client) { c.sessionID = id } }

func WithReconnect(maxAttempts int, baseDelay time.Duration) Option {
	return func(c *Client) {
		c.maxReconnectAttempts = maxAttempts
		c.reconnectDelay = baseDelay
	}
}

func WithPingInterval(d time.Duration) Option { return func(c *Client) { c.pingInterval = d } }

// Client keeps one websocket connection open, reconnecting with backoff.
// After a reconnect with a game in progress it sends rejoin on its own.
type Client struct {
	url       string
	sessionID string

	mu         sync.RWMutex
	conn       *websocket.Conn
	connCancel context.CancelFunc
	state      State
	game       *pvpdto.GameState

	msgCbs   []MessageCallback
	stateCbs []StateCallback
	cbM      sync.RWMutex

	maxReconnectAttempts int
	reconnectDelay       time.Duration
	pingInterval         time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(url string, opts ...Option) *Client {
	c := &Client{
		url:                  url,
		sessionID:            uuid.NewString(),
		state:                StateDisconnected,
		maxReconnectAttempts: 5,
		reconnectDelay:       500 * time.Millisecond,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SessionID() string { return c.sessionID }

func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Game returns the last snapshot of the game in progress.
func (c *Client) Game() (pvpdto.GameState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.game == nil {
		return pvpdto.GameState{}, false
	}
	return *c.game, true
}

func (c *Client) OnMessage(cb MessageCallback) {
	c.cbM.Lock()
	c.msgCbs = append(c.msgCbs, cb)
	c.cbM.Unlock()
}

func (c *Client) OnStateChange(cb StateCallback) {
	c.cbM.Lock()
	c.stateCbs = append(c.stateCbs, cb)
	c.cbM.Unlock()
}

// Connect dials once. A failed dial still schedules reconnect attempts.
func (c *Client) Connect(ctx context.Context) error {
	if s := c.State(); s == StateConnected || s == StateConnecting {
		return nil
	}
	c.setState(StateConnecting)
	if err := c.dial(ctx); err != nil {
		c.setState(StateFailed)
		c.scheduleReconnect()
		return err
	}
	return nil
}

func (c *Client) dial(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, c.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		return err
	}
	connCtx, connCancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.conn = conn
	c.connCancel = connCancel
	c.mu.Unlock()
	c.setState(StateConnected)

	c.wg.Add(2)
	go c.listen(connCtx, conn)
	go c.pingLoop(connCtx, conn)
	return nil
}

func (c *Client) listen(ctx context.Context, conn *websocket.Conn) {
	defer c.wg.Done()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if c.isStopping() {
				return
			}
			obslog.L().Info("pvpclient_read_error", zap.Error(err))
			c.dropConn(conn, websocket.StatusGoingAway, "reconnect")
			c.scheduleReconnect()
			return
		}
		f := ParseFrame(data)
		c.track(f)

		c.cbM.RLock()
		callbacks := append([]MessageCallback(nil), c.msgCbs...)
		c.cbM.RUnlock()
		for _, cb := range callbacks {
			if cb != nil {
				cb(f)
			}
		}
	}
}

func (c *Client) track(f Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case f.Game != nil:
		gs := *f.Game
		c.game = &gs
	case f.Over != nil:
		c.game = nil
	}
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	defer c.wg.Done()
	t := time.NewTicker(c.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := conn.Ping(pctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				// the read loop sees the close and reconnects
				c.dropConn(conn, websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

func (c *Client) scheduleReconnect() {
	if c.maxReconnectAttempts <= 0 || c.isStopping() {
		c.setState(StateDisconnected)
		return
	}
	c.setState(StateReconnecting)
	go func() {
		for attempt := 1; attempt <= c.maxReconnectAttempts; attempt++ {
			select {
			case <-c.stopCh:
				return
			case <-time.After(c.backoff(attempt)):
			}
			if err := c.dial(context.Background()); err != nil {
				obslog.L().Debug("pvpclient_reconnect_failed", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			obslog.L().Info("pvpclient_reconnected", zap.Int("attempt", attempt))
			if _, ok := c.Game(); ok {
				if err := c.Rejoin(context.Background()); err != nil {
					obslog.L().Warn("pvpclient_rejoin_error", zap.Error(err))
				}
			}
			return
		}
		c.setState(StateFailed)
	}()
}

func (c *Client) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * c.reconnectDelay
}

// Send writes one inbound record.
func (c *Client) Send(ctx context.Context, in pvpdto.Inbound) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}
	return wsjson.Write(ctx, conn, in)
}

func (c *Client) CreateGame(ctx context.Context, username, timeControl string) error {
	return c.Send(ctx, pvpdto.Inbound{
		Action:      pvpdto.ActionCreateGame,
		Username:    username,
		TimeControl: timeControl,
		SessionID:   c.sessionID,
	})
}

func (c *Client) CancelSearch(ctx context.Context) error {
	return c.Send(ctx, pvpdto.Inbound{Action: pvpdto.ActionCancelSearch})
}

func (c *Client) MakeMove(ctx context.Context, move string) error {
	gs, ok := c.Game()
	if !ok {
		return ErrNoGame
	}
	return c.Send(ctx, pvpdto.Inbound{Action: pvpdto.ActionMakeMove, GameObj: &gs, Move: move})
}

func (c *Client) Resign(ctx context.Context) error {
	gs, ok := c.Game()
	if !ok {
		return ErrNoGame
	}
	return c.Send(ctx, pvpdto.Inbound{Action: pvpdto.ActionResign, GameObj: &gs})
}

func (c *Client) Leave(ctx context.Context) error {
	gs, ok := c.Game()
	if !ok {
		return ErrNoGame
	}
	c.mu.Lock()
	c.game = nil
	c.mu.Unlock()
	return c.Send(ctx, pvpdto.Inbound{Action: pvpdto.ActionLeaveGame, GameID: gs.GameID})
}

func (c *Client) Rejoin(ctx context.Context) error {
	return c.Send(ctx, pvpdto.Inbound{Action: pvpdto.ActionRejoin, SessionID: c.sessionID})
}

// Close stops reconnecting and closes the connection.
func (c *Client) Close(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn != nil {
		c.dropConn(conn, websocket.StatusNormalClosure, "close")
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		c.setState(StateDisconnected)
		return nil
	}
}

// dropConn closes conn if it is still the current connection.
func (c *Client) dropConn(conn *websocket.Conn, code websocket.StatusCode, reason string) {
	c.mu.Lock()
	current := c.conn == conn
	cancel := c.connCancel
	if current {
		c.conn = nil
		c.connCancel = nil
	}
	c.mu.Unlock()
	if !current {
		return
	}
	if cancel != nil {
		cancel()
	}
	_ = conn.Close(code, reason)
	if !c.isStopping() {
		c.setState(StateDisconnected)
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()

	c.cbM.RLock()
	callbacks := append([]StateCallback(nil), c.stateCbs...)
	c.cbM.RUnlock()
	for _, cb := range callbacks {
		if cb != nil {
			cb(s)
		}
	}
}

func (c *Client) isStopping() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}
