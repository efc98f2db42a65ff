// Package session owns matchmaking and every live match. All state is
// mutated from the single goroutine running Manager.Run.
package session

import (
	"errors"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"

	"github.com/park285/cheese-pvp-server/internal/identity"
	"github.com/park285/cheese-pvp-server/internal/match"
	"github.com/park285/cheese-pvp-server/internal/matchmaking"
	"github.com/park285/cheese-pvp-server/internal/msgcat"
	"github.com/park285/cheese-pvp-server/internal/obslog"
	"github.com/park285/cheese-pvp-server/internal/rules"
	"github.com/park285/cheese-pvp-server/pkg/pvpdto"
)

// ErrStopped is returned by Dispatch and Closed after Run has exited.
var ErrStopped = errors.New("session manager stopped")

// Recorder receives every match removed from the manager.
type Recorder interface {
	Record(s match.Summary)
}

type Option func(*Manager)

func WithRecorder(r Recorder) Option { return func(m *Manager) { m.recorder = r } }

func WithCatalog(c *msgcat.Catalog) Option { return func(m *Manager) { m.cat = c } }

func WithCoin(c match.Coin) Option { return func(m *Manager) { m.coin = c } }

func WithIDGenerator(f func() string) Option { return func(m *Manager) { m.newID = f } }

func WithClock(f func() time.Time) Option { return func(m *Manager) { m.now = f } }

// Manager routes inbound requests to the queue and to live matches.
type Manager struct {
	engine   rules.Engine
	out      match.Outbox
	cat      *msgcat.Catalog
	recorder Recorder
	coin     match.Coin
	newID    func() string
	now      func() time.Time

	queue    *matchmaking.Queue
	matches  map[string]*match.Match // match id → match
	byPlayer map[string]string       // identity → match id
	byConn   map[string]string       // connection id → match id

	events chan event
	done   chan struct{}
}

func NewManager(engine rules.Engine, out match.Outbox, opts ...Option) *Manager {
	m := &Manager{
		engine:   engine,
		out:      out,
		coin:     match.CryptoCoin,
		newID:    newMatchID,
		now:      time.Now,
		queue:    matchmaking.NewQueue(),
		matches:  make(map[string]*match.Match),
		byPlayer: make(map[string]string),
		byConn:   make(map[string]string),
		events:   make(chan event, 64),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.cat == nil {
		m.cat = msgcat.MustDefault()
	}
	return m
}

func newMatchID() string {
	id, err := gonanoid.New(12)
	if err != nil {
		return "pvp-" + time.Now().Format("20060102150405.000000")
	}
	return "pvp-" + id
}

// Handle routes one decoded inbound record from connID.
func (m *Manager) Handle(connID string, in *pvpdto.Inbound) {
	if in == nil {
		return
	}
	switch in.Action {
	case pvpdto.ActionCreateGame:
		m.FindOpponent(connID, in.Username, in.SessionID, in.TimeControl)
	case pvpdto.ActionCancelSearch:
		m.CancelSearch(connID)
	case pvpdto.ActionMakeMove:
		if in.GameObj != nil {
			m.MakeMove(connID, in.GameObj.GameID, rules.Color(in.GameObj.Color), in.Move)
		}
	case pvpdto.ActionResign:
		if in.GameObj != nil {
			m.Resign(connID, in.GameObj.GameID, rules.Color(in.GameObj.Color))
		}
	case pvpdto.ActionLeaveGame:
		m.Leave(connID, in.GameID)
	case pvpdto.ActionRejoin:
		m.Rejoin(connID, in.SessionID)
	default:
		obslog.L().Debug("session_unknown_action", zap.String("conn_id", connID), zap.String("action", in.Action))
	}
}

// FindOpponent validates name, queues it and starts a match for every pair
// the queue completes.
func (m *Manager) FindOpponent(connID, name, sessionID, timeControl string) {
	ident, err := identity.Validate(name)
	if err != nil {
		obslog.L().Info("session_invalid_identity", zap.String("conn_id", connID), zap.Error(err))
		m.sendText(connID, m.cat.TextWith(msgcat.KeyInvalidIdentity, map[string]any{"Max": identity.MaxLength}))
		return
	}
	if id, ok := m.byConn[connID]; ok {
		obslog.L().Info("session_conn_in_match", zap.String("conn_id", connID), zap.String("match_id", id))
		m.sendText(connID, m.cat.Text(msgcat.KeyAlreadyInMatch))
		return
	}
	if id, ok := m.byPlayer[ident]; ok {
		obslog.L().Info("session_identity_in_match", zap.String("identity", ident), zap.String("match_id", id))
		m.sendText(connID, m.cat.Text(msgcat.KeyAlreadyInMatch))
		return
	}

	replaced := m.queue.Enqueue(matchmaking.Entry{
		Identity:    ident,
		SessionID:   sessionID,
		ConnID:      connID,
		TimeControl: timeControl,
		JoinedAt:    m.now(),
	})
	obslog.L().Info("queue_enqueue",
		zap.String("identity", ident),
		zap.String("conn_id", connID),
		zap.Bool("replaced", replaced),
		zap.Int("waiting", m.queue.Len()),
	)
	if replaced {
		return
	}
	for _, p := range m.queue.DequeuePairs() {
		m.startMatch(p)
	}
}

// CancelSearch removes connID's queue entry, if any.
func (m *Manager) CancelSearch(connID string) {
	if !m.queue.Cancel(connID) {
		return
	}
	obslog.L().Info("queue_cancel", zap.String("conn_id", connID))
	m.sendText(connID, m.cat.Text(msgcat.KeySearchCancelled))
}

// MakeMove applies move for side when connID is bound to that side.
func (m *Manager) MakeMove(connID, matchID string, side rules.Color, move string) {
	mt, ok := m.authorize(connID, matchID, side)
	if !ok {
		return
	}
	if err := mt.ApplyMove(side, move); err != nil {
		var rej *rules.Rejection
		if !errors.As(err, &rej) && !errors.Is(err, match.ErrMatchOver) {
			obslog.L().Error("session_engine_error", zap.String("match_id", matchID), zap.Error(err))
		}
		return
	}
	obslog.L().Debug("match_move",
		zap.String("match_id", matchID),
		zap.String("side", string(side)),
		zap.String("move", move),
		zap.String("to_move", string(rules.Turn(mt.Position()))),
	)
	if mt.Over() {
		m.destroy(mt)
	}
}

// Resign ends the match in the opponent's favour.
func (m *Manager) Resign(connID, matchID string, side rules.Color) {
	mt, ok := m.authorize(connID, matchID, side)
	if !ok {
		return
	}
	mt.Resign(side)
	m.destroy(mt)
}

// Leave abandons the match; only the opponent is told.
func (m *Manager) Leave(connID, matchID string) {
	mt, ok := m.matches[matchID]
	if !ok {
		return
	}
	side, bound := mt.SideOf(connID)
	if !bound {
		m.unauthorized(connID, matchID, "")
		return
	}
	obslog.L().Info("session_leave", zap.String("match_id", matchID), zap.String("side", string(side)))
	mt.Abandon(connID)
	m.destroy(mt)
}

// Rejoin rebinds connID to the side holding sessionID. It always replies.
func (m *Manager) Rejoin(connID, sessionID string) {
	mt, side, ok := m.findSession(sessionID)
	if !ok {
		obslog.L().Info("session_rejoin_miss", zap.String("conn_id", connID))
		m.sendText(connID, m.cat.Text(msgcat.KeyNoMatchToRejoin))
		return
	}
	if bound, ok := m.byConn[connID]; ok && bound != mt.ID() {
		m.sendText(connID, m.cat.Text(msgcat.KeyAlreadyInMatch))
		return
	}
	if cur, ok := mt.SideOf(connID); ok && cur != side {
		m.sendText(connID, m.cat.Text(msgcat.KeyAlreadyInMatch))
		return
	}
	m.queue.Cancel(connID)
	_, previous, _ := mt.Rebind(sessionID, connID)
	if previous != "" && previous != connID {
		delete(m.byConn, previous)
	}
	m.byConn[connID] = mt.ID()
	obslog.L().Info("session_rejoin",
		zap.String("match_id", mt.ID()),
		zap.String("side", string(side)),
		zap.String("conn_id", connID),
	)
}

// ConnectionClosed unbinds connID. A match with no bound side left is removed.
func (m *Manager) ConnectionClosed(connID string) {
	m.queue.Cancel(connID)
	matchID, ok := m.byConn[connID]
	if !ok {
		return
	}
	delete(m.byConn, connID)
	mt, ok := m.matches[matchID]
	if !ok {
		return
	}
	mt.DisconnectSide(connID)
	if mt.Unbound() {
		mt.Close()
		m.destroy(mt)
	}
}

// ActiveMatches returns how many matches are live.
func (m *Manager) ActiveMatches() int { return len(m.matches) }

// Waiting returns how many players are queued.
func (m *Manager) Waiting() int { return m.queue.Len() }

// MatchOf returns the live match id identity is playing in.
func (m *Manager) MatchOf(ident string) (string, bool) {
	id, ok := m.byPlayer[ident]
	return id, ok
}

func (m *Manager) startMatch(p matchmaking.Pair) {
	id := m.newID()
	for m.matches[id] != nil {
		id = m.newID()
	}
	mt := match.New(id, p.First.TimeControl,
		match.Entrant{Identity: p.First.Identity, SessionID: p.First.SessionID, ConnID: p.First.ConnID},
		match.Entrant{Identity: p.Second.Identity, SessionID: p.Second.SessionID, ConnID: p.Second.ConnID},
		match.Deps{Engine: m.engine, Outbox: m.out, Catalog: m.cat, Coin: m.coin, Now: m.now},
	)
	m.matches[id] = mt
	for _, e := range []matchmaking.Entry{p.First, p.Second} {
		m.byPlayer[e.Identity] = id
		m.byConn[e.ConnID] = id
	}
}

func (m *Manager) destroy(mt *match.Match) {
	id := mt.ID()
	delete(m.matches, id)
	white, black := mt.Players()
	for _, ident := range []string{white, black} {
		if m.byPlayer[ident] == id {
			delete(m.byPlayer, ident)
		}
	}
	for _, side := range []rules.Color{rules.White, rules.Black} {
		if c := mt.Conn(side); c != "" && m.byConn[c] == id {
			delete(m.byConn, c)
		}
	}
	obslog.L().Info("match_removed", zap.String("match_id", id), zap.String("reason", string(mt.EndReason())))
	if m.recorder != nil {
		m.recorder.Record(mt.Summary())
	}
}

// authorize resolves matchID and checks that connID is bound to side.
// Unknown matches are dropped silently; a binding mismatch is answered.
func (m *Manager) authorize(connID, matchID string, side rules.Color) (*match.Match, bool) {
	mt, ok := m.matches[matchID]
	if !ok {
		obslog.L().Debug("session_unknown_match", zap.String("conn_id", connID), zap.String("match_id", matchID))
		return nil, false
	}
	if !side.Valid() || connID == "" || mt.Conn(side) != connID {
		m.unauthorized(connID, matchID, side)
		return nil, false
	}
	return mt, true
}

func (m *Manager) unauthorized(connID, matchID string, side rules.Color) {
	obslog.L().Warn("session_unauthorized",
		zap.String("conn_id", connID),
		zap.String("match_id", matchID),
		zap.String("claimed_side", string(side)),
	)
	m.out.Send(connID, pvpdto.Notice{Message: m.cat.Text(msgcat.KeyUnauthorized)})
}

func (m *Manager) findSession(sessionID string) (*match.Match, rules.Color, bool) {
	if sessionID == "" {
		return nil, "", false
	}
	for _, mt := range m.matches {
		if side, ok := mt.SideOfSession(sessionID); ok {
			return mt, side, true
		}
	}
	return nil, "", false
}

func (m *Manager) sendText(connID, text string) {
	m.out.Send(connID, pvpdto.Text(text))
}
