package match

import (
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"github.com/park285/cheese-pvp-server/internal/msgcat"
	"github.com/park285/cheese-pvp-server/internal/obslog"
	"github.com/park285/cheese-pvp-server/internal/rules"
	"github.com/park285/cheese-pvp-server/pkg/pvpdto"
	"go.uber.org/zap"
)

// ErrMatchOver is returned for moves submitted after the match ended.
var ErrMatchOver = errors.New("match is over")

// Deps are the collaborators a match pushes through.
type Deps struct {
	Engine  rules.Engine
	Outbox  Outbox
	Catalog Catalog
	Coin    Coin
	Now     func() time.Time
}

// Match is one game between two seated players. It is not safe for
// concurrent use; the session manager serializes every call.
type Match struct {
	id          string
	timeControl string
	seats       map[rules.Color]*seat
	position    string
	status      Status
	movesSAN    []string
	movesUCI    []string
	outcome     string
	method      string
	reason      EndReason
	createdAt   time.Time
	endedAt     time.Time

	engine rules.Engine
	out    Outbox
	cat    Catalog
	now    func() time.Time
}

// New seats a and b on random sides, sets the engine's start position and
// pushes the initial snapshot to both players.
func New(id, timeControl string, a, b Entrant, deps Deps) *Match {
	coin := deps.Coin
	if coin == nil {
		coin = CryptoCoin
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	white, black := a, b
	if !coin() {
		white, black = b, a
	}
	m := &Match{
		id:          id,
		timeControl: timeControl,
		seats: map[rules.Color]*seat{
			rules.White: {identity: white.Identity, session: white.SessionID, conn: white.ConnID},
			rules.Black: {identity: black.Identity, session: black.SessionID, conn: black.ConnID},
		},
		position:  deps.Engine.StartPosition(),
		status:    StatusActive,
		movesSAN:  []string{},
		movesUCI:  []string{},
		createdAt: now(),
		engine:    deps.Engine,
		out:       deps.Outbox,
		cat:       deps.Catalog,
		now:       now,
	}
	obslog.L().Info("match_create",
		zap.String("match_id", id),
		zap.String("white", white.Identity),
		zap.String("black", black.Identity),
		zap.String("time_control", timeControl),
	)
	m.pushSnapshots()
	return m
}

// CryptoCoin flips a fair coin using crypto/rand.
func CryptoCoin() bool {
	n, err := rand.Int(rand.Reader, big.NewInt(2))
	if err != nil || n == nil {
		return true
	}
	return n.Int64() == 0
}

func (m *Match) ID() string           { return m.id }
func (m *Match) Status() Status       { return m.status }
func (m *Match) Over() bool           { return m.status == StatusOver }
func (m *Match) Position() string     { return m.position }
func (m *Match) TimeControl() string  { return m.timeControl }
func (m *Match) EndReason() EndReason { return m.reason }

// Identity returns the identity seated on side.
func (m *Match) Identity(side rules.Color) string { return m.seats[side].identity }

// Conn returns the connection bound to side, or "" when unbound.
func (m *Match) Conn(side rules.Color) string { return m.seats[side].conn }

// Players returns the white and black identities.
func (m *Match) Players() (white, black string) {
	return m.seats[rules.White].identity, m.seats[rules.Black].identity
}

// SideOf returns the side connID is bound to.
func (m *Match) SideOf(connID string) (rules.Color, bool) {
	if connID == "" {
		return "", false
	}
	for _, side := range []rules.Color{rules.White, rules.Black} {
		if m.seats[side].conn == connID {
			return side, true
		}
	}
	return "", false
}

// SideOfIdentity returns the side identity is seated on.
func (m *Match) SideOfIdentity(identity string) (rules.Color, bool) {
	for _, side := range []rules.Color{rules.White, rules.Black} {
		if m.seats[side].identity == identity {
			return side, true
		}
	}
	return "", false
}

// SideOfSession returns the side whose stored session token is sessionID.
// An empty token never matches.
func (m *Match) SideOfSession(sessionID string) (rules.Color, bool) {
	if sessionID == "" {
		return "", false
	}
	for _, side := range []rules.Color{rules.White, rules.Black} {
		if m.seats[side].session == sessionID {
			return side, true
		}
	}
	return "", false
}

// Unbound reports whether neither side has a connection.
func (m *Match) Unbound() bool {
	return m.seats[rules.White].conn == "" && m.seats[rules.Black].conn == ""
}

// Snapshot is the state record as seen by side.
func (m *Match) Snapshot(side rules.Color) pvpdto.GameState {
	return pvpdto.GameState{
		GameID:    m.id,
		Color:     string(side),
		Opponent:  m.seats[side.Opponent()].identity,
		GameState: m.position,
	}
}

// ApplyMove asks the engine to apply move for side. On success both sides
// receive the new snapshot, and the terminal notice follows when the move
// ended the game. A rejected move is reported to the mover only.
func (m *Match) ApplyMove(side rules.Color, move string) error {
	if m.Over() {
		return ErrMatchOver
	}
	res, err := m.engine.Apply(m.position, side, move)
	if err != nil {
		var rej *rules.Rejection
		reason := err.Error()
		if errors.As(err, &rej) {
			reason = rej.Reason
		}
		obslog.L().Info("match_move_rejected",
			zap.String("match_id", m.id),
			zap.String("side", string(side)),
			zap.String("move", move),
			zap.String("reason", reason),
		)
		m.push(side, pvpdto.Notice{Message: m.text(msgcat.KeyMoveRejected), Reason: reason})
		return err
	}

	m.position = res.Position
	m.movesSAN = append(m.movesSAN, res.SAN)
	m.movesUCI = append(m.movesUCI, res.UCI)
	m.pushSnapshots()

	if res.Over {
		m.outcome = res.Outcome
		m.method = res.Method
		m.finish(EndCompleted)
		notice := pvpdto.GameOver{Message: m.text(msgcat.KeyGameOver), State: m.position, Outcome: res.Outcome}
		m.push(rules.White, notice)
		m.push(rules.Black, notice)
	}
	return nil
}

// Resign ends the match with the opponent as winner. Both sides are told.
func (m *Match) Resign(side rules.Color) {
	if m.Over() {
		return
	}
	m.outcome = string(side.Opponent())
	m.method = "resignation"
	m.finish(EndResignation)
	notice := pvpdto.GameOver{Message: m.text(msgcat.KeyGameOver), State: m.position, Reason: pvpdto.ReasonResign}
	m.push(rules.White, notice)
	m.push(rules.Black, notice)
}

// DisconnectSide unbinds connID from its side. The match stays active so the
// player can rejoin.
func (m *Match) DisconnectSide(connID string) (rules.Color, bool) {
	side, ok := m.SideOf(connID)
	if !ok {
		return "", false
	}
	m.seats[side].conn = ""
	obslog.L().Info("match_side_disconnected",
		zap.String("match_id", m.id),
		zap.String("side", string(side)),
	)
	return side, true
}

// Abandon ends the match because the player on connID left. Only the
// opponent is notified.
func (m *Match) Abandon(connID string) bool {
	if m.Over() {
		return false
	}
	side, ok := m.SideOf(connID)
	if !ok {
		return false
	}
	m.outcome = string(side.Opponent())
	m.method = "abandonment"
	m.finish(EndOpponentLeft)
	m.push(side.Opponent(), pvpdto.GameOver{
		Message: m.text(msgcat.KeyGameOver),
		State:   m.position,
		Reason:  pvpdto.ReasonOpponentLeft,
	})
	return true
}

// Close ends a match whose players are both gone. Nobody is notified.
func (m *Match) Close() {
	if m.Over() {
		return
	}
	m.finish(EndDisconnected)
}

// Rebind attaches connID to the side whose session token matches and sends
// that side the current snapshot. previous is the connection the side was
// bound to before, if any.
func (m *Match) Rebind(sessionID, connID string) (side rules.Color, previous string, ok bool) {
	if connID == "" {
		return "", "", false
	}
	side, ok = m.SideOfSession(sessionID)
	if !ok {
		return "", "", false
	}
	st := m.seats[side]
	previous = st.conn
	st.conn = connID
	obslog.L().Info("match_side_rebound",
		zap.String("match_id", m.id),
		zap.String("side", string(side)),
		zap.Bool("replaced_live", previous != ""),
	)
	m.push(side, m.Snapshot(side))
	return side, previous, true
}

// Summary returns the finished match record.
func (m *Match) Summary() Summary {
	white, black := m.Players()
	return Summary{
		ID:          m.id,
		White:       white,
		Black:       black,
		TimeControl: m.timeControl,
		Position:    m.position,
		MovesSAN:    append([]string(nil), m.movesSAN...),
		MovesUCI:    append([]string(nil), m.movesUCI...),
		Outcome:     m.outcome,
		Method:      m.method,
		EndReason:   m.reason,
		CreatedAt:   m.createdAt,
		EndedAt:     m.endedAt,
	}
}

func (m *Match) finish(reason EndReason) {
	m.status = StatusOver
	m.reason = reason
	m.endedAt = m.now()
	obslog.L().Info("match_over",
		zap.String("match_id", m.id),
		zap.String("reason", string(reason)),
		zap.String("outcome", m.outcome),
		zap.Int("plies", len(m.movesUCI)),
	)
}

func (m *Match) pushSnapshots() {
	m.push(rules.White, m.Snapshot(rules.White))
	m.push(rules.Black, m.Snapshot(rules.Black))
}

// push is a no-op for an unbound side.
func (m *Match) push(side rules.Color, msg any) {
	conn := m.seats[side].conn
	if conn == "" || m.out == nil {
		return
	}
	m.out.Send(conn, msg)
}

func (m *Match) text(key string) string {
	if m.cat == nil {
		return key
	}
	return m.cat.Text(key)
}
