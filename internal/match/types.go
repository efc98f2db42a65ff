package match

import (
	"time"

	"github.com/park285/cheese-pvp-server/internal/rules"
)

// Status represents a match lifecycle state.
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusOver   Status = "OVER"
)

// EndReason records why a match reached StatusOver.
type EndReason string

const (
	EndCompleted    EndReason = "completed"
	EndResignation  EndReason = "resignation"
	EndOpponentLeft EndReason = "opponent_left"
	EndDisconnected EndReason = "disconnected"
)

// Entrant is a player leaving the queue to be seated in a match.
type Entrant struct {
	Identity  string
	SessionID string
	ConnID    string
}

// Outbox delivers a record to a connection. Delivery is best-effort; a
// missing or closed connection drops the record.
type Outbox interface {
	Send(connID string, msg any)
}

// Catalog resolves user-facing texts by key.
type Catalog interface {
	Text(key string) string
}

// Coin returns true when the first entrant should take white.
type Coin func() bool

// Summary is a finished match as handed to result sinks.
type Summary struct {
	ID          string
	White       string
	Black       string
	TimeControl string
	Position    string
	MovesSAN    []string
	MovesUCI    []string
	Outcome     string // white | black | draw
	Method      string
	EndReason   EndReason
	CreatedAt   time.Time
	EndedAt     time.Time
}

// Winner returns the identity of the winning side, or "" for a draw.
func (s Summary) Winner() string {
	switch rules.Color(s.Outcome) {
	case rules.White:
		return s.White
	case rules.Black:
		return s.Black
	}
	return ""
}

type seat struct {
	identity string
	session  string
	conn     string
}
