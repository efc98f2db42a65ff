package pvpclient

import (
	"bytes"
	"encoding/json"

	"github.com/park285/cheese-pvp-server/pkg/pvpdto"
)

// State is the connection state of a Client.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
)

// Frame is one server frame. Exactly one of Text, Game, Over, Notice is set.
type Frame struct {
	Raw    []byte
	Text   string
	Game   *pvpdto.GameState
	Over   *pvpdto.GameOver
	Notice *pvpdto.Notice
}

type MessageCallback func(f Frame)

type StateCallback func(s State)

// ParseFrame classifies a server frame: snapshots carry gameId, terminal
// notices carry state, other JSON objects are notices, the rest is text.
func ParseFrame(data []byte) Frame {
	f := Frame{Raw: data}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		f.Text = string(data)
		return f
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		f.Text = string(data)
		return f
	}
	switch {
	case probe["gameId"] != nil:
		var gs pvpdto.GameState
		if json.Unmarshal(trimmed, &gs) == nil {
			f.Game = &gs
			return f
		}
	case probe["state"] != nil:
		var over pvpdto.GameOver
		if json.Unmarshal(trimmed, &over) == nil {
			f.Over = &over
			return f
		}
	case probe["message"] != nil:
		var n pvpdto.Notice
		if json.Unmarshal(trimmed, &n) == nil {
			f.Notice = &n
			return f
		}
	}
	f.Text = string(data)
	return f
}
