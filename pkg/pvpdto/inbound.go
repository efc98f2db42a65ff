package pvpdto

import (
	"encoding/json"
	"errors"
	"strings"
)

// Inbound actions.
const (
	ActionCreateGame   = "createGame"
	ActionCancelSearch = "cancelSearch"
	ActionMakeMove     = "makeMove"
	ActionResign       = "resign"
	ActionLeaveGame    = "leaveGame"
	ActionRejoin       = "rejoin"
)

var (
	ErrMalformed     = errors.New("malformed payload")
	ErrUnknownAction = errors.New("unknown action")
)

// Inbound is any client → server record, tagged by Action.
type Inbound struct {
	Action      string     `json:"action"`
	Username    string     `json:"username,omitempty"`
	TimeControl string     `json:"timeControl,omitempty"`
	SessionID   string     `json:"sessionId,omitempty"`
	GameObj     *GameState `json:"gameObj,omitempty"`
	Move        string     `json:"move,omitempty"`
	GameID      string     `json:"gameId,omitempty"`
}

// Decode parses one frame and checks the fields its action requires.
func Decode(raw []byte) (*Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, ErrMalformed
	}
	in.Action = strings.TrimSpace(in.Action)
	switch in.Action {
	case ActionCreateGame, ActionCancelSearch, ActionRejoin:
	case ActionMakeMove:
		if in.GameObj == nil || in.GameObj.GameID == "" || strings.TrimSpace(in.Move) == "" {
			return nil, ErrMalformed
		}
	case ActionResign:
		if in.GameObj == nil || in.GameObj.GameID == "" {
			return nil, ErrMalformed
		}
	case ActionLeaveGame:
		if in.GameID == "" {
			return nil, ErrMalformed
		}
	case "":
		return nil, ErrMalformed
	default:
		return nil, ErrUnknownAction
	}
	return &in, nil
}
