package pvpdto

// GameState is both the match-created/state snapshot sent by the server and
// the gameObj echoed back by clients on makeMove/resign.
type GameState struct {
	GameID    string `json:"gameId"`
	Color     string `json:"color"`
	Opponent  string `json:"opponent"`
	GameState string `json:"gameState"`
}

// Terminal reasons. Normal completion omits the reason.
const (
	ReasonResign       = "resign"
	ReasonOpponentLeft = "opponent_left"
)

// GameOver is the terminal notice.
type GameOver struct {
	Message string `json:"message"`
	State   string `json:"state,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Outcome string `json:"outcome,omitempty"`
}

// Notice is a JSON rejection or informational record.
type Notice struct {
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

// Text is a plain-text line (connection-lifecycle notices); it is written to
// the socket verbatim, not JSON-encoded.
type Text string
