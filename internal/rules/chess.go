package rules

import (
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// StartFEN is the canonical initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Chess is the standard-chess Engine. Positions are FEN strings; moves are
// accepted in UCI (e2e4, e7e8q) or SAN (e4, Nf3, O-O).
type Chess struct{}

func NewChess() *Chess { return &Chess{} }

func (c *Chess) StartPosition() string { return StartFEN }

func (c *Chess) Apply(position string, mover Color, move string) (Result, error) {
	raw := strings.TrimSpace(move)
	if raw == "" {
		return Result{}, reject("empty move")
	}
	game, err := load(position)
	if err != nil {
		return Result{}, reject("corrupt position")
	}
	if game.Outcome() != nchess.NoOutcome {
		return Result{}, reject("game already finished")
	}
	pos := game.Position()
	if colorFrom(pos.Turn()) != mover {
		return Result{}, reject("not your turn")
	}

	notationUCI := nchess.UCINotation{}
	notationSAN := nchess.AlgebraicNotation{}
	mv, derr := notationUCI.Decode(pos, strings.ToLower(raw))
	if derr != nil || game.Move(mv, nil) != nil {
		mv, derr = notationSAN.Decode(pos, raw)
		if derr != nil {
			return Result{}, reject("illegal move " + raw)
		}
		if err := game.Move(mv, nil); err != nil {
			return Result{}, reject("illegal move " + raw)
		}
	}

	res := Result{
		Position: game.FEN(),
		SAN:      notationSAN.Encode(pos, mv),
		UCI:      strings.ToLower(notationUCI.Encode(pos, mv)),
	}
	switch game.Outcome() {
	case nchess.WhiteWon:
		res.Over, res.Outcome = true, "white"
	case nchess.BlackWon:
		res.Over, res.Outcome = true, "black"
	case nchess.Draw:
		res.Over, res.Outcome = true, "draw"
	}
	if res.Over {
		res.Method = strings.ToLower(game.Method().String())
	}
	return res, nil
}

// Turn returns the side to move in position, or "" when it does not parse.
func Turn(position string) Color {
	game, err := load(position)
	if err != nil {
		return ""
	}
	return colorFrom(game.Position().Turn())
}

func load(position string) (*nchess.Game, error) {
	p := strings.TrimSpace(position)
	if p == "" || p == "startpos" {
		return nchess.NewGame(), nil
	}
	opt, err := nchess.FEN(p)
	if err != nil {
		return nil, err
	}
	return nchess.NewGame(opt), nil
}

func colorFrom(c nchess.Color) Color {
	if c == nchess.White {
		return White
	}
	return Black
}
