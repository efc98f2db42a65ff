package rules

import (
	"fmt"
)

// Color identifies chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// Valid reports whether c is one of the two sides.
func (c Color) Valid() bool { return c == White || c == Black }

// Result is a successfully applied move.
type Result struct {
	Position string
	SAN      string
	UCI      string
	Over     bool
	Outcome  string // white | black | draw, set when Over
	Method   string // checkmate, stalemate, ... set when Over
}

// Rejection is returned when the engine refuses a move; Reason is user-facing.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string { return fmt.Sprintf("move rejected: %s", r.Reason) }

func reject(reason string) error { return &Rejection{Reason: reason} }

// Engine validates and applies moves against a serialized position.
type Engine interface {
	StartPosition() string
	Apply(position string, mover Color, move string) (Result, error)
}
