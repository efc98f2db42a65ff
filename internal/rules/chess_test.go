package rules

import (
	"errors"
	"strings"
	"testing"
)

func TestApplyUCIAndSAN(t *testing.T) {
	e := NewChess()
	pos := e.StartPosition()

	r1, err := e.Apply(pos, White, "e2e4")
	if err != nil {
		t.Fatalf("Apply UCI: %v", err)
	}
	if r1.UCI != "e2e4" || r1.SAN != "e4" || r1.Over {
		t.Fatalf("unexpected result: %+v", r1)
	}
	if Turn(r1.Position) != Black || !strings.Contains(r1.Position, "4P3") {
		t.Fatalf("unexpected position %q", r1.Position)
	}

	r2, err := e.Apply(r1.Position, Black, "Nc6")
	if err != nil {
		t.Fatalf("Apply SAN: %v", err)
	}
	if r2.UCI != "b8c6" || Turn(r2.Position) != White {
		t.Fatalf("unexpected result: %+v", r2)
	}
}

func TestApplyRejections(t *testing.T) {
	e := NewChess()
	start := e.StartPosition()
	cases := []struct {
		name     string
		position string
		mover    Color
		move     string
	}{
		{"empty", start, White, "  "},
		{"wrong turn", start, Black, "e7e5"},
		{"garbage", start, White, "invalid"},
		{"illegal uci", start, White, "e2e5"},
		{"illegal san", start, White, "Ke2"},
		{"corrupt position", "not a fen", White, "e4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Apply(tc.position, tc.mover, tc.move)
			var rej *Rejection
			if !errors.As(err, &rej) {
				t.Fatalf("expected Rejection, got %v", err)
			}
			if rej.Reason == "" {
				t.Fatalf("rejection without reason")
			}
		})
	}
}

func TestApplyDetectsCheckmate(t *testing.T) {
	e := NewChess()
	pos := e.StartPosition()
	moves := []struct {
		mover Color
		move  string
	}{
		{White, "f3"}, {Black, "e5"}, {White, "g4"}, {Black, "Qh4#"},
	}
	var last Result
	for i, m := range moves {
		r, err := e.Apply(pos, m.mover, m.move)
		if err != nil {
			t.Fatalf("move %d (%s): %v", i, m.move, err)
		}
		pos = r.Position
		last = r
	}
	if !last.Over || last.Outcome != "black" || last.Method != "checkmate" {
		t.Fatalf("expected black checkmate, got %+v", last)
	}
	if _, err := e.Apply(pos, White, "e2e3"); err == nil {
		t.Fatalf("expected rejection after game end")
	}
}

func TestColorOpponent(t *testing.T) {
	if White.Opponent() != Black || Black.Opponent() != White {
		t.Fatalf("Opponent mismatch")
	}
	if Color("red").Valid() {
		t.Fatalf("red must not be a valid side")
	}
}
