package archive

import (
	"strings"
	"testing"
	"time"

	"github.com/park285/cheese-pvp-server/internal/match"
)

func sampleSummary() match.Summary {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return match.Summary{
		ID:          "pvp-abc",
		White:       "alice",
		Black:       "bob",
		TimeControl: "5+0",
		Position:    "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3",
		MovesSAN:    []string{"f3", "e5", "g4", "Qh4#"},
		MovesUCI:    []string{"f2f3", "e7e5", "g2g4", "d8h4"},
		Outcome:     "black",
		Method:      "checkmate",
		EndReason:   match.EndCompleted,
		CreatedAt:   start,
		EndedAt:     start.Add(90 * time.Second),
	}
}

func TestFromSummary(t *testing.T) {
	rec := FromSummary(sampleSummary())
	if rec.Result != "0-1" || rec.Winner != "bob" || rec.DurationMS != 90000 {
		t.Fatalf("unexpected record: %#v", rec)
	}
	for _, want := range []string{
		`[White "alice"]`,
		`[Black "bob"]`,
		`[Date "2026.03.01"]`,
		`[TimeControl "5+0"]`,
		`[Termination "checkmate"]`,
		`[Result "0-1"]`,
		"1. f3 e5 2. g4 Qh4# 0-1",
	} {
		if !strings.Contains(rec.PGN, want) {
			t.Errorf("pgn missing %q:\n%s", want, rec.PGN)
		}
	}
}

func TestFromSummaryUnfinishedAndResign(t *testing.T) {
	s := sampleSummary()
	s.Outcome, s.Method, s.EndReason = "", "", match.EndDisconnected
	s.MovesSAN, s.MovesUCI = nil, nil
	rec := FromSummary(s)
	if rec.Result != "*" || rec.Winner != "" || rec.MovesSAN == nil {
		t.Fatalf("unexpected record: %#v", rec)
	}
	if !strings.Contains(rec.PGN, `[Termination "unterminated"]`) {
		t.Fatalf("pgn = %s", rec.PGN)
	}

	s = sampleSummary()
	s.Outcome, s.Method, s.EndReason = "white", "resignation", match.EndResignation
	rec = FromSummary(s)
	if rec.Result != "1-0" || !strings.Contains(rec.PGN, `[Termination "resignation"]`) {
		t.Fatalf("resign pgn = %s", rec.PGN)
	}
}

func TestSanitizePGN(t *testing.T) {
	if got := sanitizePGN(` a"b\c `); got != `a'b c` {
		t.Fatalf("sanitizePGN = %q", got)
	}
}
