// Package archive persists finished matches to Redis, Postgres and an
// optional result webhook.
package archive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/park285/cheese-pvp-server/internal/match"
)

// Record is a finished match as stored and published.
type Record struct {
	ID          string    `json:"id"`
	White       string    `json:"white"`
	Black       string    `json:"black"`
	TimeControl string    `json:"time_control,omitempty"`
	Result      string    `json:"result"` // 1-0 | 0-1 | 1/2-1/2 | *
	Winner      string    `json:"winner,omitempty"`
	Method      string    `json:"method,omitempty"`
	EndReason   string    `json:"end_reason"`
	FinalFEN    string    `json:"final_fen"`
	MovesSAN    []string  `json:"moves_san"`
	MovesUCI    []string  `json:"moves_uci"`
	PGN         string    `json:"pgn"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
	DurationMS  int64     `json:"duration_ms"`
}

// Sink stores one record. Implementations must be safe to call from the
// archiver goroutine only.
type Sink interface {
	Name() string
	Save(ctx context.Context, rec Record) error
}

// FromSummary converts a finished match into its archived form.
func FromSummary(s match.Summary) Record {
	result := mapResultToPGN(s.Outcome)
	duration := s.EndedAt.Sub(s.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}
	rec := Record{
		ID:          s.ID,
		White:       s.White,
		Black:       s.Black,
		TimeControl: s.TimeControl,
		Result:      result,
		Winner:      s.Winner(),
		Method:      s.Method,
		EndReason:   string(s.EndReason),
		FinalFEN:    s.Position,
		MovesSAN:    nonNil(s.MovesSAN),
		MovesUCI:    nonNil(s.MovesUCI),
		StartedAt:   s.CreatedAt,
		EndedAt:     s.EndedAt,
		DurationMS:  duration,
	}
	rec.PGN = buildPGN(rec)
	return rec
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func mapResultToPGN(outcome string) string {
	switch strings.ToLower(strings.TrimSpace(outcome)) {
	case "white":
		return "1-0"
	case "black":
		return "0-1"
	case "draw":
		return "1/2-1/2"
	default:
		return "*"
	}
}

func buildPGN(rec Record) string {
	var b strings.Builder
	date := rec.EndedAt
	if date.IsZero() {
		date = time.Now()
	}
	b.WriteString("[Event \"PvP\"]\n")
	b.WriteString("[Site \"cheese-pvp-server\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(rec.White)))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(rec.Black)))
	if strings.TrimSpace(rec.TimeControl) != "" {
		b.WriteString(fmt.Sprintf("[TimeControl \"%s\"]\n", sanitizePGN(rec.TimeControl)))
	}
	if term := termination(rec); term != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(term)))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", rec.Result))

	for i := 0; i < len(rec.MovesSAN); i += 2 {
		b.WriteString(fmt.Sprintf("%d. %s", i/2+1, strings.TrimSpace(rec.MovesSAN[i])))
		if i+1 < len(rec.MovesSAN) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(rec.MovesSAN[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(rec.Result)
	return b.String()
}

func termination(rec Record) string {
	switch match.EndReason(rec.EndReason) {
	case match.EndResignation:
		return "resignation"
	case match.EndOpponentLeft:
		return "abandoned"
	case match.EndDisconnected:
		return "unterminated"
	}
	return strings.ToLower(rec.Method)
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
