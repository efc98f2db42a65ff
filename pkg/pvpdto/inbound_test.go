package pvpdto

import (
	"errors"
	"testing"
)

func TestDecode(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		err  error
	}{
		{"create", `{"action":"createGame","username":"alice","timeControl":"rapid"}`, nil},
		{"create with session", `{"action":"createGame","username":"alice","timeControl":"rapid","sessionId":"s1"}`, nil},
		{"cancel", `{"action":"cancelSearch"}`, nil},
		{"move", `{"action":"makeMove","move":"e4","gameObj":{"gameId":"g","color":"white","opponent":"bob","gameState":"x"}}`, nil},
		{"move without gameObj", `{"action":"makeMove","move":"e4"}`, ErrMalformed},
		{"move without move", `{"action":"makeMove","gameObj":{"gameId":"g"}}`, ErrMalformed},
		{"resign", `{"action":"resign","gameObj":{"gameId":"g","color":"black"}}`, nil},
		{"resign without game", `{"action":"resign"}`, ErrMalformed},
		{"leave", `{"action":"leaveGame","gameId":"g"}`, nil},
		{"leave without id", `{"action":"leaveGame"}`, ErrMalformed},
		{"rejoin", `{"action":"rejoin","sessionId":"s1"}`, nil},
		{"no action", `{"username":"alice"}`, ErrMalformed},
		{"unknown", `{"action":"dance"}`, ErrUnknownAction},
		{"not json", `hello`, ErrMalformed},
		{"wrong type", `{"action":"makeMove","gameObj":"g","move":"e4"}`, ErrMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in, err := Decode([]byte(tc.raw))
			if !errors.Is(err, tc.err) {
				t.Fatalf("Decode err = %v, want %v", err, tc.err)
			}
			if err == nil && in == nil {
				t.Fatalf("nil inbound without error")
			}
		})
	}
}

func TestDecodeKeepsFields(t *testing.T) {
	in, err := Decode([]byte(`{"action":"makeMove","move":"Nf3","gameObj":{"gameId":"pvp-1","color":"white","opponent":"bob","gameState":"fen"}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if in.Move != "Nf3" || in.GameObj.GameID != "pvp-1" || in.GameObj.Color != "white" {
		t.Fatalf("unexpected inbound %+v / %+v", in, in.GameObj)
	}
}
