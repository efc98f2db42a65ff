package wsserver

import (
	"testing"

	"github.com/park285/cheese-pvp-server/pkg/pvpdto"
)

func TestHubEncodesTextVerbatimAndRecordsAsJSON(t *testing.T) {
	h := NewHub()
	c := &client{id: "c1", send: make(chan []byte, 4)}
	h.register(c)

	h.Send("c1", pvpdto.Text("connected to the game server"))
	h.Send("c1", pvpdto.Notice{Message: "Unauthorized"})
	h.Send("c1", pvpdto.GameOver{Message: "game is over", State: "fen", Reason: pvpdto.ReasonResign})

	want := []string{
		"connected to the game server",
		`{"message":"Unauthorized"}`,
		`{"message":"game is over","state":"fen","reason":"resign"}`,
	}
	for i, w := range want {
		if got := string(<-c.send); got != w {
			t.Fatalf("frame %d = %s, want %s", i, got, w)
		}
	}
}

func TestHubDropsUnknownAndFull(t *testing.T) {
	h := NewHub()
	h.Send("nobody", "hello")

	c := &client{id: "c1", send: make(chan []byte, 1)}
	h.register(c)
	h.Send("c1", "one")
	h.Send("c1", "two")
	if h.Dropped() != 1 {
		t.Fatalf("dropped = %d", h.Dropped())
	}
	h.unregister("c1")
	h.Send("c1", "three")
	if h.Len() != 0 {
		t.Fatalf("len = %d", h.Len())
	}
	if got, ok := <-c.send; !ok || string(got) != "one" {
		t.Fatalf("buffered frame = %q %v", got, ok)
	}
	if _, ok := <-c.send; ok {
		t.Fatalf("send channel should be closed after unregister")
	}
}
