package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T, limit int) (*RedisStore, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := OpenRedis(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, time.Hour, limit), mr, rdb
}

func TestRedisStoreSaveGet(t *testing.T) {
	s, mr, _ := newTestStore(t, 5)
	ctx := context.Background()
	rec := FromSummary(sampleSummary())
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Get(ctx, rec.ID)
	if err != nil || got == nil {
		t.Fatalf("Get: %v %v", got, err)
	}
	if got.PGN != rec.PGN || got.Winner != "bob" {
		t.Fatalf("round trip mismatch: %#v", got)
	}
	if ttl := mr.TTL(keyResult(rec.ID)); ttl != time.Hour {
		t.Fatalf("ttl = %v", ttl)
	}

	missing, err := s.Get(ctx, "pvp-none")
	if err != nil || missing != nil {
		t.Fatalf("missing record: %v %v", missing, err)
	}

	mr.FastForward(2 * time.Hour)
	expired, err := s.Get(ctx, rec.ID)
	if err != nil || expired != nil {
		t.Fatalf("expected expiry, got %v %v", expired, err)
	}
}

func TestRedisStoreRecentByPlayerCapped(t *testing.T) {
	s, _, _ := newTestStore(t, 3)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		rec := FromSummary(sampleSummary())
		rec.ID = fmt.Sprintf("pvp-%d", i)
		if err := s.Save(ctx, rec); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}
	list, err := s.RecentByPlayer(ctx, "alice")
	if err != nil {
		t.Fatalf("RecentByPlayer: %v", err)
	}
	if len(list) != 3 || list[0].ID != "pvp-4" || list[2].ID != "pvp-2" {
		t.Fatalf("recent = %v", ids(list))
	}
	none, err := s.RecentByPlayer(ctx, "carol")
	if err != nil || len(none) != 0 {
		t.Fatalf("unknown player: %v %v", none, err)
	}
}

func TestRedisStorePublishes(t *testing.T) {
	s, _, rdb := newTestStore(t, 5)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	sub := rdb.Subscribe(ctx, ResultsChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	rec := FromSummary(sampleSummary())
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
	var got Record
	if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil || got.ID != rec.ID {
		t.Fatalf("published payload %q: %v", msg.Payload, err)
	}
}

func ids(list []Record) []string {
	out := make([]string, 0, len(list))
	for _, r := range list {
		out = append(out, r.ID)
	}
	return out
}
