package archive

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type memSink struct {
	mu   sync.Mutex
	name string
	recs []Record
	err  error
}

func (m *memSink) Name() string { return m.name }

func (m *memSink) Save(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return m.err
}

func (m *memSink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}

func TestArchiverFansOutAndSurvivesSinkErrors(t *testing.T) {
	bad := &memSink{name: "bad", err: errors.New("down")}
	good := &memSink{name: "good"}
	a := NewArchiver(4, bad, good)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = a.Run(ctx)
		close(done)
	}()
	a.Record(sampleSummary())
	a.Record(sampleSummary())

	deadline := time.Now().Add(2 * time.Second)
	for good.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
	if good.count() != 2 || bad.count() != 2 {
		t.Fatalf("good=%d bad=%d", good.count(), bad.count())
	}
}

func TestArchiverDropsWhenFullAndFlushesOnStop(t *testing.T) {
	sink := &memSink{name: "mem"}
	a := NewArchiver(2, sink)
	for i := 0; i < 3; i++ {
		a.Record(sampleSummary())
	}
	if a.Dropped() != 1 {
		t.Fatalf("dropped = %d", a.Dropped())
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sink.count() != 2 {
		t.Fatalf("flushed %d records, want 2", sink.count())
	}
}
