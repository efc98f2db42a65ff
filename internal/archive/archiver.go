package archive

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/park285/cheese-pvp-server/internal/match"
	"github.com/park285/cheese-pvp-server/internal/obslog"
	"go.uber.org/zap"
)

// Archiver fans finished matches out to its sinks on a background goroutine.
// Submit never blocks the caller; records are dropped when the buffer is full.
type Archiver struct {
	sinks       []Sink
	ch          chan Record
	saveTimeout time.Duration
	dropped     atomic.Int64
}

func NewArchiver(buffer int, sinks ...Sink) *Archiver {
	if buffer <= 0 {
		buffer = 256
	}
	return &Archiver{sinks: sinks, ch: make(chan Record, buffer), saveTimeout: 5 * time.Second}
}

// Record queues a finished match for archiving.
func (a *Archiver) Record(s match.Summary) {
	rec := FromSummary(s)
	select {
	case a.ch <- rec:
	default:
		a.dropped.Add(1)
		obslog.L().Warn("archive_drop", zap.String("match_id", rec.ID), zap.Int64("dropped", a.dropped.Load()))
	}
}

// Dropped returns how many records were discarded on a full buffer.
func (a *Archiver) Dropped() int64 { return a.dropped.Load() }

// Run saves queued records until ctx is cancelled, then flushes what is
// already buffered.
func (a *Archiver) Run(ctx context.Context) error {
	for {
		select {
		case rec := <-a.ch:
			a.save(ctx, rec)
		case <-ctx.Done():
			a.flush()
			return nil
		}
	}
}

func (a *Archiver) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), a.saveTimeout)
	defer cancel()
	for {
		select {
		case rec := <-a.ch:
			a.save(ctx, rec)
		default:
			return
		}
	}
}

func (a *Archiver) save(parent context.Context, rec Record) {
	for _, s := range a.sinks {
		ctx, cancel := context.WithTimeout(parent, a.saveTimeout)
		err := s.Save(ctx, rec)
		cancel()
		if err != nil {
			obslog.L().Warn("archive_save_error",
				zap.String("sink", s.Name()),
				zap.String("match_id", rec.ID),
				zap.Error(err),
			)
			continue
		}
		obslog.L().Debug("archive_saved", zap.String("sink", s.Name()), zap.String("match_id", rec.ID))
	}
}
