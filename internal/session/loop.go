package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/park285/cheese-pvp-server/internal/obslog"
	"github.com/park285/cheese-pvp-server/pkg/pvpdto"
)

type event struct {
	connID string
	in     *pvpdto.Inbound
	closed bool
}

// Run processes events one at a time until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	defer close(m.done)
	obslog.L().Info("session_loop_start")
	for {
		select {
		case ev := <-m.events:
			if ev.closed {
				m.ConnectionClosed(ev.connID)
				continue
			}
			m.Handle(ev.connID, ev.in)
		case <-ctx.Done():
			obslog.L().Info("session_loop_stop",
				zap.Int("matches", len(m.matches)),
				zap.Int("waiting", m.queue.Len()),
			)
			return nil
		}
	}
}

// Dispatch hands an inbound record to the loop. It blocks until the loop
// accepts it, so records from one connection keep their order.
func (m *Manager) Dispatch(ctx context.Context, connID string, in *pvpdto.Inbound) error {
	select {
	case <-m.done:
		return ErrStopped
	default:
	}
	select {
	case m.events <- event{connID: connID, in: in}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrStopped
	}
}

// Closed reports a dropped connection to the loop.
func (m *Manager) Closed(connID string) error {
	select {
	case <-m.done:
		return ErrStopped
	default:
	}
	select {
	case m.events <- event{connID: connID, closed: true}:
		return nil
	case <-m.done:
		return ErrStopped
	}
}
