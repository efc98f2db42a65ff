package matchmaking

import (
	"time"
)

// Entry is one waiting player.
type Entry struct {
	Identity    string
	SessionID   string
	ConnID      string
	TimeControl string
	JoinedAt    time.Time
}

// Pair is two entries removed from the queue in arrival order.
type Pair struct {
	First  Entry
	Second Entry
}

// Queue is a FIFO waiting list keyed by identity. It is not safe for
// concurrent use; the session manager owns it from a single goroutine.
type Queue struct {
	entries []Entry
}

func NewQueue() *Queue {
	return &Queue{entries: []Entry{}}
}

// Enqueue appends e, or, when e.Identity is already waiting, rebinds that
// entry to e's connection in place and reports replaced=true. Entries of
// other identities bound to the same connection are dropped first: one
// connection searches for at most one identity.
func (q *Queue) Enqueue(e Entry) (replaced bool) {
	if e.JoinedAt.IsZero() {
		e.JoinedAt = time.Now()
	}
	q.removeWhere(func(x Entry) bool { return x.ConnID == e.ConnID && x.Identity != e.Identity })
	for i := range q.entries {
		if q.entries[i].Identity == e.Identity {
			q.entries[i].ConnID = e.ConnID
			q.entries[i].SessionID = e.SessionID
			return true
		}
	}
	q.entries = append(q.entries, e)
	return false
}

// DequeuePairs removes the two oldest entries while at least two remain.
func (q *Queue) DequeuePairs() []Pair {
	var pairs []Pair
	for len(q.entries) >= 2 {
		pairs = append(pairs, Pair{First: q.entries[0], Second: q.entries[1]})
		q.entries = q.entries[2:]
	}
	if len(q.entries) == 0 {
		q.entries = []Entry{}
	}
	return pairs
}

// Cancel removes every entry bound to connID and reports whether any was found.
func (q *Queue) Cancel(connID string) bool {
	return q.removeWhere(func(x Entry) bool { return x.ConnID == connID }) > 0
}

// Contains reports whether identity is waiting.
func (q *Queue) Contains(identity string) bool {
	for _, e := range q.entries {
		if e.Identity == identity {
			return true
		}
	}
	return false
}

func (q *Queue) Len() int { return len(q.entries) }

// Snapshot returns a copy of the waiting list, oldest first.
func (q *Queue) Snapshot() []Entry {
	return append([]Entry(nil), q.entries...)
}

func (q *Queue) removeWhere(match func(Entry) bool) int {
	kept := q.entries[:0]
	removed := 0
	for _, e := range q.entries {
		if match(e) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	q.entries = kept
	return removed
}
