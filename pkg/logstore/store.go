// Package logstore holds the append-only ordered log of everything the console
// observed: protocol exchanges, raw frames, network diagnostics, user actions
// and errors. Entry ids come from a process-wide monotonic sequence that is
// never reset, so a cleared store never aliases old references.
package logstore

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// seq is the process-wide entry id sequence. It is only advanced through
// Store.Append and survives Clear, keeping ids unique for the process lifetime.
var seq atomic.Uint64

// Store is an append-only ordered sequence of log entries. The zero value is
// ready to use. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	once    sync.Once
	signal  chan struct{}
	entries []Entry
}

func (s *Store) init() {
	s.once.Do(func() {
		s.signal = make(chan struct{})
	})
}

// Append assigns the next id and inserts the entry at the tail.
// It returns the stored entry.
func (s *Store) Append(kind Kind, text string, attachment any) Entry {
	s.init()
	s.mu.Lock()
	defer s.mu.Unlock()

	e := Entry{
		ID:         seq.Add(1),
		Time:       time.Now(),
		Kind:       kind,
		Text:       text,
		Attachment: attachment,
	}
	s.entries = append(s.entries, e)
	s.broadcast()

	return e
}

// Clear empties the visible sequence. The id sequence is not reset; the next
// appended entry's id is strictly greater than any previously issued id.
func (s *Store) Clear() {
	s.init()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	s.broadcast()
}

// broadcast wakes goroutines blocked in Wait. Caller must hold mu.
func (s *Store) broadcast() {
	close(s.signal)
	s.signal = make(chan struct{})
}

// Len returns the number of entries currently visible.
func (s *Store) Len() int {
	s.init()
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// Entries returns a snapshot copy of the current ordered sequence.
func (s *Store) Entries() []Entry {
	s.init()
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := make([]Entry, len(s.entries))
	copy(cp, s.entries)

	return cp
}

// Since returns a copy of the entries after the given cursor (a previously
// observed Len). It returns nil when the cursor is at or past the tail, which
// also covers the store having been cleared since the cursor was taken.
func (s *Store) Since(cursor int) []Entry {
	s.init()
	s.mu.RLock()
	defer s.mu.RUnlock()

	if cursor < 0 {
		cursor = 0
	}
	if cursor >= len(s.entries) {
		return nil
	}

	cp := make([]Entry, len(s.entries)-cursor)
	copy(cp, s.entries[cursor:])

	return cp
}

// Wait blocks until the visible length differs from cursor or ctx is done.
// It returns the current length; a returned length smaller than cursor means
// the store was cleared and the caller should rebuild from Entries.
func (s *Store) Wait(ctx context.Context, cursor int) (int, error) {
	s.init()

	for {
		s.mu.RLock()
		n := len(s.entries)
		sig := s.signal
		s.mu.RUnlock()

		if n != cursor {
			return n, nil
		}

		select {
		case <-ctx.Done():
			return n, ctx.Err()
		case <-sig:
		}
	}
}
