package engine

import (
	"sync"
	"time"
)

// EventKind identifies the type of state-change notification. The Bus only
// carries state changes for the rendering boundary; log content always goes
// through the aggregator so the log keeps a single total order.
type EventKind string

const (
	EventSessionChanged   EventKind = "session_changed"
	EventCommandSelected  EventKind = "command_selected"
	EventDepResolved      EventKind = "dep_resolved"
	EventDepsReady        EventKind = "deps_ready"
	EventDepsFailed       EventKind = "deps_failed"
	EventExecutionStarted EventKind = "execution_started"
	EventExecutionEnded   EventKind = "execution_ended"
)

// Event is an immutable state-change notification.
type Event struct {
	Kind      EventKind
	Timestamp time.Time
	Data      any
}

// Subscription receives events from a Bus.
type Subscription struct {
	C  <-chan Event
	ch chan Event
}

// Bus fans out events to all active subscribers. It is safe for concurrent
// use.
type Bus struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// NewBus creates a Bus ready for use.
func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscribe creates a new subscription with the given channel buffer size.
// The caller should read from sub.C and eventually call Unsubscribe.
func (b *Bus) Subscribe(bufSize int) *Subscription {
	ch := make(chan Event, bufSize)
	sub := &Subscription{C: ch, ch: ch}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

// Unsubscribe removes the subscription and closes its channel.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.ch)
	}
}

// Publish sends an event to all subscribers. If a subscriber's buffer is full
// the event is dropped for that subscriber so a slow consumer cannot stall
// the session or the dispatcher.
func (b *Bus) Publish(kind EventKind, data any) {
	e := Event{Kind: kind, Timestamp: time.Now(), Data: data}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		select {
		case sub.ch <- e:
		default:
		}
	}
}
