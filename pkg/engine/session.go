package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/apdulab/apdulab/pkg/aggregate"
	"github.com/apdulab/apdulab/pkg/logstore"
	"github.com/apdulab/apdulab/pkg/transport"
)

// SessionState is the transport session's lifecycle state.
type SessionState int

const (
	StateNoTransport SessionState = iota
	StateOpening
	StateActive
)

func (s SessionState) String() string {
	switch s {
	case StateNoTransport:
		return "no transport"
	case StateOpening:
		return "opening"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// TransportSession owns the lifecycle of the one active transport plus the
// set of backgrounded transports. A handle is a member of at most one of
// {active, backgrounded} at any instant; a handle leaving active is either
// backgrounded (Leave) or closed (CloseActive), never silently dropped.
type TransportSession struct {
	mu         sync.Mutex
	state      SessionState
	active     transport.Handle
	background []transport.Handle

	sink   aggregate.Sink
	bus    *Bus
	cfgFor func(transport.Kind) transport.Config
}

func newTransportSession(sink aggregate.Sink, bus *Bus, cfgFor func(transport.Kind) transport.Config) *TransportSession {
	return &TransportSession{
		sink:   sink,
		bus:    bus,
		cfgFor: cfgFor,
	}
}

// State returns the current lifecycle state and the active handle, if any.
func (s *TransportSession) State() (SessionState, transport.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state, s.active
}

// Active returns the active handle, or nil.
func (s *TransportSession) Active() transport.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.active
}

// Backgrounded returns a copy of the backgrounded handles in the order they
// were left.
func (s *TransportSession) Backgrounded() []transport.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]transport.Handle, len(s.background))
	copy(cp, s.background)

	return cp
}

// Open opens a transport of the given kind and makes it active. An open
// failure is terminal for the attempt: the state returns to no-transport and
// the error surfaces as a log entry; the operator must re-issue the open.
func (s *TransportSession) Open(ctx context.Context, kind transport.Kind) error {
	s.mu.Lock()
	if s.state != StateNoTransport {
		s.mu.Unlock()
		return fmt.Errorf("session: cannot open while %s", s.state)
	}
	s.state = StateOpening
	s.mu.Unlock()
	s.bus.Publish(EventSessionChanged, nil)

	h, err := transport.Open(ctx, kind, s.cfgFor(kind))

	s.mu.Lock()
	if err != nil {
		s.state = StateNoTransport
		s.mu.Unlock()
		s.sink(aggregate.Record{Kind: logstore.KindError, Text: err.Error()})
		s.bus.Publish(EventSessionChanged, nil)
		return err
	}

	s.state = StateActive
	s.active = h
	s.mu.Unlock()

	// The listener consults live membership at fire time, keyed by handle
	// identity: the handle may have moved between active and backgrounded
	// since registration.
	h.OnDisconnect(func() { s.handleDisconnect(h) })

	s.sink(aggregate.Record{
		Kind: logstore.KindAnnouncement,
		Text: fmt.Sprintf("opened %s transport", kind),
	})
	s.bus.Publish(EventSessionChanged, nil)

	return nil
}

// Leave moves the active handle into the backgrounded set, keeping it alive.
// Its disconnect listener stays attached.
func (s *TransportSession) Leave() error {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return fmt.Errorf("session: no active transport to leave")
	}

	h := s.active
	s.active = nil
	s.state = StateNoTransport
	s.background = append(s.background, h)
	s.mu.Unlock()

	s.sink(aggregate.Record{
		Kind: logstore.KindAnnouncement,
		Text: fmt.Sprintf("left %s session in background", h.Kind()),
	})
	s.bus.Publish(EventSessionChanged, nil)

	return nil
}

// CloseActive closes and discards the active handle. The handle is not
// backgrounded; close failures surface as log entries only.
func (s *TransportSession) CloseActive(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return fmt.Errorf("session: no active transport to close")
	}

	h := s.active
	s.active = nil
	s.state = StateNoTransport
	s.mu.Unlock()

	err := h.Close(ctx)
	if err != nil {
		s.sink(aggregate.Record{Kind: logstore.KindError, Text: err.Error()})
	} else {
		s.sink(aggregate.Record{
			Kind: logstore.KindAnnouncement,
			Text: fmt.Sprintf("closed %s transport", h.Kind()),
		})
	}
	s.bus.Publish(EventSessionChanged, nil)

	return err
}

// Reclaim makes the identified backgrounded handle active again. Reclaiming
// while another handle is active is refused: the previous active handle must
// be explicitly left or closed first, so it can never vanish silently.
func (s *TransportSession) Reclaim(id string) error {
	s.mu.Lock()
	if s.state != StateNoTransport {
		s.mu.Unlock()
		return fmt.Errorf("session: leave or close the current transport before reclaiming")
	}

	h, ok := s.removeBackground(id)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("session: no backgrounded transport %s", id)
	}

	s.active = h
	s.state = StateActive
	s.mu.Unlock()

	s.sink(aggregate.Record{
		Kind: logstore.KindAnnouncement,
		Text: fmt.Sprintf("reclaimed %s session", h.Kind()),
	})
	s.bus.Publish(EventSessionChanged, nil)

	return nil
}

// CloseBackground closes and removes the identified backgrounded handle,
// without touching the active one.
func (s *TransportSession) CloseBackground(ctx context.Context, id string) error {
	s.mu.Lock()
	h, ok := s.removeBackground(id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("session: no backgrounded transport %s", id)
	}

	err := h.Close(ctx)
	if err != nil {
		s.sink(aggregate.Record{Kind: logstore.KindError, Text: err.Error()})
	} else {
		s.sink(aggregate.Record{
			Kind: logstore.KindAnnouncement,
			Text: fmt.Sprintf("closed backgrounded %s transport", h.Kind()),
		})
	}
	s.bus.Publish(EventSessionChanged, nil)

	return err
}

// removeBackground removes and returns the backgrounded handle with the given
// id. Caller must hold mu.
func (s *TransportSession) removeBackground(id string) (transport.Handle, bool) {
	for i, h := range s.background {
		if h.ID() == id {
			s.background = append(s.background[:i], s.background[i+1:]...)
			return h, true
		}
	}
	return nil, false
}

// handleDisconnect reacts to a handle's one-shot disconnect notification. The
// handle is looked up by identity in the live state and removed from
// whichever of {active, backgrounded} currently holds it. A handle already
// closed and discarded is a no-op.
func (s *TransportSession) handleDisconnect(h transport.Handle) {
	s.mu.Lock()

	if s.active != nil && s.active.ID() == h.ID() {
		s.active = nil
		s.state = StateNoTransport
		s.mu.Unlock()

		s.sink(aggregate.Record{
			Kind: logstore.KindWarn,
			Text: fmt.Sprintf("%s device disconnected", h.Kind()),
		})
		s.bus.Publish(EventSessionChanged, nil)
		return
	}

	if _, ok := s.removeBackground(h.ID()); ok {
		s.mu.Unlock()

		s.sink(aggregate.Record{
			Kind: logstore.KindVerbose,
			Text: fmt.Sprintf("backgrounded %s device disconnected", h.Kind()),
		})
		s.bus.Publish(EventSessionChanged, nil)
		return
	}

	s.mu.Unlock()
}

// closeAll closes every handle the session still owns. Used at shutdown.
func (s *TransportSession) closeAll(ctx context.Context) {
	s.mu.Lock()
	handles := make([]transport.Handle, 0, len(s.background)+1)
	if s.active != nil {
		handles = append(handles, s.active)
		s.active = nil
		s.state = StateNoTransport
	}
	handles = append(handles, s.background...)
	s.background = nil
	s.mu.Unlock()

	for _, h := range handles {
		_ = h.Close(ctx)
	}
}
