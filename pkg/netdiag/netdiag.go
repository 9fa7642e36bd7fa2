// Package netdiag carries network and socket diagnostics from the transport
// layer to the log. Transports publish raw events into a Feed; the Source
// adapter classifies them into log records for the aggregator.
package netdiag

import (
	"context"
	"fmt"

	"github.com/apdulab/apdulab/pkg/aggregate"
	"github.com/apdulab/apdulab/pkg/logstore"
)

// Raw event types published by the transport layer.
const (
	TypeWarning              = "warning"
	TypeSocketOpened         = "socket-opened"
	TypeSocketClosed         = "socket-closed"
	TypeSocketMessageWarning = "socket-message-warning"
	TypeSocketMessageError   = "socket-message-error"
	TypeSocketError          = "socket-error"
)

// Event is a raw network diagnostics event.
type Event struct {
	Type    string
	Message string
	URL     string
}

// Feed is a publish-only fan-in of raw events. The zero value is not ready;
// use NewFeed. Publishing never blocks; events are dropped if the buffer is
// full so a stalled consumer cannot stall transport I/O.
type Feed struct {
	ch chan Event
}

// NewFeed creates a feed with the given buffer size (zero selects a default).
func NewFeed(bufSize int) *Feed {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &Feed{ch: make(chan Event, bufSize)}
}

// Publish queues a raw event for classification.
func (f *Feed) Publish(ev Event) {
	select {
	case f.ch <- ev:
	default:
	}
}

// Source adapts a Feed into an aggregator source.
type Source struct {
	feed *Feed
}

// NewSource wraps the feed for the aggregator.
func NewSource(feed *Feed) *Source {
	return &Source{feed: feed}
}

func (s *Source) Name() string { return "network" }

// Run classifies raw events until ctx is done.
func (s *Source) Run(ctx context.Context, emit aggregate.Sink) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.feed.ch:
			emit(Classify(ev))
		}
	}
}

// Classify maps a raw network event onto a log record. Unrecognized types are
// forwarded as verbose with a synthesized description rather than dropped.
func Classify(ev Event) aggregate.Record {
	switch ev.Type {
	case TypeWarning:
		return aggregate.Record{Kind: logstore.KindWarn, Text: ev.Message}
	case TypeSocketOpened:
		return aggregate.Record{Kind: logstore.KindVerbose, Text: "WS opened " + ev.URL}
	case TypeSocketClosed:
		return aggregate.Record{Kind: logstore.KindVerbose, Text: "WS closed"}
	case TypeSocketMessageWarning, TypeSocketMessageError, TypeSocketError:
		return aggregate.Record{Kind: logstore.KindError, Text: fmt.Sprintf("%s %s", ev.Type, ev.Message)}
	default:
		text := "network: " + ev.Type
		if ev.Message != "" {
			text += ": " + ev.Message
		}
		return aggregate.Record{Kind: logstore.KindVerbose, Text: text}
	}
}
