// Package devlog carries device-level protocol logs (APDU traces, raw frames,
// firmware chatter) from the transport layer to the log. Transports publish
// raw events into a Feed; the Source adapter classifies them for the
// aggregator. Unrecognized event types are promoted to a verbose catch-all so
// nothing the device said is lost.
package devlog

import (
	"context"

	"github.com/apdulab/apdulab/pkg/aggregate"
	"github.com/apdulab/apdulab/pkg/logstore"
)

// Raw event types published by the transport layer.
const (
	TypeAPDU     = "apdu"
	TypeFrameIn  = "frame-in"
	TypeFrameOut = "frame-out"
	TypeError    = "device-error"
	TypeVerbose  = "device-verbose"
)

// Event is a raw device-log event. Data carries the structured payload (for
// example the frame bytes) and ends up as the log entry attachment.
type Event struct {
	Type    string
	Message string
	Data    any
}

// Feed is a publish-only fan-in of raw events. Publishing never blocks;
// events are dropped if the buffer is full.
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

func (s *Source) Name() string { return "device" }

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

// Classify maps a raw device event onto a log record.
func Classify(ev Event) aggregate.Record {
	switch ev.Type {
	case TypeAPDU:
		return aggregate.Record{Kind: logstore.KindAPDU, Text: ev.Message, Attachment: ev.Data}
	case TypeFrameIn, TypeFrameOut:
		return aggregate.Record{Kind: logstore.KindBinary, Text: ev.Message, Attachment: ev.Data}
	case TypeError:
		return aggregate.Record{Kind: logstore.KindError, Text: ev.Message, Attachment: ev.Data}
	case TypeVerbose:
		return aggregate.Record{Kind: logstore.KindVerbose, Text: ev.Message, Attachment: ev.Data}
	default:
		text := "device: " + ev.Type
		if ev.Message != "" {
			text += ": " + ev.Message
		}
		return aggregate.Record{Kind: logstore.KindVerbose, Text: text, Attachment: ev.Data}
	}
}
