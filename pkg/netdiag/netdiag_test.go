package netdiag

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apdulab/apdulab/pkg/aggregate"
	"github.com/apdulab/apdulab/pkg/logstore"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		ev       Event
		wantKind logstore.Kind
		wantText string
	}{
		{
			name:     "warning",
			ev:       Event{Type: TypeWarning, Message: "weak signal"},
			wantKind: logstore.KindWarn,
			wantText: "weak signal",
		},
		{
			name:     "socket opened",
			ev:       Event{Type: TypeSocketOpened, URL: "ws://localhost:8435/usb"},
			wantKind: logstore.KindVerbose,
			wantText: "WS opened ws://localhost:8435/usb",
		},
		{
			name:     "socket closed",
			ev:       Event{Type: TypeSocketClosed},
			wantKind: logstore.KindVerbose,
			wantText: "WS closed",
		},
		{
			name:     "socket message warning",
			ev:       Event{Type: TypeSocketMessageWarning, Message: "bad frame"},
			wantKind: logstore.KindError,
			wantText: "socket-message-warning bad frame",
		},
		{
			name:     "socket message error",
			ev:       Event{Type: TypeSocketMessageError, Message: "decode failed"},
			wantKind: logstore.KindError,
			wantText: "socket-message-error decode failed",
		},
		{
			name:     "socket error",
			ev:       Event{Type: TypeSocketError, Message: "EOF"},
			wantKind: logstore.KindError,
			wantText: "socket-error EOF",
		},
		{
			name:     "unknown with message",
			ev:       Event{Type: "handshake", Message: "v2"},
			wantKind: logstore.KindVerbose,
			wantText: "network: handshake: v2",
		},
		{
			name:     "unknown without message",
			ev:       Event{Type: "handshake"},
			wantKind: logstore.KindVerbose,
			wantText: "network: handshake",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Classify(tt.ev)
			assert.Equal(t, tt.wantKind, rec.Kind)
			assert.Equal(t, tt.wantText, rec.Text)
		})
	}
}

func TestSource_RunForwardsInOrder(t *testing.T) {
	feed := NewFeed(16)
	src := NewSource(feed)

	var got []aggregate.Record
	done := make(chan struct{})
	recv := make(chan aggregate.Record, 16)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer close(done)
		_ = src.Run(ctx, func(r aggregate.Record) { recv <- r })
	}()

	feed.Publish(Event{Type: TypeSocketOpened, URL: "ws://x"})
	feed.Publish(Event{Type: TypeWarning, Message: "w"})
	feed.Publish(Event{Type: TypeSocketClosed})

	for len(got) < 3 {
		select {
		case r := <-recv:
			got = append(got, r)
		case <-time.After(time.Second):
			t.Fatal("source did not forward events")
		}
	}

	cancel()
	<-done

	require.Len(t, got, 3)
	assert.Equal(t, "WS opened ws://x", got[0].Text)
	assert.Equal(t, "w", got[1].Text)
	assert.Equal(t, "WS closed", got[2].Text)
}

func TestFeed_PublishNeverBlocks(t *testing.T) {
	feed := NewFeed(1)

	// No consumer: second publish overflows the buffer and is dropped.
	feed.Publish(Event{Type: TypeWarning, Message: "one"})
	feed.Publish(Event{Type: TypeWarning, Message: "two"})
}
