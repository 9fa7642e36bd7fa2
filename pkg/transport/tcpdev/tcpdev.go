// Package tcpdev opens device connections over plain TCP, the path used for
// local emulators. Frames are length-prefixed: a 4-byte big-endian payload
// size on both directions. Protocol traffic is published to the device log
// feed.
package tcpdev

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/apdulab/apdulab/pkg/devlog"
	"github.com/apdulab/apdulab/pkg/transport"
)

// maxFrame bounds a single reply so a corrupt length prefix cannot force a
// huge allocation.
const maxFrame = 1 << 20

// Factory opens handles for the tcp kind.
func Factory(ctx context.Context, cfg transport.Config) (transport.Handle, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("no tcp address configured")
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Addr, err)
	}

	h := &handle{
		id:      uuid.NewString(),
		conn:    conn,
		dev:     cfg.DevLog,
		done:    make(chan struct{}),
		replies: make(chan []byte, 8),
	}
	go h.readPump()

	return h, nil
}

type handle struct {
	transport.Disconnect

	id   string
	conn net.Conn
	dev  *devlog.Feed

	local   atomic.Bool
	done    chan struct{}
	replies chan []byte

	mu sync.Mutex // serializes Exchange
}

func (h *handle) ID() string { return h.id }

func (h *handle) Kind() transport.Kind { return transport.KindTCP }

func (h *handle) readPump() {
	defer close(h.done)

	for {
		frame, err := readFrame(h.conn)
		if err != nil {
			if !h.local.Load() {
				msg := "connection closed by peer"
				if err != io.EOF {
					msg = err.Error()
				}
				h.publish(devlog.Event{Type: devlog.TypeVerbose, Message: msg})
				h.Fire()
			}
			return
		}

		h.publish(devlog.Event{
			Type:    devlog.TypeFrameIn,
			Message: "<= " + hex.EncodeToString(frame),
			Data:    frame,
		})
		select {
		case h.replies <- frame:
		default:
		}
	}
}

func (h *handle) Exchange(ctx context.Context, apdu []byte) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.publish(devlog.Event{
		Type:    devlog.TypeAPDU,
		Message: "=> " + hex.EncodeToString(apdu),
		Data:    append([]byte(nil), apdu...),
	})

	if err := writeFrame(h.conn, apdu); err != nil {
		return nil, &transport.ExchangeError{Op: "exchange", Err: err}
	}

	select {
	case reply := <-h.replies:
		h.publish(devlog.Event{
			Type:    devlog.TypeAPDU,
			Message: "<= " + hex.EncodeToString(reply),
			Data:    append([]byte(nil), reply...),
		})
		return reply, nil
	case <-h.done:
		return nil, &transport.ExchangeError{Op: "exchange", Err: fmt.Errorf("connection lost")}
	case <-ctx.Done():
		return nil, &transport.ExchangeError{Op: "exchange", Err: ctx.Err()}
	}
}

func (h *handle) Close(ctx context.Context) error {
	h.local.Store(true)

	err := h.conn.Close()

	select {
	case <-h.done:
	case <-ctx.Done():
	}

	if err != nil {
		return &transport.ExchangeError{Op: "close", Err: err}
	}
	return nil
}

func (h *handle) publish(ev devlog.Event) {
	if h.dev != nil {
		h.dev.Publish(ev)
	}
}

func writeFrame(w io.Writer, payload []byte) error {
	var size [4]byte
	binary.BigEndian.PutUint32(size[:], uint32(len(payload)))
	if _, err := w.Write(size[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	var size [4]byte
	if _, err := io.ReadFull(r, size[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(size[:])
	if n > maxFrame {
		return nil, fmt.Errorf("frame too large: %d bytes", n)
	}
	frame := make([]byte, n)
	if _, err := io.ReadFull(r, frame); err != nil {
		return nil, err
	}
	return frame, nil
}
