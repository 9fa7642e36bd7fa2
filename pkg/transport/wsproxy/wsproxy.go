// Package wsproxy opens device connections through a local WebSocket bridge,
// the path used for the webusb, webhid and webble kinds. APDUs travel as
// binary frames; text frames carry device chatter. Socket lifecycle is
// published to the network diagnostics feed, protocol traffic to the device
// log feed.
package wsproxy

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/apdulab/apdulab/pkg/devlog"
	"github.com/apdulab/apdulab/pkg/netdiag"
	"github.com/apdulab/apdulab/pkg/transport"
)

// Factory returns a transport factory for one proxied kind. The same bridge
// protocol serves all three kinds; only the endpoint differs.
func Factory(kind transport.Kind) transport.Factory {
	return func(ctx context.Context, cfg transport.Config) (transport.Handle, error) {
		return open(ctx, kind, cfg)
	}
}

type handle struct {
	transport.Disconnect

	id   string
	kind transport.Kind
	url  string
	conn *websocket.Conn
	net  *netdiag.Feed
	dev  *devlog.Feed

	local   atomic.Bool // set when Close initiated the shutdown
	done    chan struct{}
	replies chan []byte

	mu sync.Mutex // serializes Exchange
}

func open(ctx context.Context, kind transport.Kind, cfg transport.Config) (transport.Handle, error) {
	if cfg.ProxyURL == "" {
		return nil, fmt.Errorf("no proxy endpoint configured for %s", kind)
	}

	conn, _, err := websocket.Dial(ctx, cfg.ProxyURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.ProxyURL, err)
	}

	h := &handle{
		id:      uuid.NewString(),
		kind:    kind,
		url:     cfg.ProxyURL,
		conn:    conn,
		net:     cfg.NetDiag,
		dev:     cfg.DevLog,
		done:    make(chan struct{}),
		replies: make(chan []byte, 8),
	}

	h.publishNet(netdiag.Event{Type: netdiag.TypeSocketOpened, URL: cfg.ProxyURL})
	go h.readPump()

	return h, nil
}

func (h *handle) ID() string { return h.id }

func (h *handle) Kind() transport.Kind { return h.kind }

// readPump owns all reads. Binary frames are exchange replies; text frames
// are forwarded as device chatter. A read error ends the handle's life: the
// pump closes done and, unless Close initiated it, fires the disconnect
// notification.
func (h *handle) readPump() {
	defer close(h.done)

	for {
		typ, data, err := h.conn.Read(context.Background())
		if err != nil {
			if !h.local.Load() {
				h.publishNet(netdiag.Event{Type: netdiag.TypeSocketClosed})
				h.Fire()
			}
			return
		}

		switch typ {
		case websocket.MessageBinary:
			h.publishDev(devlog.Event{
				Type:    devlog.TypeFrameIn,
				Message: "<= " + hex.EncodeToString(data),
				Data:    append([]byte(nil), data...),
			})
			select {
			case h.replies <- data:
			default:
				h.publishNet(netdiag.Event{
					Type:    netdiag.TypeSocketMessageWarning,
					Message: "unsolicited frame dropped",
				})
			}
		case websocket.MessageText:
			h.publishDev(devlog.Event{Type: devlog.TypeVerbose, Message: string(data)})
		}
	}
}

func (h *handle) Exchange(ctx context.Context, apdu []byte) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.publishDev(devlog.Event{
		Type:    devlog.TypeAPDU,
		Message: "=> " + hex.EncodeToString(apdu),
		Data:    append([]byte(nil), apdu...),
	})

	if err := h.conn.Write(ctx, websocket.MessageBinary, apdu); err != nil {
		h.publishNet(netdiag.Event{Type: netdiag.TypeSocketError, Message: err.Error()})
		return nil, &transport.ExchangeError{Op: "exchange", Err: err}
	}

	select {
	case reply := <-h.replies:
		h.publishDev(devlog.Event{
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

	err := h.conn.Close(websocket.StatusNormalClosure, "client close")
	h.publishNet(netdiag.Event{Type: netdiag.TypeSocketClosed})

	select {
	case <-h.done:
	case <-ctx.Done():
	}

	if err != nil {
		return &transport.ExchangeError{Op: "close", Err: err}
	}
	return nil
}

func (h *handle) publishNet(ev netdiag.Event) {
	if h.net != nil {
		h.net.Publish(ev)
	}
}

func (h *handle) publishDev(ev devlog.Event) {
	if h.dev != nil {
		h.dev.Publish(ev)
	}
}
