package tcpdev

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apdulab/apdulab/pkg/devlog"
	"github.com/apdulab/apdulab/pkg/transport"
)

// startEmulator accepts one connection and answers every frame with the
// payload plus a 9000 status word, then blocks until closeNow is closed.
func startEmulator(t *testing.T, closeNow chan struct{}) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go func() {
			<-closeNow
			_ = conn.Close()
		}()
		for {
			frame, err := readFrame(conn)
			if err != nil {
				return
			}
			reply := append(frame, 0x90, 0x00)
			if err := writeFrame(conn, reply); err != nil {
				return
			}
		}
	}()

	return ln.Addr().String()
}

func TestFactory_ExchangeRoundtrip(t *testing.T) {
	closeNow := make(chan struct{})
	defer close(closeNow)
	addr := startEmulator(t, closeNow)

	feed := devlog.NewFeed(64)
	h, err := Factory(context.Background(), transport.Config{Addr: addr, DevLog: feed})
	require.NoError(t, err)
	defer func() { _ = h.Close(context.Background()) }()

	assert.NotEmpty(t, h.ID())
	assert.Equal(t, transport.KindTCP, h.Kind())

	reply, err := h.Exchange(context.Background(), []byte{0xE0, 0x01, 0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xE0, 0x01, 0x00, 0x00, 0x90, 0x00}, reply)
}

func TestFactory_NoAddr(t *testing.T) {
	_, err := Factory(context.Background(), transport.Config{})
	assert.Error(t, err)
}

func TestHandle_DisconnectOnPeerClose(t *testing.T) {
	closeNow := make(chan struct{})
	addr := startEmulator(t, closeNow)

	h, err := Factory(context.Background(), transport.Config{Addr: addr})
	require.NoError(t, err)

	fired := make(chan struct{})
	h.OnDisconnect(func() { close(fired) })

	close(closeNow)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect notification never fired")
	}
}

func TestHandle_CloseDoesNotFireDisconnect(t *testing.T) {
	closeNow := make(chan struct{})
	defer close(closeNow)
	addr := startEmulator(t, closeNow)

	h, err := Factory(context.Background(), transport.Config{Addr: addr})
	require.NoError(t, err)

	fired := false
	h.OnDisconnect(func() { fired = true })

	require.NoError(t, h.Close(context.Background()))
	time.Sleep(50 * time.Millisecond)
	assert.False(t, fired, "a local close is not a disconnect")
}
