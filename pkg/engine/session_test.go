package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apdulab/apdulab/pkg/aggregate"
	"github.com/apdulab/apdulab/pkg/logstore"
	"github.com/apdulab/apdulab/pkg/transport"
)

// mockHandle is an in-memory transport handle.
type mockHandle struct {
	transport.Disconnect
	id       string
	kind     transport.Kind
	closed   atomic.Bool
	exchange func(ctx context.Context, apdu []byte) ([]byte, error)
}

func (h *mockHandle) ID() string { return h.id }

func (h *mockHandle) Kind() transport.Kind { return h.kind }

func (h *mockHandle) Exchange(ctx context.Context, apdu []byte) ([]byte, error) {
	if h.exchange != nil {
		return h.exchange(ctx, apdu)
	}
	return append(append([]byte(nil), apdu...), 0x90, 0x00), nil
}

func (h *mockHandle) Close(context.Context) error {
	h.closed.Store(true)
	return nil
}

var mockSeq atomic.Int64

func newMockHandle(kind transport.Kind) *mockHandle {
	return &mockHandle{
		id:   fmt.Sprintf("mock-%d", mockSeq.Add(1)),
		kind: kind,
	}
}

// registerMock installs a factory yielding the given handle for its kind.
func registerMock(h *mockHandle) {
	transport.Register(h.kind, func(context.Context, transport.Config) (transport.Handle, error) {
		return h, nil
	})
}

// newTestSession wires a session to a store with a synchronous sink, so
// entries are visible as soon as the operation returns.
func newTestSession() (*TransportSession, *logstore.Store) {
	store := &logstore.Store{}
	sink := func(r aggregate.Record) { store.Append(r.Kind, r.Text, r.Attachment) }
	sess := newTransportSession(sink, NewBus(), func(transport.Kind) transport.Config {
		return transport.Config{}
	})
	return sess, store
}

func entryTexts(store *logstore.Store) []string {
	var out []string
	for _, e := range store.Entries() {
		out = append(out, e.Text)
	}
	return out
}

func TestSession_OpenLeaveReclaim(t *testing.T) {
	h := newMockHandle(transport.KindWebUSB)
	registerMock(h)
	sess, _ := newTestSession()

	require.NoError(t, sess.Open(context.Background(), transport.KindWebUSB))
	state, active := sess.State()
	assert.Equal(t, StateActive, state)
	assert.Equal(t, h.ID(), active.ID())
	assert.Empty(t, sess.Backgrounded())

	require.NoError(t, sess.Leave())
	state, active = sess.State()
	assert.Equal(t, StateNoTransport, state)
	assert.Nil(t, active)
	require.Len(t, sess.Backgrounded(), 1)
	assert.Equal(t, h.ID(), sess.Backgrounded()[0].ID())

	require.NoError(t, sess.Reclaim(h.ID()))
	state, active = sess.State()
	assert.Equal(t, StateActive, state)
	assert.Equal(t, h.ID(), active.ID())
	assert.Empty(t, sess.Backgrounded())
}

func TestSession_OpenFailureSurfacesAsEntry(t *testing.T) {
	kind := transport.Kind("webusb-failing")
	transport.Register(kind, func(context.Context, transport.Config) (transport.Handle, error) {
		return nil, fmt.Errorf("no device")
	})
	sess, store := newTestSession()

	err := sess.Open(context.Background(), kind)
	require.Error(t, err)

	state, _ := sess.State()
	assert.Equal(t, StateNoTransport, state)

	entries := store.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, logstore.KindError, entries[0].Kind)
	assert.Contains(t, entries[0].Text, "no device")
}

func TestSession_OpenWhileActiveRefused(t *testing.T) {
	h := newMockHandle(transport.KindWebUSB)
	registerMock(h)
	sess, _ := newTestSession()

	require.NoError(t, sess.Open(context.Background(), transport.KindWebUSB))
	assert.Error(t, sess.Open(context.Background(), transport.KindWebUSB))
}

func TestSession_CloseActiveDiscardsHandle(t *testing.T) {
	h := newMockHandle(transport.KindWebHID)
	registerMock(h)
	sess, _ := newTestSession()

	require.NoError(t, sess.Open(context.Background(), transport.KindWebHID))
	require.NoError(t, sess.CloseActive(context.Background()))

	state, _ := sess.State()
	assert.Equal(t, StateNoTransport, state)
	assert.Empty(t, sess.Backgrounded(), "a closed handle is discarded, not backgrounded")
	assert.True(t, h.closed.Load())
}

func TestSession_ReclaimWhileActiveRefused(t *testing.T) {
	first := newMockHandle(transport.KindWebUSB)
	registerMock(first)
	sess, _ := newTestSession()

	require.NoError(t, sess.Open(context.Background(), transport.KindWebUSB))
	require.NoError(t, sess.Leave())

	second := newMockHandle(transport.KindWebUSB)
	registerMock(second)
	require.NoError(t, sess.Open(context.Background(), transport.KindWebUSB))

	err := sess.Reclaim(first.ID())
	require.Error(t, err)

	// Neither handle vanished: second is active, first is still backgrounded.
	_, active := sess.State()
	assert.Equal(t, second.ID(), active.ID())
	require.Len(t, sess.Backgrounded(), 1)
	assert.Equal(t, first.ID(), sess.Backgrounded()[0].ID())
}

func TestSession_CloseBackground(t *testing.T) {
	h := newMockHandle(transport.KindWebUSB)
	registerMock(h)
	sess, _ := newTestSession()

	require.NoError(t, sess.Open(context.Background(), transport.KindWebUSB))
	require.NoError(t, sess.Leave())

	require.NoError(t, sess.CloseBackground(context.Background(), h.ID()))
	assert.Empty(t, sess.Backgrounded())
	assert.True(t, h.closed.Load())

	assert.Error(t, sess.CloseBackground(context.Background(), h.ID()))
}

func TestSession_DisconnectActiveHandle(t *testing.T) {
	h := newMockHandle(transport.KindWebUSB)
	registerMock(h)
	sess, store := newTestSession()

	require.NoError(t, sess.Open(context.Background(), transport.KindWebUSB))

	h.Fire()

	state, active := sess.State()
	assert.Equal(t, StateNoTransport, state)
	assert.Nil(t, active)
	assert.Contains(t, entryTexts(store), "webusb device disconnected")
}

func TestSession_DisconnectBackgroundedHandle(t *testing.T) {
	first := newMockHandle(transport.KindWebUSB)
	registerMock(first)
	sess, _ := newTestSession()

	require.NoError(t, sess.Open(context.Background(), transport.KindWebUSB))
	require.NoError(t, sess.Leave())

	second := newMockHandle(transport.KindWebUSB)
	registerMock(second)
	require.NoError(t, sess.Open(context.Background(), transport.KindWebUSB))

	// The listener registered while first was active must find it in the
	// backgrounded set at fire time.
	first.Fire()

	_, active := sess.State()
	require.NotNil(t, active)
	assert.Equal(t, second.ID(), active.ID(), "the active handle is unaffected")
	assert.Empty(t, sess.Backgrounded())
}

func TestSession_HandleNeverInBothSets(t *testing.T) {
	h := newMockHandle(transport.KindWebUSB)
	registerMock(h)
	sess, _ := newTestSession()

	checkInvariant := func() {
		_, active := sess.State()
		for _, b := range sess.Backgrounded() {
			if active != nil {
				assert.NotEqual(t, active.ID(), b.ID())
			}
		}
	}

	require.NoError(t, sess.Open(context.Background(), transport.KindWebUSB))
	checkInvariant()
	require.NoError(t, sess.Leave())
	checkInvariant()
	require.NoError(t, sess.Reclaim(h.ID()))
	checkInvariant()
}
