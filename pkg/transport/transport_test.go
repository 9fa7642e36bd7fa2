package transport

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandle struct {
	Disconnect
	id   string
	kind Kind
}

func (h *stubHandle) ID() string { return h.id }

func (h *stubHandle) Kind() Kind { return h.kind }

func (h *stubHandle) Exchange(_ context.Context, apdu []byte) ([]byte, error) {
	return apdu, nil
}

func (h *stubHandle) Close(context.Context) error { return nil }

func TestOpen_UnknownKind(t *testing.T) {
	_, err := Open(context.Background(), Kind("carrier-pigeon"), Config{})

	var oe *OpenError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, Kind("carrier-pigeon"), oe.Kind)
}

func TestOpen_FactoryErrorWrapped(t *testing.T) {
	Register(Kind("failing"), func(context.Context, Config) (Handle, error) {
		return nil, fmt.Errorf("device not present")
	})

	_, err := Open(context.Background(), Kind("failing"), Config{})

	var oe *OpenError
	require.ErrorAs(t, err, &oe)
	assert.Contains(t, oe.Error(), "device not present")
}

func TestOpen_Registered(t *testing.T) {
	Register(Kind("stub"), func(context.Context, Config) (Handle, error) {
		return &stubHandle{id: uuid.NewString(), kind: Kind("stub")}, nil
	})

	h, err := Open(context.Background(), Kind("stub"), Config{})
	require.NoError(t, err)
	assert.NotEmpty(t, h.ID())
	assert.Equal(t, Kind("stub"), h.Kind())
}

func TestDisconnect_FiresOnce(t *testing.T) {
	var d Disconnect

	calls := 0
	d.OnDisconnect(func() { calls++ })

	d.Fire()
	d.Fire()

	assert.Equal(t, 1, calls)
}

func TestDisconnect_CancelDetaches(t *testing.T) {
	var d Disconnect

	called := false
	cancel := d.OnDisconnect(func() { called = true })
	cancel()

	d.Fire()
	assert.False(t, called)
}

func TestDisconnect_SubscribeAfterFire(t *testing.T) {
	var d Disconnect

	d.Fire()

	called := false
	cancel := d.OnDisconnect(func() { called = true })
	cancel()

	assert.False(t, called, "the notification is one-shot per handle lifetime")
}
