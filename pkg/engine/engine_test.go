package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apdulab/apdulab/pkg/aggregate"
	"github.com/apdulab/apdulab/pkg/logstore"
)

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.Buffer = -1

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewAssemblesEngine(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e, err := New(ctx, DefaultConfig())
	require.NoError(t, err)
	defer e.Close()

	assert.NotNil(t, e.Store())
	assert.NotNil(t, e.Bus())
	assert.NotNil(t, e.Session())
	assert.NotNil(t, e.Dispatcher())
	require.NotNil(t, e.Catalog())
	assert.NotEmpty(t, e.Catalog().Commands())

	state, active := e.Session().State()
	assert.Equal(t, StateNoTransport, state)
	assert.Nil(t, active)
}

func TestEngineSinkFlowsIntoStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e, err := New(ctx, DefaultConfig())
	require.NoError(t, err)
	defer e.Close()

	e.Sink()(aggregate.Record{Kind: logstore.KindAnnouncement, Text: "hello"})

	waitCtx, waitCancel := context.WithTimeout(ctx, 2*time.Second)
	defer waitCancel()
	n, err := e.Store().Wait(waitCtx, 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, 1)

	entries := e.Store().Entries()
	assert.Equal(t, "hello", entries[len(entries)-1].Text)
}

func TestEngineCloseIsIdempotent(t *testing.T) {
	e, err := New(context.Background(), DefaultConfig())
	require.NoError(t, err)

	e.Close()
	e.Close()
}
