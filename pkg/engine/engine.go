package engine

import (
	"context"
	"sync"

	"github.com/apdulab/apdulab/pkg/aggregate"
	"github.com/apdulab/apdulab/pkg/catalog"
	"github.com/apdulab/apdulab/pkg/devlog"
	"github.com/apdulab/apdulab/pkg/logstore"
	"github.com/apdulab/apdulab/pkg/netdiag"
	"github.com/apdulab/apdulab/pkg/transport"
	"github.com/apdulab/apdulab/pkg/transport/tcpdev"
	"github.com/apdulab/apdulab/pkg/transport/wsproxy"
)

// Engine wires the log store, the aggregator with its two always-on
// diagnostics sources, the transport session, the command dispatcher and the
// command catalog.
type Engine struct {
	cfg     Config
	store   *logstore.Store
	bus     *Bus
	agg     *aggregate.Aggregator
	netFeed *netdiag.Feed
	devFeed *devlog.Feed
	session *TransportSession
	disp    *CommandDispatcher
	catalog *catalog.Catalog

	closed sync.Once
}

// New creates an Engine from the given configuration. The two background
// sources are subscribed and running before New returns, so no event
// preceding user interaction is lost.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:     cfg,
		store:   &logstore.Store{},
		bus:     NewBus(),
		netFeed: netdiag.NewFeed(cfg.Log.Buffer),
		devFeed: devlog.NewFeed(cfg.Log.Buffer),
		catalog: catalog.Default(),
	}

	e.agg = aggregate.New(e.store, cfg.Log.Buffer)
	e.agg.AddSource(netdiag.NewSource(e.netFeed))
	e.agg.AddSource(devlog.NewSource(e.devFeed))

	transport.Register(transport.KindWebUSB, wsproxy.Factory(transport.KindWebUSB))
	transport.Register(transport.KindWebHID, wsproxy.Factory(transport.KindWebHID))
	transport.Register(transport.KindWebBLE, wsproxy.Factory(transport.KindWebBLE))
	transport.Register(transport.KindTCP, tcpdev.Factory)

	e.session = newTransportSession(e.agg.Sink(), e.bus, e.transportConfig)
	e.disp = newCommandDispatcher(e.session, e.agg.Sink(), e.bus)

	e.agg.Start(ctx)

	return e, nil
}

// transportConfig binds a transport kind to its provider settings and the
// diagnostics feeds.
func (e *Engine) transportConfig(kind transport.Kind) transport.Config {
	cfg := transport.Config{
		Addr:    e.cfg.TCP.Addr,
		NetDiag: e.netFeed,
		DevLog:  e.devFeed,
	}

	switch kind {
	case transport.KindWebUSB:
		cfg.ProxyURL = e.cfg.Proxy.WebUSB
	case transport.KindWebHID:
		cfg.ProxyURL = e.cfg.Proxy.WebHID
	case transport.KindWebBLE:
		cfg.ProxyURL = e.cfg.Proxy.WebBLE
	}

	return cfg
}

// Store returns the log store.
func (e *Engine) Store() *logstore.Store { return e.store }

// Bus returns the state-change notification bus.
func (e *Engine) Bus() *Bus { return e.bus }

// Session returns the transport session.
func (e *Engine) Session() *TransportSession { return e.session }

// Dispatcher returns the command dispatcher.
func (e *Engine) Dispatcher() *CommandDispatcher { return e.disp }

// Catalog returns the command catalog.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// InitialFilter returns the configured starting log filter.
func (e *Engine) InitialFilter() logstore.Filter { return e.cfg.InitialFilter() }

// Sink returns the shared ordered log sink, for user-action entries.
func (e *Engine) Sink() aggregate.Sink { return e.agg.Sink() }

// Close closes every owned transport and tears down the aggregator's sources
// exactly once. Safe to call more than once.
func (e *Engine) Close() {
	e.closed.Do(func() {
		e.session.closeAll(context.Background())
		e.agg.Close()
	})
}
