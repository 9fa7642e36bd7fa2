// Package transport defines the connection boundary to a physical or virtual
// device: an opaque Handle capability with exchange/close and a one-shot
// disconnect notification, plus a provider registry keyed by transport kind.
// Concrete providers live in subpackages and are registered by the engine.
package transport

import (
	"context"

	"github.com/apdulab/apdulab/pkg/devlog"
	"github.com/apdulab/apdulab/pkg/netdiag"
)

// Kind identifies a transport provider.
type Kind string

const (
	KindWebUSB Kind = "webusb"
	KindWebHID Kind = "webhid"
	KindWebBLE Kind = "webble"
	KindTCP    Kind = "tcp"
)

// Kinds lists every supported transport kind in display order.
var Kinds = []Kind{KindWebUSB, KindWebHID, KindWebBLE, KindTCP}

// Handle is an open, exclusively-owned connection to one device. A handle
// emits its disconnect notification at most once over its lifetime; listeners
// subscribed through OnDisconnect are detached when it fires.
type Handle interface {
	// ID identifies this handle for the whole process lifetime. Ownership
	// bookkeeping (active vs backgrounded) is keyed by it.
	ID() string
	Kind() Kind
	// Exchange sends one APDU and returns the device's reply.
	Exchange(ctx context.Context, apdu []byte) ([]byte, error)
	Close(ctx context.Context) error
	// OnDisconnect subscribes fn to the one-shot disconnect notification and
	// returns a function that removes the subscription.
	OnDisconnect(fn func()) (cancel func())
}

// Config carries provider settings and the diagnostics feeds a handle
// publishes into.
type Config struct {
	// ProxyURL is the WebSocket bridge endpoint for proxied kinds.
	ProxyURL string
	// Addr is the TCP address for the tcp kind.
	Addr string

	NetDiag *netdiag.Feed
	DevLog  *devlog.Feed
}

// Factory opens a handle of one kind.
type Factory func(ctx context.Context, cfg Config) (Handle, error)
