package transport

import (
	"context"
	"fmt"
	"sync"
)

var (
	factoryMu sync.RWMutex
	factories = map[Kind]Factory{}
)

// Register installs a factory for the given kind, replacing any previous one.
// The engine registers the built-in providers at assembly time; tests register
// mocks the same way.
func Register(kind Kind, factory Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()

	factories[kind] = factory
}

// Open asynchronously yields a handle of the given kind, or an *OpenError.
func Open(ctx context.Context, kind Kind, cfg Config) (Handle, error) {
	factoryMu.RLock()
	factory, ok := factories[kind]
	factoryMu.RUnlock()

	if !ok {
		return nil, &OpenError{Kind: kind, Err: fmt.Errorf("unknown transport kind")}
	}

	h, err := factory(ctx, cfg)
	if err != nil {
		return nil, &OpenError{Kind: kind, Err: err}
	}

	return h, nil
}
