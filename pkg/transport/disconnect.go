package transport

import "sync"

// Disconnect implements the one-shot disconnect notification shared by handle
// implementations; embed it and call Fire when the connection is lost. The
// zero value is ready to use.
type Disconnect struct {
	mu    sync.Mutex
	fired bool
	next  int
	subs  map[int]func()
}

// OnDisconnect subscribes fn and returns its unsubscribe function.
// Subscribing after the notification fired is a no-op.
func (d *Disconnect) OnDisconnect(fn func()) (cancel func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fired {
		return func() {}
	}
	if d.subs == nil {
		d.subs = make(map[int]func())
	}

	id := d.next
	d.next++
	d.subs[id] = fn

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.subs, id)
	}
}

// Fire delivers the notification exactly once and detaches every listener.
// Subsequent calls are no-ops.
func (d *Disconnect) Fire() {
	d.mu.Lock()
	if d.fired {
		d.mu.Unlock()
		return
	}
	d.fired = true
	subs := d.subs
	d.subs = nil
	d.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}
