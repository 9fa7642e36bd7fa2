package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/apdulab/apdulab/pkg/aggregate"
	"github.com/apdulab/apdulab/pkg/catalog"
	"github.com/apdulab/apdulab/pkg/logstore"
	"github.com/apdulab/apdulab/pkg/transport"
)

// DependencyResolutionError aggregates a failed dependency resolution. The
// whole bag is discarded: the command stays selected but is not executable
// until re-selected.
type DependencyResolutionError struct {
	Command string
	Key     string
	Err     error
}

func (e *DependencyResolutionError) Error() string {
	return fmt.Sprintf("resolving %s dependency %q: %v", e.Command, e.Key, e.Err)
}

func (e *DependencyResolutionError) Unwrap() error { return e.Err }

// DepStatus is the Bus payload for per-dependency progress notifications.
// These are rendering hints only; the dependency bag itself is all-or-nothing.
type DepStatus struct {
	Command string
	Key     string
}

// ExecutionResult is the Bus payload published when an execution ends.
type ExecutionResult struct {
	Command   string
	Err       error
	Cancelled bool
	Elapsed   time.Duration
}

// CommandDispatcher resolves a selected command's dependencies and tracks the
// single cancellable execution. At most one execution is running system-wide;
// starting another while running is refused.
type CommandDispatcher struct {
	session *TransportSession
	sink    aggregate.Sink
	bus     *Bus

	mu     sync.Mutex
	cmd    *catalog.Command
	values catalog.Values
	deps   catalog.Bag
	depGen uint64

	running   bool
	cancelRun context.CancelFunc
	runGen    uint64
	started   time.Time
}

func newCommandDispatcher(session *TransportSession, sink aggregate.Sink, bus *Bus) *CommandDispatcher {
	return &CommandDispatcher{
		session: session,
		sink:    sink,
		bus:     bus,
	}
}

// Selected returns the currently selected command, if any.
func (d *CommandDispatcher) Selected() (catalog.Command, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cmd == nil {
		return catalog.Command{}, false
	}
	return *d.cmd, true
}

// Values returns a copy of the current form values.
func (d *CommandDispatcher) Values() catalog.Values {
	d.mu.Lock()
	defer d.mu.Unlock()

	cp := make(catalog.Values, len(d.values))
	copy(cp, d.values)

	return cp
}

// SetValues replaces the form values for the selected command.
func (d *CommandDispatcher) SetValues(values catalog.Values) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.values = append(catalog.Values(nil), values...)
}

// Deps returns the resolved dependency bag, or nil while unresolved.
func (d *CommandDispatcher) Deps() catalog.Bag {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.deps
}

// Running reports whether an execution is in flight.
func (d *CommandDispatcher) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.running
}

// Select picks a command for execution. It is only valid with an active
// transport; it resets the dependency bag, installs the form defaults and
// resolves the command's dependencies asynchronously against the active
// handle. Resolution is all-or-nothing: any resolver failure discards every
// value and surfaces one aggregate error entry.
func (d *CommandDispatcher) Select(ctx context.Context, cmd catalog.Command) error {
	h := d.session.Active()
	if h == nil {
		return fmt.Errorf("dispatch: no active transport")
	}

	d.mu.Lock()
	d.cmd = &cmd
	d.values = cmd.DefaultValues()
	d.deps = nil
	d.depGen++
	gen := d.depGen
	d.mu.Unlock()

	d.bus.Publish(EventCommandSelected, cmd.ID)

	if len(cmd.Deps) == 0 {
		d.mu.Lock()
		if gen == d.depGen {
			d.deps = catalog.Bag{}
		}
		d.mu.Unlock()
		d.bus.Publish(EventDepsReady, cmd.ID)
		return nil
	}

	go d.resolve(ctx, cmd, h, gen)

	return nil
}

// resolve populates the dependency bag in a deterministic key order. The bag
// is installed atomically on full success; a stale generation (the command
// was re-selected meanwhile) discards the result.
func (d *CommandDispatcher) resolve(ctx context.Context, cmd catalog.Command, h transport.Handle, gen uint64) {
	keys := make([]string, 0, len(cmd.Deps))
	for k := range cmd.Deps {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	bag := make(catalog.Bag, len(keys))
	for _, key := range keys {
		v, err := cmd.Deps[key](ctx, cmd, h)
		if err != nil {
			resErr := &DependencyResolutionError{Command: cmd.ID, Key: key, Err: err}
			d.sink(aggregate.Record{Kind: logstore.KindError, Text: resErr.Error()})
			d.bus.Publish(EventDepsFailed, resErr)
			return
		}
		bag[key] = v
		d.bus.Publish(EventDepResolved, DepStatus{Command: cmd.ID, Key: key})
	}

	d.mu.Lock()
	if gen != d.depGen {
		d.mu.Unlock()
		return
	}
	d.deps = bag
	d.mu.Unlock()

	d.bus.Publish(EventDepsReady, cmd.ID)
}

// Execute runs the selected command against the active transport, streaming
// intermediate results into the log. It is refused while another execution is
// running, without an active transport, or before the dependency bag
// resolved.
func (d *CommandDispatcher) Execute(ctx context.Context) error {
	h := d.session.Active()

	d.mu.Lock()
	switch {
	case d.running:
		d.mu.Unlock()
		return fmt.Errorf("dispatch: an execution is already running")
	case d.cmd == nil:
		d.mu.Unlock()
		return fmt.Errorf("dispatch: no command selected")
	case h == nil:
		d.mu.Unlock()
		return fmt.Errorf("dispatch: no active transport")
	case d.deps == nil:
		d.mu.Unlock()
		return fmt.Errorf("dispatch: dependencies not resolved")
	}

	cmd := *d.cmd
	req := catalog.Request{
		Handle: h,
		Values: append(catalog.Values(nil), d.values...),
		Deps:   d.deps,
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.running = true
	d.cancelRun = cancel
	d.runGen++
	gen := d.runGen
	started := time.Now()
	d.started = started
	d.mu.Unlock()

	d.bus.Publish(EventExecutionStarted, cmd.ID)

	// One invocation entry, then one entry per positional value.
	d.sink(aggregate.Record{Kind: logstore.KindCommand, Text: cmd.Label})
	for _, v := range req.Values {
		d.sink(aggregate.Record{Kind: logstore.KindCommand, Text: v})
	}

	go func() {
		err := cmd.Run(runCtx, req, func(r catalog.Result) {
			d.sink(aggregate.Record{Kind: logstore.KindCommand, Text: r.Text, Attachment: r.Data})
		})
		d.finish(cmd, gen, started, err)
	}()

	return nil
}

// finish records the execution outcome and returns the dispatcher to idle.
// A cancelled execution ends silently: no completion entry, already-streamed
// results stay in the log.
func (d *CommandDispatcher) finish(cmd catalog.Command, gen uint64, started time.Time, err error) {
	d.mu.Lock()
	if gen != d.runGen {
		// Cancel already returned the dispatcher to idle.
		d.mu.Unlock()
		return
	}
	d.running = false
	d.cancelRun = nil
	d.mu.Unlock()

	elapsed := time.Since(started)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			d.bus.Publish(EventExecutionEnded, ExecutionResult{Command: cmd.ID, Cancelled: true, Elapsed: elapsed})
			return
		}
		d.sink(aggregate.Record{Kind: logstore.KindError, Text: err.Error()})
		d.bus.Publish(EventExecutionEnded, ExecutionResult{Command: cmd.ID, Err: err, Elapsed: elapsed})
		return
	}

	d.sink(aggregate.Record{
		Kind: logstore.KindCommand,
		Text: fmt.Sprintf("%s completed in %s.", cmd.Label, FormatElapsed(elapsed)),
	})
	d.bus.Publish(EventExecutionEnded, ExecutionResult{Command: cmd.ID, Elapsed: elapsed})
}

// Cancel stops the in-flight execution and returns to idle. The cancel is
// silent: no log entry is appended, results streamed so far remain.
func (d *CommandDispatcher) Cancel() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("dispatch: no execution to cancel")
	}

	cancel := d.cancelRun
	var cmdID string
	if d.cmd != nil {
		cmdID = d.cmd.ID
	}
	elapsed := time.Since(d.started)
	d.running = false
	d.cancelRun = nil
	d.runGen++
	d.mu.Unlock()

	cancel()
	d.bus.Publish(EventExecutionEnded, ExecutionResult{Command: cmdID, Cancelled: true, Elapsed: elapsed})

	return nil
}

// FormatElapsed renders a wall-clock duration as milliseconds below one
// second and seconds with one decimal at or above it.
func FormatElapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
