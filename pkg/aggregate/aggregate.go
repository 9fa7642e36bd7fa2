// Package aggregate merges independently-timed event sources into one ordered
// stream of log records. Every producer, external sources and internal ones
// alike, pushes through the same Sink into a single channel; one consumer
// goroutine appends to the log store. Append order is therefore arrival order
// at the channel, with no second writer to race against.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/apdulab/apdulab/pkg/logstore"
)

// Record is a normalized log payload produced by a source's classifier.
type Record struct {
	Kind       logstore.Kind
	Text       string
	Attachment any
}

// Sink accepts a record for ordered appending. Sinks are safe for concurrent
// use; records pushed after the aggregator is closed are dropped.
type Sink func(Record)

// Source produces a lazy, unbounded sequence of classified records. Run must
// push every record through emit and return once ctx is done. Sources are
// subscribed exactly once for the process lifetime.
type Source interface {
	Name() string
	Run(ctx context.Context, emit Sink) error
}

// Aggregator owns the merge channel and its consumer. Create with New, add
// sources, then Start once. Close tears down every source exactly once.
type Aggregator struct {
	store   *logstore.Store
	in      chan Record
	sources []Source

	mu      sync.Mutex
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closed  sync.Once
}

// New creates an Aggregator feeding the given store. bufSize bounds the merge
// channel; zero selects a default.
func New(store *logstore.Store, bufSize int) *Aggregator {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &Aggregator{
		store: store,
		in:    make(chan Record, bufSize),
	}
}

// AddSource registers a source. Must be called before Start.
func (a *Aggregator) AddSource(src Source) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		panic("aggregate: AddSource after Start")
	}
	a.sources = append(a.sources, src)
}

// Start launches the consumer and one goroutine per source. It may be called
// once; the sources run until Close.
func (a *Aggregator) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return
	}
	a.started = true
	a.ctx, a.cancel = context.WithCancel(ctx)

	a.wg.Add(1)
	go a.consume()

	for _, src := range a.sources {
		a.wg.Add(1)
		go a.runSource(src)
	}
}

// Sink returns the shared ordered sink. Valid before Start for wiring, but
// records are only consumed after Start.
func (a *Aggregator) Sink() Sink {
	return func(r Record) {
		a.mu.Lock()
		ctx := a.ctx
		a.mu.Unlock()

		if ctx == nil {
			// Not started yet: buffer if there is room, drop otherwise.
			select {
			case a.in <- r:
			default:
			}
			return
		}

		select {
		case a.in <- r:
		case <-ctx.Done():
		}
	}
}

// Close stops every source and the consumer. Safe to call more than once;
// teardown happens exactly once.
func (a *Aggregator) Close() {
	a.closed.Do(func() {
		a.mu.Lock()
		cancel := a.cancel
		a.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		a.wg.Wait()
	})
}

// consume is the single log store writer.
func (a *Aggregator) consume() {
	defer a.wg.Done()

	for {
		select {
		case r := <-a.in:
			a.store.Append(r.Kind, r.Text, r.Attachment)
		case <-a.ctx.Done():
			// Drain whatever already arrived, then stop.
			for {
				select {
				case r := <-a.in:
					a.store.Append(r.Kind, r.Text, r.Attachment)
				default:
					return
				}
			}
		}
	}
}

func (a *Aggregator) runSource(src Source) {
	defer a.wg.Done()

	sink := a.Sink()
	if err := src.Run(a.ctx, sink); err != nil && !errors.Is(err, context.Canceled) {
		sink(Record{
			Kind: logstore.KindError,
			Text: fmt.Sprintf("source %s: %v", src.Name(), err),
		})
	}
}
