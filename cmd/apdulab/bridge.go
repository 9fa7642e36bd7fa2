package main

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/apdulab/apdulab/pkg/engine"
	"github.com/apdulab/apdulab/pkg/logstore"
)

// startBridge launches the log watcher and event watcher goroutines.
// Both goroutines only call p.Send() — they never touch model state directly.
// Returns a cancel function that cancels the bridge context and waits for
// both goroutines to exit, ensuring no stale messages are sent after return.
func startBridge(ctx context.Context, p *tea.Program, store *logstore.Store, bus *engine.Bus) context.CancelFunc {
	bridgeCtx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	sub := bus.Subscribe(64)

	// Event watcher: converts engine notifications to bubbletea messages.
	wg.Go(func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-bridgeCtx.Done():
				return
			case ev, ok := <-sub.C:
				if !ok {
					return
				}
				p.Send(engineEventMsg{event: ev})
			}
		}
	})

	// Log watcher: detects new entries via Wait/Since and forwards them.
	wg.Go(func() {
		cursor := 0
		for {
			n, err := store.Wait(bridgeCtx, cursor)

			if n < cursor {
				// The store shrank: the log was cleared.
				p.Send(logResetMsg{})
				cursor = 0
			}

			// Always drain pending entries even when the context is
			// cancelled.
			entries := store.Since(cursor)
			if len(entries) > 0 {
				p.Send(logEntriesMsg{entries: entries})
				cursor += len(entries)
			}

			if err != nil {
				return
			}
		}
	})

	return func() {
		cancel()
		wg.Wait()
	}
}
