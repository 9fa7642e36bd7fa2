// Package engine is the composition root of the debugging console. It
// assembles the log store, the event aggregator with its two always-on
// diagnostics sources, the transport session and the command dispatcher from
// configuration, and exposes them through a frontend-agnostic API. Frontends
// interact with Engine, TransportSession and CommandDispatcher, observe state
// changes through the Bus, and read log content only from the store.
package engine
