package main

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/apdulab/apdulab/pkg/engine"
	"github.com/apdulab/apdulab/pkg/logstore"
)

// logEntriesMsg delivers new log entries from the bridge goroutine.
type logEntriesMsg struct {
	entries []logstore.Entry
}

// logResetMsg signals that the log store was cleared.
type logResetMsg struct{}

// engineEventMsg delivers a state-change notification from the bridge
// goroutine.
type engineEventMsg struct {
	event engine.Event
}

// programReadyMsg passes the *tea.Program to the model so it can start bridge
// goroutines.
type programReadyMsg struct {
	program *tea.Program
}

// transportChosenMsg carries the kind picked in the transport picker.
type transportChosenMsg struct {
	kind string
}

// openDoneMsg is returned by the tea.Cmd that calls session.Open.
type openDoneMsg struct {
	err error
}

// formDoneMsg signals that the parameter form was completed or aborted.
type formDoneMsg struct {
	aborted bool
}

// tickMsg drives the execution spinner animation.
type tickMsg time.Time
