package main

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/apdulab/apdulab/pkg/logstore"
)

// logViewModel renders the ordered event log inside a scrollable viewport,
// projected through the kind filter. It follows the tail unless the operator
// scrolled up.
type logViewModel struct {
	viewport viewport.Model
	entries  []logstore.Entry
	filter   logstore.Filter
	width    int
	height   int
	ready    bool
}

func newLogView(filter logstore.Filter) logViewModel {
	return logViewModel{filter: filter}
}

func (lv *logViewModel) setSize(width, height int) {
	lv.width = width
	lv.height = height
	if !lv.ready {
		lv.viewport = viewport.New(width, height)
		lv.ready = true
	} else {
		lv.viewport.Width = width
		lv.viewport.Height = height
	}
	lv.refresh()
}

// append adds new entries and keeps following the tail if it was at the
// bottom.
func (lv *logViewModel) append(entries []logstore.Entry) {
	follow := !lv.ready || lv.viewport.AtBottom()
	lv.entries = append(lv.entries, entries...)
	lv.refresh()
	if follow && lv.ready {
		lv.viewport.GotoBottom()
	}
}

// reset drops every entry, mirroring a cleared store.
func (lv *logViewModel) reset() {
	lv.entries = nil
	lv.refresh()
}

// toggleKind flips the visibility of one entry kind. The projection is pure:
// hidden entries reappear unchanged when the kind is re-enabled.
func (lv *logViewModel) toggleKind(k logstore.Kind) {
	lv.filter.Toggle(k)
	lv.refresh()
	if lv.ready {
		lv.viewport.GotoBottom()
	}
}

func (lv *logViewModel) refresh() {
	if !lv.ready {
		return
	}
	lv.viewport.SetContent(lv.renderEntries())
}

func (lv *logViewModel) renderEntries() string {
	var sb strings.Builder
	for _, e := range lv.filter.Apply(lv.entries) {
		sb.WriteString(lv.renderEntry(e))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (lv *logViewModel) renderEntry(e logstore.Entry) string {
	prefix := timestampStyle.Render(e.Time.Format("15:04:05.000")) + " " +
		kindStyle(e.Kind).Render(kindLabel(e.Kind)) + " "
	indent := strings.Repeat(" ", 17)

	textWidth := max(lv.width-17, 20)

	var sb strings.Builder
	for i, line := range strings.Split(e.Text, "\n") {
		if i == 0 {
			sb.WriteString(prefix)
		} else {
			sb.WriteByte('\n')
			sb.WriteString(indent)
		}
		sb.WriteString(kindStyle(e.Kind).Render(truncate(line, textWidth)))
	}

	if e.Attachment != nil {
		for _, line := range strings.Split(formatAttachment(e.Attachment), "\n") {
			sb.WriteByte('\n')
			sb.WriteString(indent)
			sb.WriteString(dimStyle.Render(truncate(line, textWidth)))
		}
	}

	return sb.String()
}

// filterBar renders the one-line kind toggle bar shown under the log.
func (lv *logViewModel) filterBar() string {
	parts := make([]string, 0, len(logstore.Kinds))
	for i, k := range logstore.Kinds {
		label := string(k)
		num := hintStyle.Render(strconv.Itoa(i + 1))
		if lv.filter.Enabled(k) {
			parts = append(parts, filterOnStyle.Render(label)+num)
		} else {
			parts = append(parts, filterOffStyle.Render(label)+num)
		}
	}
	return strings.Join(parts, "  ")
}

// update lets the viewport handle scrolling keys and mouse wheel events.
func (lv *logViewModel) update(msg tea.Msg) tea.Cmd {
	if !lv.ready {
		return nil
	}
	var cmd tea.Cmd
	lv.viewport, cmd = lv.viewport.Update(msg)
	return cmd
}

func (lv *logViewModel) view() string {
	if !lv.ready {
		return ""
	}
	return lv.viewport.View()
}
