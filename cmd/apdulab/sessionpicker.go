package main

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/apdulab/apdulab/pkg/transport"
)

// sessionAction is what the operator chose to do with a backgrounded session.
type sessionAction int

const (
	sessionNone sessionAction = iota
	sessionReclaim
	sessionClose
	sessionDismiss
)

// sessionPickerModel lists the backgrounded sessions for reclaiming or
// closing.
type sessionPickerModel struct {
	handles []transport.Handle
	cursor  int
	width   int
}

// setHandles refreshes the list, clamping the cursor.
func (sp *sessionPickerModel) setHandles(handles []transport.Handle) {
	sp.handles = handles
	if sp.cursor >= len(handles) {
		sp.cursor = max(len(handles)-1, 0)
	}
}

// handleKey processes navigation keys, returning the chosen action and the
// target handle id.
func (sp *sessionPickerModel) handleKey(msg tea.KeyMsg) (action sessionAction, id string) {
	switch msg.String() {
	case "up", "k":
		if sp.cursor > 0 {
			sp.cursor--
		}
	case "down", "j":
		if sp.cursor < len(sp.handles)-1 {
			sp.cursor++
		}
	case "enter":
		if len(sp.handles) > 0 {
			return sessionReclaim, sp.handles[sp.cursor].ID()
		}
	case "x":
		if len(sp.handles) > 0 {
			return sessionClose, sp.handles[sp.cursor].ID()
		}
	case "esc":
		return sessionDismiss, ""
	}
	return sessionNone, ""
}

func (sp sessionPickerModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Backgrounded sessions"))
	sb.WriteByte('\n')

	if len(sp.handles) == 0 {
		sb.WriteString(pickerDimStyle.Render("  none"))
		sb.WriteByte('\n')
	}

	for i, h := range sp.handles {
		line := string(h.Kind()) + "  " + h.ID()
		if i == sp.cursor {
			sb.WriteString(pickerCurStyle.Render("> " + line))
		} else {
			sb.WriteString(pickerDimStyle.Render("  " + line))
		}
		sb.WriteByte('\n')
	}

	sb.WriteString(hintStyle.Render("enter reclaim · x close · esc back"))

	return pickerBorder.Width(max(sp.width-2, 30)).Render(sb.String())
}
