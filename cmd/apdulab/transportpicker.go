package main

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/apdulab/apdulab/pkg/transport"
)

// transportPickerModel lets the operator choose which transport kind to open.
type transportPickerModel struct {
	cursor int
	width  int
}

// transportHints describes each kind in the picker.
var transportHints = map[transport.Kind]string{
	transport.KindWebUSB: "USB device via WebSocket bridge",
	transport.KindWebHID: "HID device via WebSocket bridge",
	transport.KindWebBLE: "BLE device via WebSocket bridge",
	transport.KindTCP:    "speculos/emulator over TCP",
}

// handleKey processes navigation keys. It returns the chosen kind on enter,
// or done=true with an empty kind on escape.
func (tp *transportPickerModel) handleKey(msg tea.KeyMsg) (kind transport.Kind, done bool) {
	switch msg.String() {
	case "up", "k":
		if tp.cursor > 0 {
			tp.cursor--
		}
	case "down", "j":
		if tp.cursor < len(transport.Kinds)-1 {
			tp.cursor++
		}
	case "enter":
		return transport.Kinds[tp.cursor], true
	case "esc":
		return "", true
	}
	return "", false
}

func (tp transportPickerModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Open transport"))
	sb.WriteByte('\n')

	for i, k := range transport.Kinds {
		line := string(k) + "  " + transportHints[k]
		if i == tp.cursor {
			sb.WriteString(pickerCurStyle.Render("> " + line))
		} else {
			sb.WriteString(pickerDimStyle.Render("  " + line))
		}
		sb.WriteByte('\n')
	}

	sb.WriteString(hintStyle.Render("enter open · esc back"))

	return pickerBorder.Width(max(tp.width-2, 30)).Render(sb.String())
}
