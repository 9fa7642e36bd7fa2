package main

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/apdulab/apdulab/pkg/catalog"
)

const cmdPickerMaxShow = 8

// cmdPickerModel displays a searchable list of catalog commands with a
// markdown help pane for the highlighted entry.
type cmdPickerModel struct {
	catalog  *catalog.Catalog
	query    string
	filtered []catalog.Command
	cursor   int
	width    int
	height   int
}

func newCmdPicker(c *catalog.Catalog) cmdPickerModel {
	return cmdPickerModel{
		catalog:  c,
		filtered: c.Commands(),
	}
}

// reset clears the query and selection for the next activation.
func (cp *cmdPickerModel) reset() {
	cp.query = ""
	cp.cursor = 0
	cp.filtered = cp.catalog.Commands()
}

// selected returns the currently highlighted command.
func (cp *cmdPickerModel) selected() (catalog.Command, bool) {
	if len(cp.filtered) == 0 {
		return catalog.Command{}, false
	}
	return cp.filtered[cp.cursor], true
}

// handleKey processes navigation and incremental search keys. It returns the
// chosen command on enter, or done=true without a command on escape.
func (cp *cmdPickerModel) handleKey(msg tea.KeyMsg) (cmd catalog.Command, done bool) {
	switch msg.String() {
	case "up", "ctrl+p":
		if cp.cursor > 0 {
			cp.cursor--
		}
	case "down", "ctrl+n":
		if cp.cursor < len(cp.filtered)-1 {
			cp.cursor++
		}
	case "enter":
		if sel, ok := cp.selected(); ok {
			return sel, true
		}
	case "esc":
		return catalog.Command{}, true
	case "backspace":
		if cp.query != "" {
			runes := []rune(cp.query)
			cp.setQuery(string(runes[:len(runes)-1]))
		}
	default:
		if msg.Type == tea.KeyRunes {
			cp.setQuery(cp.query + string(msg.Runes))
		}
	}
	return catalog.Command{}, false
}

func (cp *cmdPickerModel) setQuery(q string) {
	cp.query = q
	cp.cursor = 0
	cp.filtered = cp.catalog.Search(q)
}

func (cp cmdPickerModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Run command"))
	sb.WriteString("  ")
	if cp.query == "" {
		sb.WriteString(hintStyle.Render("type to search"))
	} else {
		sb.WriteString(cp.query)
	}
	sb.WriteByte('\n')

	if len(cp.filtered) == 0 {
		sb.WriteString(pickerDimStyle.Render("  no matching commands"))
		sb.WriteByte('\n')
	}

	show := min(len(cp.filtered), cmdPickerMaxShow)
	start := 0
	if cp.cursor >= show {
		start = cp.cursor - show + 1
	}
	for i := start; i < min(start+show, len(cp.filtered)); i++ {
		entry := cp.filtered[i].Label
		if i == cp.cursor {
			sb.WriteString(pickerCurStyle.Render("> " + entry))
		} else {
			sb.WriteString(pickerDimStyle.Render("  " + entry))
		}
		sb.WriteByte('\n')
	}

	if sel, ok := cp.selected(); ok && sel.Help != "" {
		sb.WriteByte('\n')
		sb.WriteString(renderMarkdown(sel.Help))
		sb.WriteByte('\n')
	}

	sb.WriteString(hintStyle.Render("enter run · esc back"))

	return pickerBorder.Width(max(cp.width-2, 30)).Render(sb.String())
}
