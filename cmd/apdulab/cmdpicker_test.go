package main

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apdulab/apdulab/pkg/catalog"
)

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func testCatalog() *catalog.Catalog {
	return catalog.New(
		catalog.Command{ID: "send-apdu", Label: "Send APDU"},
		catalog.Command{ID: "get-battery-status", Label: "Get Battery Status"},
		catalog.Command{ID: "open-app", Label: "Open App"},
	)
}

func TestCmdPickerSearchNarrows(t *testing.T) {
	cp := newCmdPicker(testCatalog())
	require.Len(t, cp.filtered, 3)

	_, done := cp.handleKey(keyRunes("batt"))
	assert.False(t, done)
	require.Len(t, cp.filtered, 1)
	assert.Equal(t, "get-battery-status", cp.filtered[0].ID)
}

func TestCmdPickerBackspaceWidens(t *testing.T) {
	cp := newCmdPicker(testCatalog())
	cp.handleKey(keyRunes("battx"))
	require.Empty(t, cp.filtered)

	cp.handleKey(tea.KeyMsg{Type: tea.KeyBackspace})
	require.Len(t, cp.filtered, 1)
}

func TestCmdPickerEnterSelects(t *testing.T) {
	cp := newCmdPicker(testCatalog())
	cp.handleKey(tea.KeyMsg{Type: tea.KeyDown})

	cmd, done := cp.handleKey(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, done)
	assert.Equal(t, "get-battery-status", cmd.ID)
}

func TestCmdPickerEscDismisses(t *testing.T) {
	cp := newCmdPicker(testCatalog())

	cmd, done := cp.handleKey(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, done)
	assert.Empty(t, cmd.ID)
}

func TestCmdPickerResetClearsQuery(t *testing.T) {
	cp := newCmdPicker(testCatalog())
	cp.handleKey(keyRunes("open"))
	cp.reset()

	assert.Empty(t, cp.query)
	assert.Len(t, cp.filtered, 3)
}
