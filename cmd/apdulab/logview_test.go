package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/apdulab/apdulab/pkg/logstore"
)

func testEntries() []logstore.Entry {
	now := time.Now()
	return []logstore.Entry{
		{ID: 1, Time: now, Kind: logstore.KindCommand, Text: "Get Battery Status"},
		{ID: 2, Time: now, Kind: logstore.KindVerbose, Text: "network: probe"},
		{ID: 3, Time: now, Kind: logstore.KindError, Text: "device status 6e00"},
	}
}

func TestLogViewFilterToggle(t *testing.T) {
	lv := newLogView(logstore.NewFilter())
	lv.setSize(100, 20)
	lv.append(testEntries())

	out := lv.renderEntries()
	assert.Contains(t, out, "Get Battery Status")
	assert.Contains(t, out, "network: probe")

	lv.toggleKind(logstore.KindVerbose)
	out = lv.renderEntries()
	assert.NotContains(t, out, "network: probe")
	assert.Contains(t, out, "device status 6e00")

	// Toggling back restores the hidden entries unchanged.
	lv.toggleKind(logstore.KindVerbose)
	assert.Contains(t, lv.renderEntries(), "network: probe")
}

func TestLogViewReset(t *testing.T) {
	lv := newLogView(logstore.NewFilter())
	lv.setSize(100, 20)
	lv.append(testEntries())
	lv.reset()

	assert.Empty(t, strings.TrimSpace(lv.renderEntries()))
}

func TestLogViewAttachmentRendering(t *testing.T) {
	lv := newLogView(logstore.NewFilter())
	lv.setSize(100, 20)
	lv.append([]logstore.Entry{{
		ID:         1,
		Time:       time.Now(),
		Kind:       logstore.KindAPDU,
		Text:       "<= 9000",
		Attachment: []byte{0x90, 0x00},
	}})

	out := lv.renderEntries()
	assert.Contains(t, out, "<= 9000")
	assert.Contains(t, out, "9000")
}

func TestLogViewFilterBarMarksHidden(t *testing.T) {
	lv := newLogView(logstore.NewFilter())
	lv.setSize(100, 20)
	lv.toggleKind(logstore.KindBinary)

	bar := lv.filterBar()
	for _, k := range logstore.Kinds {
		assert.Contains(t, bar, string(k))
	}
}
