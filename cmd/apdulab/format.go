package main

import (
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-runewidth"

	"github.com/apdulab/apdulab/pkg/logstore"
)

// spinnerFrames are braille characters for smooth animation.
var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// mdRenderer renders command help markdown to terminal-formatted output.
var (
	mdRenderer      *glamour.TermRenderer
	mdRendererMu    sync.Mutex
	mdRendererWidth int
)

// initMarkdownRenderer (re)initializes the glamour renderer at the given
// width. Re-initialization is skipped when the width is unchanged.
func initMarkdownRenderer(width int) {
	if width <= 0 {
		width = 80
	}
	mdRendererMu.Lock()
	defer mdRendererMu.Unlock()
	if width == mdRendererWidth && mdRenderer != nil {
		return
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return
	}
	mdRenderer = r
	mdRendererWidth = width
}

// renderMarkdown converts markdown text to terminal-formatted output. It
// falls back to the raw text when the renderer is unavailable.
func renderMarkdown(text string) string {
	mdRendererMu.Lock()
	r := mdRenderer
	mdRendererMu.Unlock()

	if r == nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// kindLabel returns the fixed-width badge shown before each log entry.
func kindLabel(k logstore.Kind) string {
	switch k {
	case logstore.KindError:
		return "ERR"
	case logstore.KindWarn:
		return "WRN"
	case logstore.KindCommand:
		return "CMD"
	case logstore.KindAPDU:
		return "APD"
	case logstore.KindBinary:
		return "BIN"
	case logstore.KindVerbose:
		return "VRB"
	case logstore.KindAnnouncement:
		return "ANN"
	default:
		return "???"
	}
}

// formatAttachment renders an entry attachment for display. Byte payloads are
// hex-dumped in 16-byte groups; everything else uses its default formatting.
func formatAttachment(v any) string {
	data, ok := v.([]byte)
	if !ok {
		return fmt.Sprintf("%v", v)
	}

	var sb strings.Builder
	for i := 0; i < len(data); i += 16 {
		end := min(i+16, len(data))
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(hex.EncodeToString(data[i:end]))
	}
	return sb.String()
}

// truncate shortens s to the given display width, appending an ellipsis when
// anything was cut.
func truncate(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
