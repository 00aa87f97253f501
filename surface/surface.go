// Package surface defines the capability sets of the display surfaces the
// dispatch loop drives, their fail-fast defaults, and Slots, the holder
// through which surfaces are bound once they mount.
package surface

import (
	"context"
	"image"

	"github.com/wippyai/wasm-repl/event"
)

// Console is the text console.
type Console interface {
	// PrintLine appends one line of output.
	PrintLine(text string)
	// WriteRaw writes text without adding a line break.
	WriteRaw(text string)
	// ReadLine shows prompt and blocks until the user submits a line, the
	// surface fails, or ctx is done.
	ReadLine(ctx context.Context, prompt string) (string, error)
}

// Documents is the document viewer and file browser.
type Documents interface {
	// Refresh reloads the file listing. It returns once the listing is current.
	Refresh(ctx context.Context) error
	// OpenFile shows the file at path under title. It returns once the
	// content has been read.
	OpenFile(ctx context.Context, title, path string, readOnly bool) error
	// OpenTabular shows a table.
	OpenTabular(title string, table event.Table)
	// OpenHTML shows a self-contained HTML document.
	OpenHTML(content, sourcePath string)
}

// Axis selects a canvas dimension.
type Axis int

const (
	AxisWidth Axis = iota
	AxisHeight
)

func (a Axis) String() string {
	if a == AxisHeight {
		return "height"
	}
	return "width"
}

// Graphics is the plot canvas.
type Graphics interface {
	Resize(axis Axis, pixels int)
	NewPage()
	DrawImage(img image.Image)
}

const (
	highlightStart = "\x1b[1m\x1b[31m"
	highlightEnd   = "\x1b[m\x1b[0m"
)

// HighlightError wraps s in the console's error-highlight marker.
func HighlightError(s string) string {
	return highlightStart + s + highlightEnd
}
