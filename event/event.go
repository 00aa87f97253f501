// Package event defines the output events a running engine emits and the
// decoder for their wire records.
//
// Events are values: they are produced once per engine-side output action,
// never mutated, and consumed exactly once by the dispatch loop.
package event

import (
	"encoding/json"
	"image"
)

// Kind identifies the type of event.
type Kind int

const (
	// KindUnrecognized is any record whose type is not in this enumeration.
	KindUnrecognized Kind = iota
	// KindText is one line of regular console output.
	KindText
	// KindErrorText is one line of error output.
	KindErrorText
	// KindPrompt asks for one line of console input.
	KindPrompt
	// KindGraphics is a plot canvas update (image or new page).
	KindGraphics
	// KindPagedDocument asks for a file to be shown read-only.
	KindPagedDocument
	// KindDataView carries a table for display.
	KindDataView
	// KindBrowseDocument asks for an HTML document to be shown self-contained.
	KindBrowseDocument
	// KindChannelClosed is the last event of a session.
	KindChannelClosed
)

var kindNames = [...]string{
	KindUnrecognized:   "unrecognized",
	KindText:           "text",
	KindErrorText:      "error-text",
	KindPrompt:         "prompt",
	KindGraphics:       "graphics-update",
	KindPagedDocument:  "paged-document",
	KindDataView:       "data-view",
	KindBrowseDocument: "browse-document",
	KindChannelClosed:  "channel-closed",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unrecognized"
	}
	return kindNames[k]
}

// Event is a sealed interface over the concrete event types below.
type Event interface {
	Kind() Kind
	event()
}

// Text is one line written to the engine's standard output.
type Text struct {
	Line string
}

// ErrorText is one line written to the engine's standard error.
type ErrorText struct {
	Line string
}

// Prompt signals that the engine is waiting for a line of input.
type Prompt struct {
	Text string
}

// GraphicsImage is a rendered plot frame.
type GraphicsImage struct {
	Image image.Image
}

// GraphicsNewPage starts a new plot.
type GraphicsNewPage struct{}

// PagedDocument asks for Path to be opened read-only. When DeleteAfter is
// set the file is transient and is removed from storage once opened.
type PagedDocument struct {
	Path        string
	Title       string
	DeleteAfter bool
}

// Table is a structured tabular payload.
type Table struct {
	Columns []string
	Rows    [][]string
}

// DataView carries a table and its title.
type DataView struct {
	Title string
	Table Table
}

// BrowseDocument points at an HTML document inside engine storage.
type BrowseDocument struct {
	Path string
}

// ChannelClosed is emitted once when the engine stops. Err is the engine's
// exit error, nil on a clean exit.
type ChannelClosed struct {
	Err error
}

// Unrecognized wraps a record that could not be mapped to a known kind.
type Unrecognized struct {
	Type string
	Raw  json.RawMessage
}

func (Text) Kind() Kind            { return KindText }
func (ErrorText) Kind() Kind       { return KindErrorText }
func (Prompt) Kind() Kind          { return KindPrompt }
func (GraphicsImage) Kind() Kind   { return KindGraphics }
func (GraphicsNewPage) Kind() Kind { return KindGraphics }
func (PagedDocument) Kind() Kind   { return KindPagedDocument }
func (DataView) Kind() Kind        { return KindDataView }
func (BrowseDocument) Kind() Kind  { return KindBrowseDocument }
func (ChannelClosed) Kind() Kind   { return KindChannelClosed }
func (Unrecognized) Kind() Kind    { return KindUnrecognized }

func (Text) event()            {}
func (ErrorText) event()       {}
func (Prompt) event()          {}
func (GraphicsImage) event()   {}
func (GraphicsNewPage) event() {}
func (PagedDocument) event()   {}
func (DataView) event()        {}
func (BrowseDocument) event()  {}
func (ChannelClosed) event()   {}
func (Unrecognized) event()    {}

// Interface compliance checks.
var (
	_ Event = Text{}
	_ Event = ErrorText{}
	_ Event = Prompt{}
	_ Event = GraphicsImage{}
	_ Event = GraphicsNewPage{}
	_ Event = PagedDocument{}
	_ Event = DataView{}
	_ Event = BrowseDocument{}
	_ Event = ChannelClosed{}
	_ Event = Unrecognized{}
)
