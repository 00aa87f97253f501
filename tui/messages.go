package tui

import (
	"image"

	"github.com/wippyai/wasm-repl/event"
	"github.com/wippyai/wasm-repl/storage"
	"github.com/wippyai/wasm-repl/surface"
)

// Messages posted to the model by the surface adapters.

type printMsg struct{ text string }

type rawMsg struct{ text string }

type readMsg struct {
	reply  chan<- string
	prompt string
}

type filesMsg struct {
	dir     string
	entries []storage.Entry
}

type fileMsg struct {
	title    string
	path     string
	text     string
	readOnly bool
}

type tableMsg struct {
	title string
	table event.Table
}

type htmlMsg struct {
	title    string
	markdown string
	exported string
}

type canvasSizeMsg struct {
	axis   surface.Axis
	pixels int
}

type newPageMsg struct{}

type imageMsg struct{ img image.Image }
