// Package tui is the terminal front end: one bubbletea program that
// implements the console, document and graphics surfaces.
package tui

import (
	"image"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-repl/htmlview"
)

// Options configures a Program.
type Options struct {
	// Store is read by Refresh and OpenFile.
	Store Storage

	// Logger must not write to the terminal. nil discards logs.
	Logger *zap.Logger

	// OnReady runs once the first window size is known.
	OnReady func()

	// Home is the directory listed in the Files tab.
	Home string

	// ExportDir receives inlined HTML documents when set.
	ExportDir string

	// Session prefixes exported file names.
	Session string

	// ProgramOptions are passed to tea.NewProgram after tea.WithAltScreen.
	ProgramOptions []tea.ProgramOption

	// Canvas is the plot device size in pixels.
	Canvas image.Point
}

// Program owns the bubbletea program and its surface adapters.
type Program struct {
	program   *tea.Program
	model     *Model
	console   *Console
	documents *Documents
	graphics  *Graphics
	done      chan struct{}
}

// New creates a Program. Call Run to start it.
func New(opts Options) *Program {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Program{done: make(chan struct{})}
	p.model = NewModel(opts.Canvas, logger, opts.OnReady)
	p.program = tea.NewProgram(p.model, append([]tea.ProgramOption{tea.WithAltScreen()}, opts.ProgramOptions...)...)

	p.console = &Console{send: p.program, done: p.done}
	p.documents = &Documents{
		send:   p.program,
		store:  opts.Store,
		html:   htmlview.New(opts.ExportDir, opts.Session),
		logger: logger,
		home:   opts.Home,
	}
	p.graphics = &Graphics{send: p.program}
	return p
}

// Run blocks until the program exits.
func (p *Program) Run() error {
	defer close(p.done)
	_, err := p.program.Run()
	return err
}

// Quit asks the program to exit.
func (p *Program) Quit() { p.program.Quit() }

// Done is closed when Run returns.
func (p *Program) Done() <-chan struct{} { return p.done }

func (p *Program) Console() *Console     { return p.console }
func (p *Program) Documents() *Documents { return p.documents }
func (p *Program) Graphics() *Graphics   { return p.graphics }
