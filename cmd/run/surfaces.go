package main

import (
	"context"
	"image"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/wasm-repl/config"
	"github.com/wippyai/wasm-repl/dispatch"
	"github.com/wippyai/wasm-repl/engine"
	"github.com/wippyai/wasm-repl/htmlview"
	"github.com/wippyai/wasm-repl/stdio"
	"github.com/wippyai/wasm-repl/surface"
	"github.com/wippyai/wasm-repl/tui"
)

func stdioIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// resolveMode turns ui.mode into tui or line. auto picks the TUI only when
// both stdin and stdout are terminals.
func resolveMode(mode string, isTerminal func() bool) string {
	switch mode {
	case config.UIModeTUI, config.UIModeLine:
		return mode
	}
	if isTerminal() {
		return config.UIModeTUI
	}
	return config.UIModeLine
}

func sizeGraphics(g surface.Graphics, c config.CanvasConfig) {
	g.Resize(surface.AxisWidth, c.Width)
	g.Resize(surface.AxisHeight, c.Height)
}

func runLine(ctx context.Context, cfg config.Config, eng *engine.Engine, slots *surface.Slots, loop *dispatch.Loop, logger *zap.Logger) error {
	plotDir := cfg.Canvas.Dir
	if plotDir == "" {
		plotDir = filepath.Join(os.TempDir(), "wasmrepl-"+eng.Session())
	}

	console := stdio.NewConsole(os.Stdin, os.Stdout)
	html := htmlview.New(cfg.HTML.ExportDir, eng.Session())
	canvas := image.Pt(cfg.Canvas.Width, cfg.Canvas.Height)

	slots.SetConsole(console)
	slots.SetDocuments(stdio.NewDocuments(console, eng.Storage(), cfg.Engine.Home, html, logger))
	slots.SetGraphics(stdio.NewGraphics(console, plotDir, canvas, logger))

	return loop.Run(ctx)
}

// runTUI starts the terminal program and binds the slots once it has
// mounted. Events arriving before then wait in the engine channel.
func runTUI(ctx context.Context, cfg config.Config, eng *engine.Engine, slots *surface.Slots, loop *dispatch.Loop, logger *zap.Logger) error {
	ready := make(chan struct{})
	prog := tui.New(tui.Options{
		Store:     eng.Storage(),
		Logger:    logger,
		OnReady:   func() { close(ready) },
		Home:      cfg.Engine.Home,
		ExportDir: cfg.HTML.ExportDir,
		Session:   eng.Session(),
		Canvas:    image.Pt(cfg.Canvas.Width, cfg.Canvas.Height),
	})

	progErr := make(chan error, 1)
	go func() { progErr <- prog.Run() }()

	select {
	case <-ready:
	case err := <-progErr:
		return err
	case <-ctx.Done():
		prog.Quit()
		return <-progErr
	}

	// OnReady runs inside the program's update loop, so binding and the
	// first messages happen here rather than in the callback.
	slots.SetConsole(prog.Console())
	slots.SetDocuments(prog.Documents())
	slots.SetGraphics(prog.Graphics())
	sizeGraphics(prog.Graphics(), cfg.Canvas)

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	loopErr := make(chan error, 1)
	go func() { loopErr <- loop.Run(loopCtx) }()

	select {
	case err := <-loopErr:
		prog.Quit()
		if perr := <-progErr; perr != nil {
			logger.Warn("terminal program failed", zap.Error(perr))
		}
		return err

	case err := <-progErr:
		// The user quit. Read failures caused by the program exiting are
		// part of that shutdown.
		cancel()
		if lerr := <-loopErr; lerr != nil {
			logger.Info("dispatch loop stopped after quit", zap.Error(lerr))
		}
		return err
	}
}
