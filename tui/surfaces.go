package tui

import (
	"context"
	"image"
	"path"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-repl/errors"
	"github.com/wippyai/wasm-repl/event"
	"github.com/wippyai/wasm-repl/htmlview"
	"github.com/wippyai/wasm-repl/storage"
	"github.com/wippyai/wasm-repl/surface"
)

// Sender posts a message to a running program. *tea.Program implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// Storage is the engine storage the terminal surfaces read from.
type Storage interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	List(ctx context.Context, path string) ([]storage.Entry, error)
}

var (
	_ surface.Console   = (*Console)(nil)
	_ surface.Documents = (*Documents)(nil)
	_ surface.Graphics  = (*Graphics)(nil)
)

// Console forwards console output to the program and waits for submitted lines.
type Console struct {
	send Sender
	done <-chan struct{}
}

func (c *Console) PrintLine(text string) { c.send.Send(printMsg{text: text}) }
func (c *Console) WriteRaw(text string)  { c.send.Send(rawMsg{text: text}) }

// ReadLine shows prompt and blocks until the user submits a line, ctx ends
// or the program exits.
func (c *Console) ReadLine(ctx context.Context, prompt string) (string, error) {
	reply := make(chan string, 1)
	c.send.Send(readMsg{prompt: prompt, reply: reply})

	select {
	case line := <-reply:
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-c.done:
		return "", errors.New(errors.PhaseSurface, errors.KindClosed).
			Detail("terminal closed").
			Build()
	}
}

// Documents serves the Files and Viewer tabs.
type Documents struct {
	send   Sender
	store  Storage
	html   *htmlview.Renderer
	logger *zap.Logger
	home   string
}

// Refresh lists the home directory into the Files tab.
func (d *Documents) Refresh(ctx context.Context) error {
	entries, err := d.store.List(ctx, d.home)
	if err != nil {
		return err
	}
	d.send.Send(filesMsg{dir: d.home, entries: entries})
	return nil
}

// OpenFile reads p from engine storage and shows it in the Viewer tab.
func (d *Documents) OpenFile(ctx context.Context, title, p string, readOnly bool) error {
	data, err := d.store.ReadFile(ctx, p)
	if err != nil {
		return err
	}
	d.send.Send(fileMsg{title: title, path: p, text: string(data), readOnly: readOnly})
	return nil
}

func (d *Documents) OpenTabular(title string, t event.Table) {
	d.send.Send(tableMsg{title: title, table: t})
}

// OpenHTML shows content as markdown. With an export dir set the HTML is
// also saved so it can be opened in a browser.
func (d *Documents) OpenHTML(content, sourcePath string) {
	md, err := d.html.Markdown(content)
	if err != nil {
		d.logger.Warn("html conversion failed, showing source",
			zap.String("path", sourcePath),
			zap.Error(err))
		md = content
	}

	exported, err := d.html.Export(sourcePath, content)
	if err != nil {
		d.logger.Error("html export failed", zap.String("path", sourcePath), zap.Error(err))
	}

	d.send.Send(htmlMsg{title: path.Base(sourcePath), markdown: md, exported: exported})
}

// Graphics serves the Plot tab.
type Graphics struct {
	send Sender
}

func (g *Graphics) Resize(axis surface.Axis, pixels int) {
	g.send.Send(canvasSizeMsg{axis: axis, pixels: pixels})
}

func (g *Graphics) NewPage() { g.send.Send(newPageMsg{}) }

func (g *Graphics) DrawImage(img image.Image) { g.send.Send(imageMsg{img: img}) }
