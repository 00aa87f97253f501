// Package stdio implements the display surfaces on plain line-oriented
// streams, for pipes, CI logs and terminals too small for the TUI.
package stdio

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/wippyai/wasm-repl/errors"
	"github.com/wippyai/wasm-repl/event"
	"github.com/wippyai/wasm-repl/htmlview"
	"github.com/wippyai/wasm-repl/storage"
	"github.com/wippyai/wasm-repl/surface"
)

var (
	_ surface.Console   = (*Console)(nil)
	_ surface.Documents = (*Documents)(nil)
	_ surface.Graphics  = (*Graphics)(nil)
)

// Console reads lines from in and writes output to out.
type Console struct {
	in    io.Reader
	out   io.Writer
	lines chan readResult
	err   error
	once  sync.Once
	mu    sync.Mutex
}

type readResult struct {
	err  error
	line string
}

// NewConsole creates a console over in and out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: in, out: out, lines: make(chan readResult)}
}

func (c *Console) PrintLine(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, text)
}

func (c *Console) WriteRaw(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	io.WriteString(c.out, text)
}

// ReadLine writes prompt and waits for the next input line. After the
// input ends every call returns the same error, io.EOF for a clean end.
func (c *Console) ReadLine(ctx context.Context, prompt string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.WriteRaw(prompt)
	c.once.Do(func() { go c.scan() })

	select {
	case r := <-c.lines:
		if r.err != nil {
			c.err = r.err
			return "", r.err
		}
		return r.line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// scan reads at most one line ahead of the pending ReadLine.
func (c *Console) scan() {
	sc := bufio.NewScanner(c.in)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		c.lines <- readResult{line: sc.Text()}
	}
	err := sc.Err()
	if err == nil {
		err = io.EOF
	}
	c.lines <- readResult{err: err}
}

// Storage is the engine storage the documents surface reads from.
type Storage interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	List(ctx context.Context, path string) ([]storage.Entry, error)
}

// Documents prints documents inline, framed by a header line.
type Documents struct {
	console *Console
	store   Storage
	html    *htmlview.Renderer
	logger  *zap.Logger
	home    string
}

// NewDocuments creates a documents surface printing through console.
func NewDocuments(console *Console, store Storage, home string, html *htmlview.Renderer, logger *zap.Logger) *Documents {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Documents{console: console, store: store, html: html, logger: logger, home: home}
}

// Refresh checks that the home directory is still listable. Line mode has
// no file pane to update.
func (d *Documents) Refresh(ctx context.Context) error {
	entries, err := d.store.List(ctx, d.home)
	if err != nil {
		return err
	}
	d.logger.Debug("home listed", zap.String("home", d.home), zap.Int("entries", len(entries)))
	return nil
}

func (d *Documents) OpenFile(ctx context.Context, title, p string, _ bool) error {
	data, err := d.store.ReadFile(ctx, p)
	if err != nil {
		return err
	}
	d.print(title, string(data))
	return nil
}

func (d *Documents) OpenTabular(title string, t event.Table) {
	tbl := ltable.New().
		Border(lipgloss.NormalBorder()).
		Headers(t.Columns...).
		Rows(t.Rows...)
	d.print(title, tbl.String())
}

func (d *Documents) OpenHTML(content, sourcePath string) {
	md, err := d.html.Markdown(content)
	if err != nil {
		d.logger.Warn("html conversion failed, showing source", zap.String("path", sourcePath), zap.Error(err))
		md = content
	}
	if p, err := d.html.Export(sourcePath, content); err != nil {
		d.logger.Error("html export failed", zap.String("path", sourcePath), zap.Error(err))
	} else if p != "" {
		md += "\n\n(saved to " + p + ")"
	}
	d.print(filepath.Base(sourcePath), md)
}

func (d *Documents) print(title, body string) {
	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	d.console.WriteRaw("==> " + title + " <==\n" + body)
}

// Graphics saves each page as a numbered PNG file in a directory.
type Graphics struct {
	console *Console
	logger  *zap.Logger
	dir     string
	size    image.Point
	page    int
	mu      sync.Mutex
}

// NewGraphics creates a graphics surface writing into dir. size is the
// canvas in pixels; images are scaled to it.
func NewGraphics(console *Console, dir string, size image.Point, logger *zap.Logger) *Graphics {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Graphics{console: console, dir: dir, size: size, logger: logger}
}

func (g *Graphics) Resize(axis surface.Axis, pixels int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch axis {
	case surface.AxisWidth:
		g.size.X = pixels
	case surface.AxisHeight:
		g.size.Y = pixels
	}
}

// NewPage starts a new file for the next image.
func (g *Graphics) NewPage() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.page++
}

// DrawImage writes img as the current page, replacing earlier drawings on it.
func (g *Graphics) DrawImage(img image.Image) {
	g.mu.Lock()
	if g.page == 0 {
		g.page = 1
	}
	p := filepath.Join(g.dir, fmt.Sprintf("plot-%04d.png", g.page))
	size := g.size
	g.mu.Unlock()

	if err := writePNG(p, scaleTo(img, size)); err != nil {
		g.logger.Error("plot write failed", zap.String("path", p), zap.Error(err))
		return
	}
	g.console.PrintLine("plot saved to " + p)
}

// scaleTo resizes img to size. A non-positive size keeps img as is.
func scaleTo(img image.Image, size image.Point) image.Image {
	if size.X <= 0 || size.Y <= 0 || img.Bounds().Size() == size {
		return img
	}
	dst := image.NewRGBA(image.Rectangle{Max: size})
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

func writePNG(p string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrap(errors.PhaseSurface, errors.KindIO, err, "create plot dir")
	}
	f, err := os.Create(p)
	if err != nil {
		return errors.New(errors.PhaseSurface, errors.KindIO).Path(p).Detail("create plot").Cause(err).Build()
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return errors.New(errors.PhaseSurface, errors.KindIO).Path(p).Detail("encode plot").Cause(err).Build()
	}
	return f.Close()
}
