package dispatch

import (
	"context"
	"fmt"
	"image"
	"sync"

	replerrors "github.com/wippyai/wasm-repl/errors"
	"github.com/wippyai/wasm-repl/event"
	"github.com/wippyai/wasm-repl/surface"
)

// calls is a shared, ordered record of every collaborator call.
type calls struct {
	mu  sync.Mutex
	log []string
}

func (c *calls) add(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = append(c.log, fmt.Sprintf(format, args...))
}

func (c *calls) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.log...)
}

func (c *calls) indexOf(entry string) int {
	for i, e := range c.all() {
		if e == entry {
			return i
		}
	}
	return -1
}

type fakeConsole struct {
	name    string
	calls   *calls
	inputs  []string
	readErr error
}

func (f *fakeConsole) PrintLine(text string) { f.calls.add("%s.print %s", f.name, text) }
func (f *fakeConsole) WriteRaw(text string)  { f.calls.add("%s.raw %s", f.name, text) }

func (f *fakeConsole) ReadLine(_ context.Context, prompt string) (string, error) {
	f.calls.add("%s.read %s", f.name, prompt)
	if f.readErr != nil {
		return "", f.readErr
	}
	if len(f.inputs) == 0 {
		return "", nil
	}
	line := f.inputs[0]
	f.inputs = f.inputs[1:]
	return line, nil
}

type fakeDocuments struct {
	calls      *calls
	refreshErr error
	openErr    error
	onOpen     func(ctx context.Context)
	openCtxErr error
}

func (f *fakeDocuments) Refresh(context.Context) error {
	f.calls.add("docs.refresh")
	return f.refreshErr
}

func (f *fakeDocuments) OpenFile(ctx context.Context, title, path string, readOnly bool) error {
	if f.onOpen != nil {
		f.onOpen(ctx)
	}
	f.openCtxErr = ctx.Err()
	f.calls.add("docs.open %s %s %v", title, path, readOnly)
	return f.openErr
}

func (f *fakeDocuments) OpenTabular(title string, t event.Table) {
	f.calls.add("docs.table %s %d", title, len(t.Rows))
}

func (f *fakeDocuments) OpenHTML(content, sourcePath string) {
	f.calls.add("docs.html %s %s", sourcePath, content)
}

type fakeGraphics struct {
	calls *calls
}

func (f *fakeGraphics) Resize(axis surface.Axis, pixels int) {
	f.calls.add("gfx.resize %s %d", axis, pixels)
}

func (f *fakeGraphics) NewPage() { f.calls.add("gfx.newpage") }

func (f *fakeGraphics) DrawImage(img image.Image) {
	f.calls.add("gfx.draw %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
}

var (
	_ surface.Console   = (*fakeConsole)(nil)
	_ surface.Documents = (*fakeDocuments)(nil)
	_ surface.Graphics  = (*fakeGraphics)(nil)
	_ Storage           = (*fakeStorage)(nil)
	_ Input             = (*fakeInput)(nil)
)

type fakeStorage struct {
	calls     *calls
	files     map[string]string
	removeErr error
}

func (f *fakeStorage) ReadFile(_ context.Context, p string) ([]byte, error) {
	f.calls.add("store.read %s", p)
	content, ok := f.files[p]
	if !ok {
		return nil, replerrors.NotFound(replerrors.PhaseStorage, p)
	}
	return []byte(content), nil
}

func (f *fakeStorage) Remove(_ context.Context, p string) error {
	f.calls.add("store.remove %s", p)
	return f.removeErr
}

type fakeInput struct {
	calls *calls
	err   error
}

func (f *fakeInput) WriteConsole(_ context.Context, line string) error {
	f.calls.add("engine.input %s", line)
	return f.err
}
