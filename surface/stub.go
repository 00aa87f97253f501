package surface

import (
	"context"
	"image"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-repl/errors"
	"github.com/wippyai/wasm-repl/event"
)

// Stubs stand in for a surface that has not mounted yet. Calls that can
// report failure return errors.ErrNotBound; the rest are dropped with a warning.

type stubConsole struct{ log *zap.Logger }

func (s stubConsole) PrintLine(text string) {
	s.log.Warn("console not bound, dropping line", zap.String("text", text))
}

func (s stubConsole) WriteRaw(text string) {
	s.log.Warn("console not bound, dropping output", zap.String("text", text))
}

func (s stubConsole) ReadLine(context.Context, string) (string, error) {
	return "", errors.NotBound("console", "ReadLine")
}

type stubDocuments struct{ log *zap.Logger }

func (s stubDocuments) Refresh(context.Context) error {
	return errors.NotBound("documents", "Refresh")
}

func (s stubDocuments) OpenFile(_ context.Context, _, path string, _ bool) error {
	e := errors.NotBound("documents", "OpenFile")
	e.Path = path
	return e
}

func (s stubDocuments) OpenTabular(title string, _ event.Table) {
	s.log.Warn("documents not bound, dropping table", zap.String("title", title))
}

func (s stubDocuments) OpenHTML(_, sourcePath string) {
	s.log.Warn("documents not bound, dropping html view", zap.String("path", sourcePath))
}

type stubGraphics struct{ log *zap.Logger }

func (s stubGraphics) Resize(axis Axis, pixels int) {
	s.log.Warn("graphics not bound, dropping resize", zap.Stringer("axis", axis), zap.Int("pixels", pixels))
}

func (s stubGraphics) NewPage() {
	s.log.Warn("graphics not bound, dropping new page")
}

func (s stubGraphics) DrawImage(image.Image) {
	s.log.Warn("graphics not bound, dropping image")
}

var (
	_ Console   = stubConsole{}
	_ Documents = stubDocuments{}
	_ Graphics  = stubGraphics{}
)
