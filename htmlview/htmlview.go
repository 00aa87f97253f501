// Package htmlview renders inlined HTML documents for text surfaces and
// saves them for viewing in a browser.
package htmlview

import (
	"os"
	"path"
	"path/filepath"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/wippyai/wasm-repl/errors"
)

// Renderer converts HTML to markdown and optionally exports the source.
type Renderer struct {
	conv      *converter.Converter
	exportDir string
	session   string
}

// New creates a Renderer. An empty exportDir disables Export.
func New(exportDir, session string) *Renderer {
	return &Renderer{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		exportDir: exportDir,
		session:   session,
	}
}

// Markdown converts content. Script and style bodies are dropped.
func (r *Renderer) Markdown(content string) (string, error) {
	md, err := r.conv.ConvertString(content)
	if err != nil {
		return "", errors.InvalidData(errors.PhaseSurface, "convert html", err)
	}
	return md, nil
}

// ExportName is the file name a document from sourcePath is saved under.
func (r *Renderer) ExportName(sourcePath string) string {
	name := path.Base(sourcePath)
	if r.session == "" {
		return name
	}
	return r.session + "-" + name
}

// Export writes content to the export directory and returns the written
// path. It returns "" and no error when exporting is disabled.
func (r *Renderer) Export(sourcePath, content string) (string, error) {
	if r.exportDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(r.exportDir, 0o755); err != nil {
		return "", errors.Wrap(errors.PhaseSurface, errors.KindIO, err, "create export dir")
	}
	p := filepath.Join(r.exportDir, r.ExportName(sourcePath))
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		return "", errors.New(errors.PhaseSurface, errors.KindIO).
			Path(p).
			Detail("export html").
			Cause(err).
			Build()
	}
	return p, nil
}
