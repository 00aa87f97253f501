package htmlview

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMarkdown(t *testing.T) {
	r := New("", "")
	md, err := r.Markdown(`<html><head><script>var x = 1;</script><style>h1{}</style></head>` +
		`<body><h1>Summary</h1><table><tr><th>a</th></tr><tr><td>1</td></tr></table></body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(md, "# Summary") {
		t.Errorf("missing heading: %q", md)
	}
	if !strings.Contains(md, "| a |") {
		t.Errorf("missing table: %q", md)
	}
	if strings.Contains(md, "var x") || strings.Contains(md, "h1{}") {
		t.Errorf("script or style leaked: %q", md)
	}
}

func TestExportName(t *testing.T) {
	if got := New("", "abc").ExportName("/tmp/r/index.html"); got != "abc-index.html" {
		t.Errorf("ExportName = %q", got)
	}
	if got := New("", "").ExportName("/tmp/r/index.html"); got != "index.html" {
		t.Errorf("ExportName without session = %q", got)
	}
}

func TestExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	r := New(dir, "s1")

	p, err := r.Export("/tmp/plot.html", "<p>x</p>")
	if err != nil {
		t.Fatal(err)
	}
	if p != filepath.Join(dir, "s1-plot.html") {
		t.Errorf("path = %q", p)
	}
	data, err := os.ReadFile(p)
	if err != nil || string(data) != "<p>x</p>" {
		t.Errorf("content = %q, %v", data, err)
	}
}

func TestExportDisabled(t *testing.T) {
	p, err := New("", "s").Export("/a.html", "x")
	if p != "" || err != nil {
		t.Errorf("Export = %q, %v", p, err)
	}
}
