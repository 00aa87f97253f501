// Package inline rewrites an HTML document so that it no longer depends on
// the engine's storage: relative <script src> and stylesheet <link href>
// references are replaced by base64 data URIs of the asset content.
//
// Matching is done with a small set of regular expressions, not an HTML
// parser. Only minimal well-formed tags are recognized:
//
//	<script ... src="app.js" ...>...</script>
//	<link ... href="style.css" ...>
//
// Anything else, including nested or malformed markup, is copied through
// unchanged. Every byte outside a recognized tag is preserved.
package inline

import (
	"context"
	"encoding/base64"
	"path"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/wippyai/wasm-repl/errors"
)

// BaselineStyle is injected once, before the first rewritten stylesheet.
const BaselineStyle = "<style>body{font-family: sans-serif;}</style>"

var (
	scriptPattern = regexp.MustCompile("(?is)<script\\b[^>]*?\\ssrc\\s*=\\s*[\"'`]([^\"'`]+)[\"'`][^>]*>.*?</script\\s*>")
	linkPattern   = regexp.MustCompile("(?i)<link\\b[^>]*?\\shref\\s*=\\s*[\"'`]([^\"'`]+)[\"'`][^>]*>")
	stylesheetRel = regexp.MustCompile("(?i)\\srel\\s*=\\s*[\"'`]?stylesheet\\b")
	schemePrefix  = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*:`)
)

// Reader reads assets from engine storage.
type Reader interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

type assetKind int

const (
	assetScript assetKind = iota
	assetStylesheet
)

// match is one tag to replace, located in the original document.
type match struct {
	start, end int
	kind       assetKind
	path       string
}

// Inline returns doc with every relative script and stylesheet reference
// replaced by a data URI. Asset paths are resolved against baseDir.
//
// All assets are read concurrently before any rewriting starts. If any read
// fails the whole call fails and no partial document is returned.
func Inline(ctx context.Context, doc, baseDir string, r Reader) (string, error) {
	matches := findMatches(doc, baseDir)
	if len(matches) == 0 {
		return doc, nil
	}

	uris, err := readAll(ctx, matches, r)
	if err != nil {
		return "", err
	}
	return rewrite(doc, matches, uris), nil
}

func findMatches(doc, baseDir string) []match {
	var matches []match

	for _, loc := range scriptPattern.FindAllStringSubmatchIndex(doc, -1) {
		ref := doc[loc[2]:loc[3]]
		if !isRelative(ref) {
			continue
		}
		matches = append(matches, match{
			start: loc[0],
			end:   loc[1],
			kind:  assetScript,
			path:  resolve(baseDir, ref),
		})
	}

	for _, loc := range linkPattern.FindAllStringSubmatchIndex(doc, -1) {
		tag := doc[loc[0]:loc[1]]
		ref := doc[loc[2]:loc[3]]
		if !isRelative(ref) || !isStylesheet(tag, ref) {
			continue
		}
		matches = append(matches, match{
			start: loc[0],
			end:   loc[1],
			kind:  assetStylesheet,
			path:  resolve(baseDir, ref),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].start < matches[j].start })

	// A link inside a script body overlaps the script match; the earlier tag wins.
	kept := matches[:0]
	end := -1
	for _, m := range matches {
		if m.start < end {
			continue
		}
		kept = append(kept, m)
		end = m.end
	}
	return kept
}

// readAll fetches every distinct asset in parallel and returns the data URI
// for each match, indexed like matches.
func readAll(ctx context.Context, matches []match, r Reader) ([]string, error) {
	paths := make([]string, 0, len(matches))
	index := make(map[string]int, len(matches))
	for _, m := range matches {
		if _, ok := index[m.path]; !ok {
			index[m.path] = len(paths)
			paths = append(paths, m.path)
		}
	}

	contents := make([][]byte, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		g.Go(func() error {
			data, err := r.ReadFile(gctx, p)
			if err != nil {
				return errors.AssetRead(p, err)
			}
			contents[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	uris := make([]string, len(matches))
	for i, m := range matches {
		uris[i] = dataURI(m.kind, contents[index[m.path]])
	}
	return uris, nil
}

func rewrite(doc string, matches []match, uris []string) string {
	var b strings.Builder
	b.Grow(len(doc))

	injected := false
	last := 0
	for i, m := range matches {
		b.WriteString(doc[last:m.start])
		switch m.kind {
		case assetScript:
			b.WriteString(`<script src="`)
			b.WriteString(uris[i])
			b.WriteString(`"></script>`)
		case assetStylesheet:
			if !injected {
				b.WriteString(BaselineStyle)
				injected = true
			}
			b.WriteString(`<link rel="stylesheet" href="`)
			b.WriteString(uris[i])
			b.WriteString(`"/>`)
		}
		last = m.end
	}
	b.WriteString(doc[last:])
	return b.String()
}

func dataURI(kind assetKind, content []byte) string {
	mime := "text/javascript"
	if kind == assetStylesheet {
		mime = "text/css"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(content)
}

// isRelative rejects absolute paths, scheme URLs (http:, data:, ...),
// protocol-relative URLs and pure fragments.
func isRelative(ref string) bool {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return false
	case strings.HasPrefix(ref, "/"), strings.HasPrefix(ref, "#"), strings.HasPrefix(ref, "?"):
		return false
	case schemePrefix.MatchString(ref):
		return false
	}
	return true
}

func isStylesheet(tag, ref string) bool {
	if stylesheetRel.MatchString(tag) {
		return true
	}
	return strings.HasSuffix(strings.ToLower(stripQuery(ref)), ".css")
}

func resolve(baseDir, ref string) string {
	return path.Join(baseDir, stripQuery(strings.TrimSpace(ref)))
}

func stripQuery(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		return ref[:i]
	}
	return ref
}
