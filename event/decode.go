package event

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	_ "image/jpeg"
	_ "image/png"
)

// Wire record types.
const (
	TypeStdout = "stdout"
	TypeStderr = "stderr"
	TypePrompt = "prompt"
	TypeCanvas = "canvas"
	TypePager  = "pager"
	TypeView   = "view"
	TypeBrowse = "browse"
	TypeClosed = "closed"
)

// Canvas sub-events.
const (
	CanvasImage   = "image"
	CanvasNewPage = "newPage"
)

type record struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type canvasData struct {
	Event string `json:"event"`
	Image string `json:"image"`
}

type pagerData struct {
	Path   string `json:"path"`
	Title  string `json:"title"`
	Delete bool   `json:"delete"`
}

type viewData struct {
	Title   string     `json:"title"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

type browseData struct {
	Path string `json:"path"`
}

// Decode maps one JSON record to a typed event. It never fails: a record
// that is malformed, has an unknown type or a payload that does not fit its
// type comes back as Unrecognized with the raw bytes attached.
func Decode(data []byte) Event {
	raw := json.RawMessage(bytes.Clone(data))

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Unrecognized{Raw: raw}
	}
	bad := Unrecognized{Type: rec.Type, Raw: raw}

	switch rec.Type {
	case TypeStdout, TypeStderr, TypePrompt:
		var s string
		if len(rec.Data) > 0 {
			if err := json.Unmarshal(rec.Data, &s); err != nil {
				return bad
			}
		}
		switch rec.Type {
		case TypeStdout:
			return Text{Line: s}
		case TypeStderr:
			return ErrorText{Line: s}
		default:
			return Prompt{Text: s}
		}

	case TypeCanvas:
		var c canvasData
		if err := json.Unmarshal(rec.Data, &c); err != nil {
			return bad
		}
		switch c.Event {
		case CanvasNewPage:
			return GraphicsNewPage{}
		case CanvasImage:
			img, err := decodeImage(c.Image)
			if err != nil {
				return bad
			}
			return GraphicsImage{Image: img}
		}
		return bad

	case TypePager:
		var p pagerData
		if err := json.Unmarshal(rec.Data, &p); err != nil || p.Path == "" {
			return bad
		}
		return PagedDocument{Path: p.Path, Title: p.Title, DeleteAfter: p.Delete}

	case TypeView:
		var v viewData
		if err := json.Unmarshal(rec.Data, &v); err != nil {
			return bad
		}
		return DataView{Title: v.Title, Table: Table{Columns: v.Columns, Rows: v.Rows}}

	case TypeBrowse:
		var b browseData
		if err := json.Unmarshal(rec.Data, &b); err != nil || b.Path == "" {
			return bad
		}
		return BrowseDocument{Path: b.Path}

	case TypeClosed:
		return ChannelClosed{}
	}

	return bad
}

func decodeImage(s string) (image.Image, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}
