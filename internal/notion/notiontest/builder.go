// Package notiontest builds page payloads and HTML documents for tests.
package notiontest

import (
	"encoding/json"
	"fmt"
)

// DefaultSpaceID is the space id given to every page built by NewPage.
const DefaultSpaceID = "space-1"

// Page accumulates blocks for one payload.
type Page struct {
	ID      string
	spaceID string
	blocks  map[string]map[string]any
	omitID  bool
}

// NewPage starts a payload whose root page block is id.
func NewPage(id, title string, content ...string) *Page {
	p := &Page{
		ID:      id,
		spaceID: DefaultSpaceID,
		blocks:  make(map[string]map[string]any),
	}
	p.Block(id, "page", map[string]any{"title": Text(title)}, content...)
	return p
}

// WithoutPageID omits the top-level pageId field.
func (p *Page) WithoutPageID() *Page {
	p.omitID = true
	return p
}

// Block adds a block with raw properties.
func (p *Page) Block(id, typ string, props map[string]any, content ...string) *Page {
	value := map[string]any{
		"id":       id,
		"type":     typ,
		"space_id": p.spaceID,
	}
	if props != nil {
		value["properties"] = props
	}
	if len(content) > 0 {
		value["content"] = content
	}
	p.blocks[id] = value
	return p
}

// Titled adds a block whose only property is a plain title.
func (p *Page) Titled(id, typ, title string, content ...string) *Page {
	return p.Block(id, typ, map[string]any{"title": Text(title)}, content...)
}

// Set sets a top-level field on an existing block value.
func (p *Page) Set(id, field string, v any) *Page {
	p.blocks[id][field] = v
	return p
}

// Subpage adds a page block that references another page.
func (p *Page) Subpage(id, title string) *Page {
	return p.Titled(id, "page", title)
}

// JSON returns the payload in the {value:{value:...}} record form.
func (p *Page) JSON() []byte {
	records := make(map[string]any, len(p.blocks))
	for id, v := range p.blocks {
		records[id] = map[string]any{
			"spaceId": p.spaceID,
			"value": map[string]any{
				"value": v,
				"role":  "reader",
			},
		}
	}
	payload := map[string]any{
		"recordMap": map[string]any{"block": records},
	}
	if !p.omitID {
		payload["pageId"] = p.ID
	}
	data, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return data
}

// HTML wraps the payload in a document the way published pages embed it.
func (p *Page) HTML() []byte {
	return WrapHTML(p.JSON())
}

// WrapHTML embeds payload in a minimal published-page document.
func WrapHTML(payload []byte) []byte {
	return []byte(fmt.Sprintf(`<!DOCTYPE html>
<html><head><title>Published page</title>
<script>window.__notion_html_async = window.__notion_html_async || [];</script>
<script>__notion_html_async.push("serverSidePrefetchData",%s)</script>
</head><body><div id="notion-app"></div></body></html>`, payload))
}

// Text builds a single unformatted rich-text value.
func Text(s string) [][]any {
	return [][]any{{s}}
}

// Formatted builds a single run carrying the given raw markers.
func Formatted(s string, markers ...any) [][]any {
	return [][]any{{s, markers}}
}
