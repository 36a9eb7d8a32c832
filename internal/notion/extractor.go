package notion

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrMissingRootPage is returned when a payload has no resolvable root page.
var ErrMissingRootPage = errors.New("no root page block in payload")

// PageContent is the result of extracting one page.
type PageContent struct {
	ID       string   // root block id
	Title    string   // plain-text title, may be empty
	Content  string   // rendered Markdown body
	Subpages []string // child page ids found while rendering, in order
}

// Extractor renders page payloads. The same Extractor may be reused across
// pages; each Extract call builds its own BlockTable.
type Extractor struct {
	opts RendererOptions
}

// NewExtractor creates an extractor whose renderers use opts.
func NewExtractor(opts RendererOptions) *Extractor {
	return &Extractor{opts: opts}
}

// Extract locates the root page of payload and renders its content blocks.
// The root is the payload's pageId if it resolves, then the id embedded in
// pageURL, then the first page block in the record map.
func (e *Extractor) Extract(ctx context.Context, pageURL string, payload []byte) (*PageContent, error) {
	if !gjson.ValidBytes(payload) {
		return nil, ErrMissingRootPage
	}
	doc := gjson.ParseBytes(payload)
	records := doc.Get("recordMap.block")
	if !records.IsObject() {
		return nil, ErrMissingRootPage
	}

	table := NewBlockTable(records)
	root, ok := findRoot(table, doc.Get("pageId").String(), pageURL)
	if !ok {
		return nil, ErrMissingRootPage
	}

	renderer := NewRenderer(table, root.ID, pageURL, e.opts)

	var lines []string
	for _, id := range root.Content {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lines = append(lines, renderer.Render(ctx, id)...)
	}

	content := &PageContent{
		ID:       root.ID,
		Title:    root.Title().PlainText(),
		Content:  strings.Join(lines, "\n\n"),
		Subpages: renderer.Subpages(),
	}
	slog.Debug("Extracted page", "url", pageURL, "root", root.ID, "blocks", table.Len(), "subpages", len(content.Subpages))
	return content, nil
}

func findRoot(table *BlockTable, pageID, pageURL string) (*Block, bool) {
	if pageID != "" {
		if b, ok := table.Get(pageID); ok {
			return b, true
		}
	}
	if id, ok := PageIDFromURL(pageURL); ok {
		if b, ok := table.Get(id); ok && b.Type == BlockPage {
			return b, true
		}
	}
	return table.FirstOfType(BlockPage)
}
