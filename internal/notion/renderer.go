package notion

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// Mode selects how child pages are rendered.
type Mode int

const (
	// ModeMultiFile links child pages to their own exported files.
	ModeMultiFile Mode = iota
	// ModeSingleFile inlines child pages into the parent document.
	ModeSingleFile
)

// String returns the mode name used in config and logs.
func (m Mode) String() string {
	if m == ModeSingleFile {
		return "single"
	}
	return "multi"
}

// PageInliner fetches and renders a child page so its body can be inlined.
// ok is false when the page could not be produced (already visited, fetch
// or extraction failure, cancellation).
type PageInliner interface {
	InlinePage(ctx context.Context, pageID, title string) (content string, ok bool)
}

// Renderer turns blocks of one page into Markdown lines. A Renderer is bound
// to a single BlockTable and is discarded once the page is extracted.
type Renderer struct {
	table        *BlockTable
	rootID       string
	pageURL      string
	imageBaseURL string
	mode         Mode
	registry     *PageRegistry
	inliner      PageInliner

	subpages   []string
	seenPages  map[string]bool
	inProgress map[string]bool
}

// RendererOptions configures a Renderer.
type RendererOptions struct {
	Mode Mode
	// ImageBaseURL prefixes proxied image URLs. Empty means the origin of
	// the page URL.
	ImageBaseURL string
	// Registry receives every page block rendered. Optional.
	Registry *PageRegistry
	// Inliner is consulted for page blocks in ModeSingleFile. When nil,
	// page blocks in ModeSingleFile render as absolute links.
	Inliner PageInliner
}

// NewRenderer creates a renderer for the page rooted at rootID.
func NewRenderer(table *BlockTable, rootID, pageURL string, opts RendererOptions) *Renderer {
	base := strings.TrimSuffix(opts.ImageBaseURL, "/")
	if base == "" {
		base, _ = Origin(pageURL)
	}
	return &Renderer{
		table:        table,
		rootID:       rootID,
		pageURL:      pageURL,
		imageBaseURL: base,
		mode:         opts.Mode,
		registry:     opts.Registry,
		inliner:      opts.Inliner,
		seenPages:    make(map[string]bool),
		inProgress:   make(map[string]bool),
	}
}

// Subpages returns the child page ids found so far, in discovery order.
func (r *Renderer) Subpages() []string {
	return append([]string(nil), r.subpages...)
}

// Render renders the block with the given id. Dangling ids, unknown types and
// ids already being rendered further up the stack produce no lines.
func (r *Renderer) Render(ctx context.Context, id string) []string {
	b, ok := r.table.Get(id)
	if !ok {
		slog.Debug("Skipping dangling block reference", "block_id", id)
		return nil
	}
	if r.inProgress[id] {
		slog.Debug("Skipping cyclic block reference", "block_id", id)
		return nil
	}
	r.inProgress[id] = true
	defer delete(r.inProgress, id)

	switch b.Type {
	case BlockText:
		return []string{b.Title().Markdown()}
	case BlockHeader:
		return []string{"# " + b.Title().Markdown()}
	case BlockSubHeader:
		return []string{"## " + b.Title().Markdown()}
	case BlockSubSubHeader:
		return []string{"### " + b.Title().Markdown()}
	case BlockBulletedList:
		return []string{"- " + b.Title().Markdown()}
	case BlockNumberedList:
		return []string{"1. " + b.Title().Markdown()}
	case BlockToDo:
		checkbox := "[ ]"
		if b.Checked() {
			checkbox = "[x]"
		}
		return []string{checkbox + " " + b.Title().Markdown()}
	case BlockToggle:
		return r.renderToggle(ctx, b)
	case BlockCallout, BlockQuote:
		return []string{"> " + b.Title().Markdown()}
	case BlockDivider:
		return []string{"---"}
	case BlockCode:
		lang := strings.ToLower(b.Property("language").PlainText())
		return []string{"```" + lang + "\n" + b.Title().PlainText() + "\n```"}
	case BlockImage:
		return r.renderImage(b)
	case BlockBookmark:
		return r.renderBookmark(b)
	case BlockSimpleTable:
		return r.renderTable(b)
	case BlockPage:
		return r.renderPage(ctx, b)
	case BlockColumnList, BlockColumn:
		if joined := r.renderChildren(ctx, b); joined != "" {
			return []string{joined}
		}
		return nil
	default:
		slog.Debug("Skipping unsupported block", "block_id", id, "type", b.RawType)
		return nil
	}
}

func (r *Renderer) renderChildren(ctx context.Context, b *Block) string {
	var lines []string
	for _, child := range b.Content {
		lines = append(lines, r.Render(ctx, child)...)
	}
	return strings.Join(lines, "\n\n")
}

func (r *Renderer) renderToggle(ctx context.Context, b *Block) []string {
	body := r.renderChildren(ctx, b)
	return []string{fmt.Sprintf("<details>\n<summary>%s</summary>\n\n%s\n</details>", b.Title().Markdown(), body)}
}

func (r *Renderer) renderImage(b *Block) []string {
	source, ok := b.Scalar("source")
	if !ok {
		return nil
	}
	caption, _ := b.Scalar("caption")

	var spaceID string
	if root, ok := r.table.Get(r.rootID); ok {
		spaceID = root.SpaceID
	}

	src := fmt.Sprintf("%s/image/%s?table=block&id=%s&spaceId=%s&width=1420&userId=&cache=v2",
		r.imageBaseURL, escapeAll(source), b.ID, spaceID)

	lines := []string{fmt.Sprintf("![%s](%s)", caption, src)}
	if caption != "" {
		lines = append(lines, "*"+caption+"*")
	}
	return lines
}

func (r *Renderer) renderBookmark(b *Block) []string {
	link := b.Link()
	if link == "" {
		return nil
	}
	title := b.Title().Markdown()
	if title == "" {
		title = link
	}
	lines := []string{fmt.Sprintf("[%s](%s)", title, link)}
	if desc := b.Property("description").Markdown(); desc != "" {
		lines = append(lines, "> "+desc)
	}
	return lines
}

func (r *Renderer) renderTable(b *Block) []string {
	columns := b.Format("table_block_column_order").Array()

	var header []string
	var rows [][]string
	for _, rowID := range b.Content {
		row, ok := r.table.Get(rowID)
		if !ok {
			continue
		}

		var cells []string
		if len(row.Content) > 0 {
			for _, cellID := range row.Content {
				if cell, ok := r.table.Get(cellID); ok {
					cells = append(cells, cell.Title().Markdown())
				}
			}
		} else {
			for _, col := range columns {
				cells = append(cells, row.Property(col.String()).Markdown())
			}
		}

		if header == nil && len(cells) > 0 {
			header = cells
		} else {
			rows = append(rows, cells)
		}
	}

	if header == nil {
		return nil
	}

	lines := make([]string, 0, len(rows)+2)
	lines = append(lines, tableRow(header))
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	lines = append(lines, tableRow(sep))
	for _, row := range rows {
		for len(row) < len(header) {
			row = append(row, "")
		}
		lines = append(lines, tableRow(row))
	}
	return []string{strings.Join(lines, "\n")}
}

func tableRow(cells []string) string {
	return "| " + strings.Join(cells, " | ") + " |"
}

func (r *Renderer) renderPage(ctx context.Context, b *Block) []string {
	title := b.Title()
	plain := title.PlainText()

	if r.registry != nil {
		r.registry.Record(b.ID, plain, r.rootID)
	}
	if !r.seenPages[b.ID] {
		r.seenPages[b.ID] = true
		r.subpages = append(r.subpages, b.ID)
	}

	if r.mode == ModeMultiFile {
		slug := Slugify(plain)
		return []string{fmt.Sprintf("[%s](./%s/%s.md)", title.Markdown(), slug, slug)}
	}

	if r.inliner == nil {
		target, err := SubpageURL(r.pageURL, plain, b.ID)
		if err != nil {
			return []string{title.Markdown()}
		}
		return []string{fmt.Sprintf("[%s](%s)", title.Markdown(), target)}
	}

	body, ok := r.inliner.InlinePage(ctx, b.ID, plain)
	if !ok {
		return nil
	}
	return []string{"# " + title.Markdown(), body}
}

// escapeAll percent-encodes every byte outside the unreserved set, slashes
// and colons included.
func escapeAll(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
