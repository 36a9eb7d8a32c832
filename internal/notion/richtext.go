package notion

import (
	"strings"

	"github.com/tidwall/gjson"
)

// FormatKind identifies an inline format marker.
type FormatKind int

const (
	FormatBold FormatKind = iota
	FormatItalic
	FormatStrikethrough
	FormatCode
	FormatLink
)

// Format is one marker attached to a text run. URL is only set for links.
type Format struct {
	Kind FormatKind
	URL  string
}

// Run is a fragment of text with its format markers.
type Run struct {
	Text    string
	Formats []Format
}

// RichText is an ordered sequence of runs.
type RichText []Run

// ParseRichText decodes a rich-text property value of the shape
// [["text", [["b"], ["a", "https://..."]]], ["more"]]. Bare string items and
// bare string markers ("b") are accepted as well. Markers this package does
// not render (colors, mentions, underline) are dropped.
func ParseRichText(v gjson.Result) RichText {
	if v.Type == gjson.String {
		return RichText{{Text: v.String()}}
	}
	if !v.IsArray() {
		return nil
	}

	var rt RichText
	for _, item := range v.Array() {
		switch {
		case item.Type == gjson.String:
			rt = append(rt, Run{Text: item.String()})
		case item.IsArray():
			parts := item.Array()
			if len(parts) == 0 {
				continue
			}
			run := Run{Text: parts[0].String()}
			if len(parts) > 1 && parts[1].IsArray() {
				for _, marker := range parts[1].Array() {
					if f, ok := parseFormat(marker); ok {
						run.Formats = append(run.Formats, f)
					}
				}
			}
			rt = append(rt, run)
		}
	}
	return rt
}

func parseFormat(marker gjson.Result) (Format, bool) {
	var code, arg string
	switch {
	case marker.Type == gjson.String:
		code = marker.String()
	case marker.IsArray():
		parts := marker.Array()
		if len(parts) == 0 {
			return Format{}, false
		}
		code = parts[0].String()
		if len(parts) > 1 {
			arg = parts[1].String()
		}
	default:
		return Format{}, false
	}

	switch code {
	case "b":
		return Format{Kind: FormatBold}, true
	case "i":
		return Format{Kind: FormatItalic}, true
	case "s":
		return Format{Kind: FormatStrikethrough}, true
	case "c":
		return Format{Kind: FormatCode}, true
	case "a":
		if arg == "" {
			return Format{}, false
		}
		return Format{Kind: FormatLink, URL: arg}, true
	}
	return Format{}, false
}

// Markdown renders the run. Markers are applied in a fixed order, bold then
// italic then strikethrough then code then link, each wrapping the result of
// the previous one, whatever order they were listed in. Source text is not
// escaped.
func (r Run) Markdown() string {
	var bold, italic, strike, code bool
	var link string
	for _, f := range r.Formats {
		switch f.Kind {
		case FormatBold:
			bold = true
		case FormatItalic:
			italic = true
		case FormatStrikethrough:
			strike = true
		case FormatCode:
			code = true
		case FormatLink:
			if link == "" {
				link = f.URL
			}
		}
	}

	text := r.Text
	if bold {
		text = "**" + text + "**"
	}
	if italic {
		text = "*" + text + "*"
	}
	if strike {
		text = "~~" + text + "~~"
	}
	if code {
		text = "`" + text + "`"
	}
	if link != "" {
		text = "[" + text + "](" + link + ")"
	}
	return text
}

// Markdown concatenates the rendered runs with no separator.
func (rt RichText) Markdown() string {
	var sb strings.Builder
	for _, r := range rt {
		sb.WriteString(r.Markdown())
	}
	return sb.String()
}

// PlainText concatenates the run texts, ignoring formatting.
func (rt RichText) PlainText() string {
	var sb strings.Builder
	for _, r := range rt {
		sb.WriteString(r.Text)
	}
	return sb.String()
}
