// Package parser locates the page payload that published pages embed in
// their HTML.
package parser

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
	"golang.org/x/net/html"
)

// payloadMarker is the call published pages use to hand their prefetched
// record map to the client app.
const payloadMarker = `__notion_html_async.push("serverSidePrefetchData",`

// ErrPayloadMissing is returned when a document carries no extractable JSON
// payload.
var ErrPayloadMissing = errors.New("no page payload in document")

// PayloadParser extracts the embedded page payload from HTML documents
type PayloadParser struct{}

// Document is the parsed form of a fetched page
type Document struct {
	Title       string // contents of <title>
	Payload     []byte // embedded JSON payload
	ContentHash string // sha256 of the raw document
}

// NewPayloadParser creates a new payload parser
func NewPayloadParser() *PayloadParser {
	return &PayloadParser{}
}

// Parse parses raw HTML and extracts the title and the embedded payload.
// When the document parses but has no usable payload, the returned Document
// is still populated and the error is ErrPayloadMissing.
func (p *PayloadParser) Parse(raw []byte) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	hash := sha256.Sum256(raw)
	result := &Document{
		Title:       strings.TrimSpace(doc.Find("title").First().Text()),
		ContentHash: fmt.Sprintf("%x", hash),
	}

	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if payload, ok := payloadFromScript(s.Text()); ok {
			result.Payload = payload
			return false
		}
		return true
	})

	if result.Payload == nil {
		return result, ErrPayloadMissing
	}
	return result, nil
}

// ExtractPayload returns only the embedded JSON payload of raw.
func (p *PayloadParser) ExtractPayload(raw []byte) ([]byte, error) {
	doc, err := p.Parse(raw)
	if err != nil {
		return nil, err
	}
	return doc.Payload, nil
}

// payloadFromScript returns the JSON argument of the prefetch call in a
// script body. The argument runs from the marker to the last closing paren.
func payloadFromScript(script string) ([]byte, bool) {
	start := strings.Index(script, payloadMarker)
	if start < 0 {
		return nil, false
	}
	rest := script[start+len(payloadMarker):]

	end := strings.LastIndex(rest, ")")
	if end < 0 {
		return nil, false
	}
	payload := strings.TrimSpace(rest[:end])
	if payload == "" || !gjson.Valid(payload) {
		return nil, false
	}
	return []byte(payload), true
}
