package notion

import (
	"github.com/tidwall/gjson"
)

// BlockType is the closed set of block kinds the renderer understands.
// Anything else decodes to BlockUnknown and renders to nothing.
type BlockType string

const (
	BlockText         BlockType = "text"
	BlockHeader       BlockType = "header"
	BlockSubHeader    BlockType = "sub_header"
	BlockSubSubHeader BlockType = "sub_sub_header"
	BlockBulletedList BlockType = "bulleted_list"
	BlockNumberedList BlockType = "numbered_list"
	BlockToDo         BlockType = "to_do"
	BlockToggle       BlockType = "toggle"
	BlockCallout      BlockType = "callout"
	BlockQuote        BlockType = "quote"
	BlockDivider      BlockType = "divider"
	BlockCode         BlockType = "code"
	BlockImage        BlockType = "image"
	BlockBookmark     BlockType = "bookmark"
	BlockSimpleTable  BlockType = "table"
	BlockTableRow     BlockType = "table_row"
	BlockPage         BlockType = "page"
	BlockColumnList   BlockType = "column_list"
	BlockColumn       BlockType = "column"
	BlockUnknown      BlockType = "unknown"
)

var knownBlockTypes = map[BlockType]bool{
	BlockText:         true,
	BlockHeader:       true,
	BlockSubHeader:    true,
	BlockSubSubHeader: true,
	BlockBulletedList: true,
	BlockNumberedList: true,
	BlockToDo:         true,
	BlockToggle:       true,
	BlockCallout:      true,
	BlockQuote:        true,
	BlockDivider:      true,
	BlockCode:         true,
	BlockImage:        true,
	BlockBookmark:     true,
	BlockSimpleTable:  true,
	BlockTableRow:     true,
	BlockPage:         true,
	BlockColumnList:   true,
	BlockColumn:       true,
}

// ParseBlockType maps a raw type string to a BlockType, falling back to
// BlockUnknown.
func ParseBlockType(s string) BlockType {
	t := BlockType(s)
	if knownBlockTypes[t] {
		return t
	}
	return BlockUnknown
}

// Block is one node of the page graph.
type Block struct {
	ID         string
	Type       BlockType
	RawType    string                  // type string as found in the payload
	Properties map[string]gjson.Result // property name -> raw rich-text value
	Content    []string                // ordered child block ids
	SpaceID    string

	raw gjson.Result
}

// Property decodes the named property as rich text. Missing properties yield
// an empty RichText.
func (b *Block) Property(name string) RichText {
	v, ok := b.Properties[name]
	if !ok {
		return nil
	}
	return ParseRichText(v)
}

// Title is shorthand for Property("title").
func (b *Block) Title() RichText {
	return b.Property("title")
}

// Scalar returns the first scalar found by repeatedly taking the first element
// of a (possibly nested) list property.
func (b *Block) Scalar(name string) (string, bool) {
	v, ok := b.Properties[name]
	if !ok {
		return "", false
	}
	return firstScalar(v)
}

// Checked reports the to_do state, stored either as a boolean field or as a
// "Yes" checked property.
func (b *Block) Checked() bool {
	if c := b.raw.Get("checked"); c.Exists() {
		return c.Bool()
	}
	v, _ := b.Scalar("checked")
	return v == "Yes"
}

// Link returns the bookmark target.
func (b *Block) Link() string {
	if l := b.raw.Get("link"); l.Type == gjson.String && l.String() != "" {
		return l.String()
	}
	v, _ := b.Scalar("link")
	return v
}

// Format returns a value from the block's format object.
func (b *Block) Format(path string) gjson.Result {
	return b.raw.Get("format." + path)
}

func firstScalar(v gjson.Result) (string, bool) {
	for v.IsArray() {
		items := v.Array()
		if len(items) == 0 {
			return "", false
		}
		v = items[0]
	}
	if !v.Exists() || v.Type == gjson.Null || v.IsObject() {
		return "", false
	}
	s := v.String()
	return s, s != ""
}

// decodeBlock unwraps a record-map entry. Entries come either as
// {value:{value:{...}}} or {value:{...}}.
func decodeBlock(id string, entry gjson.Result) (*Block, bool) {
	v := entry.Get("value")
	if inner := v.Get("value"); inner.IsObject() {
		v = inner
	}
	if !v.IsObject() {
		return nil, false
	}

	b := &Block{
		ID:         id,
		RawType:    v.Get("type").String(),
		Properties: make(map[string]gjson.Result),
		raw:        v,
	}
	b.Type = ParseBlockType(b.RawType)

	v.Get("properties").ForEach(func(key, value gjson.Result) bool {
		b.Properties[key.String()] = value
		return true
	})

	for _, child := range v.Get("content").Array() {
		if child.Type == gjson.String {
			b.Content = append(b.Content, child.String())
		}
	}

	b.SpaceID = entry.Get("spaceId").String()
	if b.SpaceID == "" {
		b.SpaceID = v.Get("space_id").String()
	}

	return b, true
}
