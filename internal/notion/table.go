package notion

import (
	"github.com/tidwall/gjson"
)

// BlockTable is the per-page arena of blocks, keyed by block id. It keeps the
// payload's key order so lookups that scan the table are deterministic.
type BlockTable struct {
	blocks map[string]*Block
	order  []string
}

// NewBlockTable decodes a recordMap.block object. Entries that do not carry
// a block value are dropped.
func NewBlockTable(records gjson.Result) *BlockTable {
	t := &BlockTable{blocks: make(map[string]*Block)}
	records.ForEach(func(key, entry gjson.Result) bool {
		id := key.String()
		if b, ok := decodeBlock(id, entry); ok {
			if _, dup := t.blocks[id]; !dup {
				t.order = append(t.order, id)
			}
			t.blocks[id] = b
		}
		return true
	})
	return t
}

// Get returns the block with the given id.
func (t *BlockTable) Get(id string) (*Block, bool) {
	if t == nil {
		return nil, false
	}
	b, ok := t.blocks[id]
	return b, ok
}

// Len returns the number of decoded blocks.
func (t *BlockTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// FirstOfType returns the first block, in payload order, of the given type.
func (t *BlockTable) FirstOfType(typ BlockType) (*Block, bool) {
	if t == nil {
		return nil, false
	}
	for _, id := range t.order {
		if b := t.blocks[id]; b.Type == typ {
			return b, true
		}
	}
	return nil, false
}
