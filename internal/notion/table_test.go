package notion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestNewBlockTableRecordShapes(t *testing.T) {
	records := gjson.Parse(`{
		"double": {"spaceId": "space-a", "value": {"value": {"type": "text", "properties": {"title": [["Double"]]}, "content": ["single"]}, "role": "reader"}},
		"single": {"value": {"type": "to_do", "space_id": "space-b", "checked": false, "properties": {"title": [["Single"]]}}},
		"broken": {"role": "none"},
		"scalar": {"value": "nope"}
	}`)

	table := NewBlockTable(records)
	require.Equal(t, 2, table.Len())

	double, ok := table.Get("double")
	require.True(t, ok)
	assert.Equal(t, BlockText, double.Type)
	assert.Equal(t, "Double", double.Title().PlainText())
	assert.Equal(t, []string{"single"}, double.Content)
	assert.Equal(t, "space-a", double.SpaceID)

	single, ok := table.Get("single")
	require.True(t, ok)
	assert.Equal(t, BlockToDo, single.Type)
	assert.Equal(t, "space-b", single.SpaceID)
	assert.False(t, single.Checked())

	_, ok = table.Get("broken")
	assert.False(t, ok)
	_, ok = table.Get("scalar")
	assert.False(t, ok)
}

func TestBlockTableFirstOfType(t *testing.T) {
	table := NewBlockTable(gjson.Parse(`{
		"t": {"value": {"type": "text"}},
		"p2": {"value": {"type": "page"}},
		"p1": {"value": {"type": "page"}}
	}`))

	b, ok := table.FirstOfType(BlockPage)
	require.True(t, ok)
	assert.Equal(t, "p2", b.ID)

	_, ok = table.FirstOfType(BlockImage)
	assert.False(t, ok)

	var nilTable *BlockTable
	assert.Zero(t, nilTable.Len())
	_, ok = nilTable.Get("t")
	assert.False(t, ok)
}

func TestBlockUnknownTypeKeepsRaw(t *testing.T) {
	table := NewBlockTable(gjson.Parse(`{"e": {"value": {"type": "embed", "content": ["x", 7]}}}`))

	b, ok := table.Get("e")
	require.True(t, ok)
	assert.Equal(t, BlockUnknown, b.Type)
	assert.Equal(t, "embed", b.RawType)
	assert.Equal(t, []string{"x"}, b.Content)
}
