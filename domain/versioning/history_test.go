package versioning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loom-backend/domain/branching"
	"loom-backend/domain/core/valueobjects"
)

func meta(original valueobjects.NodeID) branching.BranchMetadata {
	return branching.BranchMetadata{
		BranchID:       valueobjects.NewBranchID(),
		OriginalNodeID: original,
		BranchNodeID:   valueobjects.NewNodeID(),
		EditedBlockID:  valueobjects.NewBlockID(),
		Source:         branching.SourceInlineEdit,
		CreatedAt:      time.Now(),
	}
}

func TestHistory_AppendOrder(t *testing.T) {
	history := NewHistory()
	first := meta(valueobjects.NewNodeID())
	second := meta(valueobjects.NewNodeID())

	history.Append(first)
	history.Append(second)

	entries := history.List()
	require.Len(t, entries, 2)
	assert.Equal(t, first.BranchID, entries[0].BranchID)
	assert.Equal(t, second.BranchID, entries[1].BranchID)
	assert.Equal(t, 2, history.Len())
}

func TestHistory_RepeatedEditsAppendSeparately(t *testing.T) {
	history := NewHistory()
	original := valueobjects.NewNodeID()

	history.Append(meta(original))
	history.Append(meta(original))
	history.Append(meta(original))

	entries := history.ListByOriginal(original)
	require.Len(t, entries, 3)
	assert.NotEqual(t, entries[0].BranchID, entries[1].BranchID)
	assert.NotEqual(t, entries[1].BranchID, entries[2].BranchID)
}

func TestHistory_ListByOriginalFilters(t *testing.T) {
	history := NewHistory()
	target := valueobjects.NewNodeID()
	other := valueobjects.NewNodeID()

	history.Append(meta(target))
	history.Append(meta(other))
	history.Append(meta(target))

	entries := history.ListByOriginal(target)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.True(t, entry.OriginalNodeID.Equals(target))
	}
	assert.Empty(t, history.ListByOriginal(valueobjects.NewNodeID()))
}

func TestHistory_ListReturnsCopy(t *testing.T) {
	history := NewHistory()
	history.Append(meta(valueobjects.NewNodeID()))

	entries := history.List()
	entries[0].Source = branching.SourceChatEdit

	assert.Equal(t, branching.SourceInlineEdit, history.List()[0].Source)
}

func TestHistory_Restore(t *testing.T) {
	history := NewHistory()
	history.Append(meta(valueobjects.NewNodeID()))

	replacement := []branching.BranchMetadata{meta(valueobjects.NewNodeID()), meta(valueobjects.NewNodeID())}
	history.Restore(replacement)

	entries := history.List()
	require.Len(t, entries, 2)
	assert.Equal(t, replacement[0].BranchID, entries[0].BranchID)
	assert.Equal(t, replacement[1].BranchID, entries[1].BranchID)
}
