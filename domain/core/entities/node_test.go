package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loom-backend/domain/core/valueobjects"
	pkgerrors "loom-backend/pkg/errors"
)

func newTestNode(t *testing.T) *Node {
	t.Helper()
	node, err := NewNode(valueobjects.NodeID{}, 0, nil, nil)
	require.NoError(t, err)
	return node
}

func addChildren(t *testing.T, node *Node, count int) []valueobjects.NodeID {
	t.Helper()
	ids := make([]valueobjects.NodeID, 0, count)
	for i := 0; i < count; i++ {
		id := valueobjects.NewNodeID()
		require.NoError(t, node.AddChild(id))
		ids = append(ids, id)
	}
	return ids
}

func TestInsertChildAt_RestoresOriginalIndex(t *testing.T) {
	node := newTestNode(t)
	ids := addChildren(t, node, 3)

	// Remove the middle child and put it back where it was.
	require.NoError(t, node.RemoveChild(ids[1]))
	require.NoError(t, node.InsertChildAt(ids[1], 1))

	children := node.ChildIDs()
	require.Len(t, children, 3)
	assert.Equal(t, ids[0], children[0])
	assert.Equal(t, ids[1], children[1])
	assert.Equal(t, ids[2], children[2])
}

func TestInsertChildAt_FrontAndEnd(t *testing.T) {
	node := newTestNode(t)
	ids := addChildren(t, node, 2)

	first := valueobjects.NewNodeID()
	require.NoError(t, node.InsertChildAt(first, 0))
	last := valueobjects.NewNodeID()
	require.NoError(t, node.InsertChildAt(last, node.ChildCount()))

	children := node.ChildIDs()
	require.Len(t, children, 4)
	assert.Equal(t, first, children[0])
	assert.Equal(t, ids[0], children[1])
	assert.Equal(t, ids[1], children[2])
	assert.Equal(t, last, children[3])
}

func TestInsertChildAt_RejectsDuplicateAndBadIndex(t *testing.T) {
	node := newTestNode(t)
	ids := addChildren(t, node, 2)

	err := node.InsertChildAt(ids[0], 1)
	assert.True(t, pkgerrors.IsTreeStructure(err))

	err = node.InsertChildAt(valueobjects.NewNodeID(), 3)
	assert.True(t, pkgerrors.IsTreeStructure(err))

	err = node.InsertChildAt(valueobjects.NewNodeID(), -1)
	assert.True(t, pkgerrors.IsTreeStructure(err))

	err = node.InsertChildAt(valueobjects.NodeID{}, 0)
	assert.True(t, pkgerrors.IsValidation(err))

	assert.Equal(t, 2, node.ChildCount())
}
