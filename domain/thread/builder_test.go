package thread

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loom-backend/domain/branching"
	"loom-backend/domain/core/aggregates"
	"loom-backend/domain/core/valueobjects"
	pkgerrors "loom-backend/pkg/errors"
)

func chain(t *testing.T, depth int) (*aggregates.Tree, []valueobjects.NodeID) {
	t.Helper()
	tree := aggregates.NewTree(nil)
	var ids []valueobjects.NodeID
	parent := valueobjects.NodeID{}
	for i := 0; i <= depth; i++ {
		node, err := tree.CreateNode(parent, nil)
		require.NoError(t, err)
		ids = append(ids, node.ID())
		parent = node.ID()
	}
	return tree, ids
}

func TestBuildThread_RootFirstOrder(t *testing.T) {
	tree, ids := chain(t, 2)
	builder := NewBuilder()

	messages, err := builder.BuildThread(tree, ids[2])
	require.NoError(t, err)

	// Three nodes with the default prompt/response pair each.
	require.Len(t, messages, 6)
	assert.Equal(t, ids[0], messages[0].NodeID)
	assert.Equal(t, ids[0], messages[1].NodeID)
	assert.Equal(t, ids[1], messages[2].NodeID)
	assert.Equal(t, ids[2], messages[4].NodeID)
	assert.Equal(t, 0, messages[0].Depth)
	assert.Equal(t, 2, messages[5].Depth)
}

func TestBuildThread_BlocksInOrderWithinNode(t *testing.T) {
	tree, ids := chain(t, 0)
	require.NoError(t, tree.UpdateBlockContent(ids[0], blockAt(t, tree, ids[0], 0), "question"))
	require.NoError(t, tree.UpdateBlockContent(ids[0], blockAt(t, tree, ids[0], 1), "answer"))

	messages, err := NewBuilder().BuildThread(tree, ids[0])
	require.NoError(t, err)

	require.Len(t, messages, 2)
	assert.Equal(t, valueobjects.KindPrompt, messages[0].Kind)
	assert.Equal(t, "question", messages[0].Content)
	assert.Equal(t, valueobjects.KindResponse, messages[1].Kind)
	assert.Equal(t, "answer", messages[1].Content)
}

func TestBuildThread_NodeCountMatchesDepth(t *testing.T) {
	tree, ids := chain(t, 3)

	messages, err := NewBuilder().BuildThread(tree, ids[3])
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, m := range messages {
		seen[m.NodeID.String()] = true
	}
	assert.Len(t, seen, 4)
}

func TestBuildThread_IgnoresSiblings(t *testing.T) {
	tree, ids := chain(t, 1)
	// A sibling of the target's parent must never appear in the thread.
	_, err := tree.CreateNode(ids[0], nil)
	require.NoError(t, err)

	messages, err := NewBuilder().BuildThread(tree, ids[1])
	require.NoError(t, err)

	for _, m := range messages {
		assert.Contains(t, []valueobjects.NodeID{ids[0], ids[1]}, m.NodeID)
	}
}

func TestBuildThread_StableAcrossBranchInsertion(t *testing.T) {
	tree, ids := chain(t, 2)
	builder := NewBuilder()

	before, err := builder.BuildThread(tree, ids[2])
	require.NoError(t, err)

	// Forking the middle node displaces ids[2]'s parent sideways in the
	// child order but leaves its ancestry untouched.
	engine := branching.NewEngine()
	middle, _ := tree.GetNode(ids[1])
	_, err = engine.CreateBranchFromEdit(tree, ids[1], middle.Blocks()[0].ID(), "fork", branching.SourceInlineEdit)
	require.NoError(t, err)

	after, err := builder.BuildThread(tree, ids[2])
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestBuildThread_MissingNode(t *testing.T) {
	tree, _ := chain(t, 0)

	_, err := NewBuilder().BuildThread(tree, valueobjects.NewNodeID())

	assert.True(t, pkgerrors.IsNodeNotFound(err))
}

func blockAt(t *testing.T, tree *aggregates.Tree, nodeID valueobjects.NodeID, index int) valueobjects.BlockID {
	t.Helper()
	node, err := tree.GetNode(nodeID)
	require.NoError(t, err)
	return node.Blocks()[index].ID()
}
