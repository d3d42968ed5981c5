package branching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loom-backend/domain/core/aggregates"
	"loom-backend/domain/core/valueobjects"
	pkgerrors "loom-backend/pkg/errors"
)

func seedTree(t *testing.T) (*aggregates.Tree, valueobjects.NodeID, valueobjects.NodeID) {
	t.Helper()
	tree := aggregates.NewTree(nil)
	root, err := tree.CreateNode(valueobjects.NodeID{}, nil)
	require.NoError(t, err)
	child, err := tree.CreateNode(root.ID(), nil)
	require.NoError(t, err)
	require.NoError(t, tree.UpdateBlockContent(child.ID(), childBlockID(t, tree, child.ID(), 0), "original question"))
	tree.MarkEventsAsCommitted()
	return tree, root.ID(), child.ID()
}

func childBlockID(t *testing.T, tree *aggregates.Tree, nodeID valueobjects.NodeID, index int) valueobjects.BlockID {
	t.Helper()
	node, err := tree.GetNode(nodeID)
	require.NoError(t, err)
	return node.Blocks()[index].ID()
}

func TestCreateBranchFromEdit_ForksSibling(t *testing.T) {
	tree, rootID, originalID := seedTree(t)
	engine := NewEngine()
	blockID := childBlockID(t, tree, originalID, 0)

	result, err := engine.CreateBranchFromEdit(tree, originalID, blockID, "edited question", SourceInlineEdit)
	require.NoError(t, err)

	branch, err := tree.GetNode(result.NewNode)
	require.NoError(t, err)

	// The branch is a sibling of the original, not a child.
	assert.Equal(t, rootID, branch.ParentID())
	original, _ := tree.GetNode(originalID)
	assert.Equal(t, original.Depth(), branch.Depth())

	// The branch starts as a leaf.
	assert.True(t, branch.IsLeaf())

	// The edited block carries the new content; the rest mirrors the original.
	branchBlocks := branch.Blocks()
	require.Len(t, branchBlocks, 2)
	assert.Equal(t, "edited question", branchBlocks[0].Content())
	assert.Equal(t, original.Blocks()[1].Content(), branchBlocks[1].Content())

	// Block identities are fresh, never aliased from the original.
	assert.NotEqual(t, original.Blocks()[0].ID(), branchBlocks[0].ID())
	assert.NotEqual(t, original.Blocks()[1].ID(), branchBlocks[1].ID())
}

func TestCreateBranchFromEdit_NeverMutatesOriginal(t *testing.T) {
	tree, _, originalID := seedTree(t)
	engine := NewEngine()
	blockID := childBlockID(t, tree, originalID, 0)

	before, _ := tree.GetNode(originalID)
	contentBefore := before.Blocks()[0].Content()
	versionBefore := before.Version()

	_, err := engine.CreateBranchFromEdit(tree, originalID, blockID, "edited", SourceChatEdit)
	require.NoError(t, err)

	after, _ := tree.GetNode(originalID)
	assert.Equal(t, contentBefore, after.Blocks()[0].Content())
	assert.Equal(t, versionBefore, after.Version())
}

func TestCreateBranchFromEdit_DescendantsNotCopied(t *testing.T) {
	tree, _, originalID := seedTree(t)
	// Give the original a descendant subtree.
	grandchild, err := tree.CreateNode(originalID, nil)
	require.NoError(t, err)
	tree.CreateNode(grandchild.ID(), nil)

	engine := NewEngine()
	blockID := childBlockID(t, tree, originalID, 0)
	result, err := engine.CreateBranchFromEdit(tree, originalID, blockID, "fork", SourceInlineEdit)
	require.NoError(t, err)

	branch, _ := tree.GetNode(result.NewNode)
	assert.True(t, branch.IsLeaf())

	// The original keeps its subtree.
	original, _ := tree.GetNode(originalID)
	assert.Equal(t, 1, original.ChildCount())
}

func TestCreateBranchFromEdit_SiblingPlacement(t *testing.T) {
	tree, rootID, originalID := seedTree(t)
	// A later sibling the branch must slot in front of.
	later, err := tree.CreateNode(rootID, nil)
	require.NoError(t, err)

	engine := NewEngine()
	blockID := childBlockID(t, tree, originalID, 0)
	result, err := engine.CreateBranchFromEdit(tree, originalID, blockID, "fork", SourceInlineEdit)
	require.NoError(t, err)

	children, err := tree.GetChildren(rootID)
	require.NoError(t, err)
	require.Len(t, children, 3)
	assert.Equal(t, originalID, children[0].ID())
	assert.Equal(t, result.NewNode, children[1].ID())
	assert.Equal(t, later.ID(), children[2].ID())
}

func TestCreateBranchFromEdit_RootNode(t *testing.T) {
	tree := aggregates.NewTree(nil)
	root, err := tree.CreateNode(valueobjects.NodeID{}, nil)
	require.NoError(t, err)

	engine := NewEngine()
	result, err := engine.CreateBranchFromEdit(tree, root.ID(), root.Blocks()[0].ID(), "fork", SourceInlineEdit)
	require.NoError(t, err)

	branch, _ := tree.GetNode(result.NewNode)
	assert.True(t, branch.IsRoot())
	assert.Equal(t, 0, branch.Depth())
	require.NoError(t, tree.ValidateIntegrity())
}

func TestCreateBranchFromEdit_Errors(t *testing.T) {
	tree, _, originalID := seedTree(t)
	engine := NewEngine()
	blockID := childBlockID(t, tree, originalID, 0)

	t.Run("missing node", func(t *testing.T) {
		_, err := engine.CreateBranchFromEdit(tree, valueobjects.NewNodeID(), blockID, "x", SourceInlineEdit)
		assert.True(t, pkgerrors.IsNodeNotFound(err))
	})

	t.Run("missing block", func(t *testing.T) {
		before := tree.NodeCount()
		_, err := engine.CreateBranchFromEdit(tree, originalID, valueobjects.NewBlockID(), "x", SourceInlineEdit)
		assert.True(t, pkgerrors.IsBlockNotFound(err))
		assert.Equal(t, before, tree.NodeCount())
	})

	t.Run("unknown source", func(t *testing.T) {
		_, err := engine.CreateBranchFromEdit(tree, originalID, blockID, "x", EditSource("drag"))
		assert.True(t, pkgerrors.IsValidation(err))
	})
}

func TestCreateBranchFromEdit_MetadataRecorded(t *testing.T) {
	tree, _, originalID := seedTree(t)
	engine := NewEngine()
	blockID := childBlockID(t, tree, originalID, 0)

	result, err := engine.CreateBranchFromEdit(tree, originalID, blockID, "x", SourceChatEdit)
	require.NoError(t, err)

	meta := result.Metadata
	assert.Equal(t, originalID, meta.OriginalNodeID)
	assert.Equal(t, result.NewNode, meta.BranchNodeID)
	assert.Equal(t, blockID, meta.EditedBlockID)
	assert.Equal(t, SourceChatEdit, meta.Source)
	assert.NotEmpty(t, meta.BranchID.String())
	assert.False(t, meta.CreatedAt.IsZero())
}

func TestBothSurfacesProduceIdenticalSemantics(t *testing.T) {
	for _, source := range []EditSource{SourceInlineEdit, SourceChatEdit} {
		tree, rootID, originalID := seedTree(t)
		engine := NewEngine()
		blockID := childBlockID(t, tree, originalID, 0)

		result, err := engine.CreateBranchFromEdit(tree, originalID, blockID, "same edit", source)
		require.NoError(t, err)

		branch, _ := tree.GetNode(result.NewNode)
		assert.Equal(t, rootID, branch.ParentID())
		assert.Equal(t, "same edit", branch.Blocks()[0].Content())
		assert.Equal(t, source, result.Metadata.Source)
	}
}
