package aggregates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loom-backend/domain/config"
	"loom-backend/domain/core/valueobjects"
	pkgerrors "loom-backend/pkg/errors"
)

func mustBlocks(t *testing.T, cfg *config.TreeConfig, pairs ...[2]string) []valueobjects.Block {
	t.Helper()
	blocks := make([]valueobjects.Block, 0, len(pairs))
	for i, pair := range pairs {
		b, err := valueobjects.NewBlockWithConfig(valueobjects.BlockKind(pair[0]), pair[1], i, cfg)
		require.NoError(t, err)
		blocks = append(blocks, b)
	}
	return blocks
}

func TestCreateNode_Root(t *testing.T) {
	tree := NewTree(nil)

	node, err := tree.CreateNode(valueobjects.NodeID{}, nil)

	require.NoError(t, err)
	assert.True(t, node.IsRoot())
	assert.Equal(t, 0, node.Depth())
	assert.Equal(t, 1, tree.NodeCount())
	require.NoError(t, tree.ValidateIntegrity())

	// Empty block list yields the default prompt/response pair.
	blocks := node.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, valueobjects.KindPrompt, blocks[0].Kind())
	assert.Equal(t, valueobjects.KindResponse, blocks[1].Kind())
	assert.Equal(t, 0, blocks[0].Order())
	assert.Equal(t, 1, blocks[1].Order())
}

func TestCreateNode_ChildLinksAndDepth(t *testing.T) {
	tree := NewTree(nil)
	root, err := tree.CreateNode(valueobjects.NodeID{}, nil)
	require.NoError(t, err)

	child, err := tree.CreateNode(root.ID(), nil)
	require.NoError(t, err)

	assert.Equal(t, root.ID(), child.ParentID())
	assert.Equal(t, 1, child.Depth())

	children, err := tree.GetChildren(root.ID())
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, child.ID(), children[0].ID())
}

func TestCreateNode_UnknownParent(t *testing.T) {
	tree := NewTree(nil)

	_, err := tree.CreateNode(valueobjects.NewNodeID(), nil)

	require.Error(t, err)
	assert.True(t, pkgerrors.IsNodeNotFound(err))
	assert.Equal(t, 0, tree.NodeCount())
}

func TestDeleteNode_LeafOnly(t *testing.T) {
	tree := NewTree(nil)
	root, _ := tree.CreateNode(valueobjects.NodeID{}, nil)
	child, _ := tree.CreateNode(root.ID(), nil)

	// Parent with a child cannot be deleted.
	err := tree.DeleteNode(root.ID())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsTreeStructure(err))
	assert.Equal(t, 2, tree.NodeCount())

	// Leaf deletes fine and the parent's child list is repaired.
	require.NoError(t, tree.DeleteNode(child.ID()))
	assert.Equal(t, 1, tree.NodeCount())
	reloaded, err := tree.GetNode(root.ID())
	require.NoError(t, err)
	assert.True(t, reloaded.IsLeaf())
	require.NoError(t, tree.ValidateIntegrity())

	// Now the former parent is a leaf and can go too.
	require.NoError(t, tree.DeleteNode(root.ID()))
	assert.Equal(t, 0, tree.NodeCount())
}

func TestDeleteNode_Missing(t *testing.T) {
	tree := NewTree(nil)

	err := tree.DeleteNode(valueobjects.NewNodeID())

	assert.True(t, pkgerrors.IsNodeNotFound(err))
}

func TestUpdateBlockContent_BumpsVersion(t *testing.T) {
	tree := NewTree(nil)
	root, _ := tree.CreateNode(valueobjects.NodeID{}, nil)
	blockID := root.Blocks()[0].ID()
	before := root.Version()

	require.NoError(t, tree.UpdateBlockContent(root.ID(), blockID, "hello"))

	reloaded, _ := tree.GetNode(root.ID())
	assert.Equal(t, before+1, reloaded.Version())
	block, err := reloaded.Block(blockID)
	require.NoError(t, err)
	assert.Equal(t, "hello", block.Content())
}

func TestUpdateBlockContent_EscapesMarkup(t *testing.T) {
	tree := NewTree(nil)
	root, _ := tree.CreateNode(valueobjects.NodeID{}, nil)
	blockID := root.Blocks()[0].ID()

	require.NoError(t, tree.UpdateBlockContent(root.ID(), blockID, `<script>alert("x")</script>`))

	reloaded, _ := tree.GetNode(root.ID())
	block, _ := reloaded.Block(blockID)
	assert.NotContains(t, block.Content(), "<script>")
	assert.Contains(t, block.Content(), "&lt;script&gt;")
}

func TestUpdateBlockContent_MissingBlock(t *testing.T) {
	tree := NewTree(nil)
	root, _ := tree.CreateNode(valueobjects.NodeID{}, nil)

	err := tree.UpdateBlockContent(root.ID(), valueobjects.NewBlockID(), "x")

	assert.True(t, pkgerrors.IsBlockNotFound(err))
}

func TestAddRemoveBlock_KeepsOrdersGapless(t *testing.T) {
	tree := NewTree(nil)
	root, _ := tree.CreateNode(valueobjects.NodeID{}, nil)

	added, err := tree.AddBlock(root.ID(), valueobjects.KindNote, "a note")
	require.NoError(t, err)
	assert.Equal(t, 2, added.Order())

	// Remove the middle block; the note is reindexed down.
	middle := root.Blocks()[1].ID()
	require.NoError(t, tree.RemoveBlock(root.ID(), middle))

	reloaded, _ := tree.GetNode(root.ID())
	blocks := reloaded.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, 0, blocks[0].Order())
	assert.Equal(t, 1, blocks[1].Order())
	assert.Equal(t, valueobjects.KindNote, blocks[1].Kind())
	require.NoError(t, tree.ValidateIntegrity())
}

func TestSiblingOrderStable(t *testing.T) {
	tree := NewTree(nil)
	root, _ := tree.CreateNode(valueobjects.NodeID{}, nil)

	a, _ := tree.CreateNode(root.ID(), nil)
	b, _ := tree.CreateNode(root.ID(), nil)
	c, _ := tree.CreateNode(root.ID(), nil)

	children, err := tree.GetChildren(root.ID())
	require.NoError(t, err)
	require.Len(t, children, 3)
	assert.Equal(t, a.ID(), children[0].ID())
	assert.Equal(t, b.ID(), children[1].ID())
	assert.Equal(t, c.ID(), children[2].ID())
}

func TestAttachSiblingNode_InsertsAfterOriginal(t *testing.T) {
	cfg := config.DefaultTreeConfig()
	tree := NewTree(cfg)
	root, _ := tree.CreateNode(valueobjects.NodeID{}, nil)
	a, _ := tree.CreateNode(root.ID(), nil)
	b, _ := tree.CreateNode(root.ID(), nil)

	blocks := mustBlocks(t, cfg, [2]string{"prompt", "edited"})
	sibling, err := tree.AttachSiblingNode(root.ID(), a.ID(), blocks)
	require.NoError(t, err)

	children, _ := tree.GetChildren(root.ID())
	require.Len(t, children, 3)
	assert.Equal(t, a.ID(), children[0].ID())
	assert.Equal(t, sibling.ID(), children[1].ID())
	assert.Equal(t, b.ID(), children[2].ID())
	require.NoError(t, tree.ValidateIntegrity())
}

func TestMaxNodesPerTree(t *testing.T) {
	cfg := config.DefaultTreeConfig()
	cfg.MaxNodesPerTree = 2
	tree := NewTree(cfg)

	root, _ := tree.CreateNode(valueobjects.NodeID{}, nil)
	_, err := tree.CreateNode(root.ID(), nil)
	require.NoError(t, err)

	_, err = tree.CreateNode(root.ID(), nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestExportImport_RoundTrip(t *testing.T) {
	tree := NewTree(nil)
	root, _ := tree.CreateNode(valueobjects.NodeID{}, nil)
	child, _ := tree.CreateNode(root.ID(), nil)
	require.NoError(t, tree.UpdateBlockContent(root.ID(), root.Blocks()[0].ID(), "question"))
	require.NoError(t, tree.RenameNode(child.ID(), "continuation"))
	require.NoError(t, tree.SetNodeCollapsed(child.ID(), true))

	snapshot := tree.Export()
	restored, err := ImportTree(snapshot, nil)
	require.NoError(t, err)

	assert.Equal(t, tree.NodeCount(), restored.NodeCount())
	require.NoError(t, restored.ValidateIntegrity())

	restoredRoot, err := restored.GetNode(root.ID())
	require.NoError(t, err)
	block, err := restoredRoot.Block(root.Blocks()[0].ID())
	require.NoError(t, err)
	assert.Equal(t, "question", block.Content())

	restoredChild, err := restored.GetNode(child.ID())
	require.NoError(t, err)
	assert.Equal(t, "continuation", restoredChild.Name())
	assert.True(t, restoredChild.Collapsed())
	assert.Equal(t, root.ID(), restoredChild.ParentID())
}

func TestExport_Deterministic(t *testing.T) {
	tree := NewTree(nil)
	root, _ := tree.CreateNode(valueobjects.NodeID{}, nil)
	tree.CreateNode(root.ID(), nil)
	tree.CreateNode(root.ID(), nil)

	first := tree.Export()
	second := tree.Export()

	require.Equal(t, len(first.Nodes), len(second.Nodes))
	for i := range first.Nodes {
		assert.Equal(t, first.Nodes[i].ID, second.Nodes[i].ID)
	}
}

func TestImportTree_SortsBlocksByOrder(t *testing.T) {
	tree := NewTree(nil)
	root, _ := tree.CreateNode(valueobjects.NodeID{}, nil)
	require.NoError(t, tree.UpdateBlockContent(root.ID(), root.Blocks()[0].ID(), "the question"))
	require.NoError(t, tree.UpdateBlockContent(root.ID(), root.Blocks()[1].ID(), "the answer"))

	// A shuffled block array with intact order indices must come back
	// in order-index order.
	snapshot := tree.Export()
	recs := snapshot.Nodes[0].Blocks
	recs[0], recs[1] = recs[1], recs[0]

	restored, err := ImportTree(snapshot, nil)
	require.NoError(t, err)

	node, err := restored.GetNode(root.ID())
	require.NoError(t, err)
	blocks := node.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, 0, blocks[0].Order())
	assert.Equal(t, valueobjects.KindPrompt, blocks[0].Kind())
	assert.Equal(t, "the question", blocks[0].Content())
	assert.Equal(t, "the answer", blocks[1].Content())
}

func TestImportTree_RejectsCorruptSnapshot(t *testing.T) {
	tree := NewTree(nil)
	root, _ := tree.CreateNode(valueobjects.NodeID{}, nil)
	tree.CreateNode(root.ID(), nil)

	snapshot := tree.Export()
	// Point the child at a parent that does not exist.
	for i := range snapshot.Nodes {
		if snapshot.Nodes[i].ParentID != "" {
			snapshot.Nodes[i].ParentID = valueobjects.NewNodeID().String()
		}
	}

	_, err := ImportTree(snapshot, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsTreeStructure(err))
}

func TestImportTree_RejectsDepthMismatch(t *testing.T) {
	tree := NewTree(nil)
	root, _ := tree.CreateNode(valueobjects.NodeID{}, nil)
	tree.CreateNode(root.ID(), nil)

	snapshot := tree.Export()
	for i := range snapshot.Nodes {
		if snapshot.Nodes[i].ParentID != "" {
			snapshot.Nodes[i].Depth = 5
		}
	}

	_, err := ImportTree(snapshot, nil)
	assert.True(t, pkgerrors.IsTreeStructure(err))
}

func TestApplyLayout_AssignsPositions(t *testing.T) {
	tree := NewTree(nil)
	root, _ := tree.CreateNode(valueobjects.NodeID{}, nil)

	tree.ApplyLayout(map[string]valueobjects.Position{
		root.ID().String(): valueobjects.NewPosition(40, 40),
	})

	reloaded, _ := tree.GetNode(root.ID())
	assert.Equal(t, 40.0, reloaded.Position().X())
	assert.Equal(t, 40.0, reloaded.Position().Y())
}

func TestEvents_AccumulateAndClear(t *testing.T) {
	tree := NewTree(nil)
	root, _ := tree.CreateNode(valueobjects.NodeID{}, nil)
	tree.UpdateBlockContent(root.ID(), root.Blocks()[0].ID(), "x")

	events := tree.GetUncommittedEvents()
	require.Len(t, events, 2)
	assert.Equal(t, "node.created", events[0].GetEventType())
	assert.Equal(t, "block.content_updated", events[1].GetEventType())

	tree.MarkEventsAsCommitted()
	assert.Empty(t, tree.GetUncommittedEvents())
}
