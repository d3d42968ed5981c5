package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loom-backend/domain/config"
	"loom-backend/domain/core/aggregates"
	"loom-backend/domain/core/valueobjects"
)

func buildTree(t *testing.T, cfg *config.TreeConfig, childrenPerLevel ...int) (*aggregates.Tree, []valueobjects.NodeID) {
	t.Helper()
	tree := aggregates.NewTree(cfg)
	root, err := tree.CreateNode(valueobjects.NodeID{}, nil)
	require.NoError(t, err)

	var all []valueobjects.NodeID
	all = append(all, root.ID())
	parents := []valueobjects.NodeID{root.ID()}
	for _, n := range childrenPerLevel {
		var next []valueobjects.NodeID
		for _, p := range parents {
			for i := 0; i < n; i++ {
				child, err := tree.CreateNode(p, nil)
				require.NoError(t, err)
				next = append(next, child.ID())
				all = append(all, child.ID())
			}
		}
		parents = next
	}
	return tree, all
}

func TestComputeLayout_Deterministic(t *testing.T) {
	cfg := config.DefaultTreeConfig()
	tree, _ := buildTree(t, cfg, 3, 2)
	engine := NewEngine(cfg)

	first := engine.ComputeLayout(tree)
	second := engine.ComputeLayout(tree)

	require.Equal(t, len(first), len(second))
	for id, pos := range first {
		assert.True(t, pos.Equals(second[id]), "node %s moved between runs", id)
	}
}

func TestComputeLayout_EveryNodePlaced(t *testing.T) {
	cfg := config.DefaultTreeConfig()
	tree, all := buildTree(t, cfg, 2, 2)
	engine := NewEngine(cfg)

	positions := engine.ComputeLayout(tree)

	assert.Len(t, positions, len(all))
	for _, id := range all {
		_, ok := positions[id.String()]
		assert.True(t, ok, "node %s missing from layout", id)
	}
}

func TestComputeLayout_SiblingsDisjoint(t *testing.T) {
	cfg := config.DefaultTreeConfig()
	tree, _ := buildTree(t, cfg, 4, 3)
	engine := NewEngine(cfg)

	positions := engine.ComputeLayout(tree)

	// Group nodes by depth and check horizontal spans never overlap.
	byDepth := make(map[int][]float64)
	for _, node := range tree.AllNodes() {
		pos := positions[node.ID().String()]
		byDepth[node.Depth()] = append(byDepth[node.Depth()], pos.X())
	}
	for depth, xs := range byDepth {
		for i := range xs {
			for j := i + 1; j < len(xs); j++ {
				lo, hi := xs[i], xs[j]
				if lo > hi {
					lo, hi = hi, lo
				}
				assert.GreaterOrEqual(t, hi-lo, cfg.NodeWidth,
					"depth %d nodes overlap horizontally", depth)
			}
		}
	}
}

func TestComputeLayout_ParentCenteredOverChildren(t *testing.T) {
	cfg := config.DefaultTreeConfig()
	tree, _ := buildTree(t, cfg, 2)
	engine := NewEngine(cfg)

	positions := engine.ComputeLayout(tree)

	root := tree.Roots()[0]
	children, _ := tree.GetChildren(root.ID())
	require.Len(t, children, 2)

	rootPos := positions[root.ID().String()]
	left := positions[children[0].ID().String()]
	right := positions[children[1].ID().String()]

	childrenCenter := (left.X() + right.X() + cfg.NodeWidth) / 2
	rootCenter := rootPos.X() + cfg.NodeWidth/2
	assert.InDelta(t, childrenCenter, rootCenter, 0.001)
}

func TestComputeLayout_DepthBands(t *testing.T) {
	cfg := config.DefaultTreeConfig()
	tree, _ := buildTree(t, cfg, 2, 1)
	engine := NewEngine(cfg)

	positions := engine.ComputeLayout(tree)

	// All nodes at the same depth share a Y; deeper bands sit strictly lower.
	yByDepth := make(map[int]float64)
	for _, node := range tree.AllNodes() {
		pos := positions[node.ID().String()]
		if y, seen := yByDepth[node.Depth()]; seen {
			assert.Equal(t, y, pos.Y(), "depth %d nodes not on one band", node.Depth())
		} else {
			yByDepth[node.Depth()] = pos.Y()
		}
	}
	assert.Less(t, yByDepth[0], yByDepth[1])
	assert.Less(t, yByDepth[1], yByDepth[2])
}

func TestComputeLayout_TallSiblingGrowsBand(t *testing.T) {
	cfg := config.DefaultTreeConfig()
	tree := aggregates.NewTree(cfg)
	root, _ := tree.CreateNode(valueobjects.NodeID{}, nil)
	tall, _ := tree.CreateNode(root.ID(), nil)
	tree.CreateNode(root.ID(), nil)
	grandchild, _ := tree.CreateNode(tall.ID(), nil)

	engine := NewEngine(cfg)
	before := engine.ComputeLayout(tree)
	beforeY := before[grandchild.ID().String()].Y()

	// Blocks added to one depth-1 sibling push the depth-2 band down.
	for i := 0; i < 5; i++ {
		_, err := tree.AddBlock(tall.ID(), valueobjects.KindNote, "note")
		require.NoError(t, err)
	}
	after := engine.ComputeLayout(tree)
	assert.Greater(t, after[grandchild.ID().String()].Y(), beforeY)
}

func TestRenderedHeight_Collapsed(t *testing.T) {
	cfg := config.DefaultTreeConfig()
	tree := aggregates.NewTree(cfg)
	root, _ := tree.CreateNode(valueobjects.NodeID{}, nil)
	engine := NewEngine(cfg)

	expanded := engine.RenderedHeight(root)
	assert.Equal(t, cfg.NodeHeaderHeight+2*cfg.DefaultBlockHeight, expanded)

	require.NoError(t, tree.SetNodeCollapsed(root.ID(), true))
	collapsed, _ := tree.GetNode(root.ID())
	assert.Equal(t, cfg.CollapsedNodeHeight, engine.RenderedHeight(collapsed))
}

func TestRenderedHeight_MinimizedAndResized(t *testing.T) {
	cfg := config.DefaultTreeConfig()
	tree := aggregates.NewTree(cfg)
	root, _ := tree.CreateNode(valueobjects.NodeID{}, nil)
	engine := NewEngine(cfg)
	blocks := root.Blocks()

	require.NoError(t, tree.SetBlockMinimized(root.ID(), blocks[0].ID(), true))
	require.NoError(t, tree.ResizeBlock(root.ID(), blocks[1].ID(), 0, 300))

	node, _ := tree.GetNode(root.ID())
	assert.Equal(t, cfg.NodeHeaderHeight+cfg.MinimizedBlockHeight+300, engine.RenderedHeight(node))
}

func TestComputeLayout_CollapsedShrinksBand(t *testing.T) {
	cfg := config.DefaultTreeConfig()
	tree, _ := buildTree(t, cfg, 1, 1)
	engine := NewEngine(cfg)

	root := tree.Roots()[0]
	children, _ := tree.GetChildren(root.ID())
	grandchildren, _ := tree.GetChildren(children[0].ID())

	before := engine.ComputeLayout(tree)
	beforeY := before[grandchildren[0].ID().String()].Y()

	require.NoError(t, tree.SetNodeCollapsed(children[0].ID(), true))
	after := engine.ComputeLayout(tree)
	assert.Less(t, after[grandchildren[0].ID().String()].Y(), beforeY)
}

func TestComputeLayout_EmptyTree(t *testing.T) {
	engine := NewEngine(nil)
	positions := engine.ComputeLayout(aggregates.NewTree(nil))
	assert.Empty(t, positions)
}

func TestComputeLayout_MultipleRoots(t *testing.T) {
	cfg := config.DefaultTreeConfig()
	tree := aggregates.NewTree(cfg)
	first, _ := tree.CreateNode(valueobjects.NodeID{}, nil)
	second, _ := tree.CreateNode(valueobjects.NodeID{}, nil)

	engine := NewEngine(cfg)
	positions := engine.ComputeLayout(tree)

	a := positions[first.ID().String()]
	b := positions[second.ID().String()]
	assert.Equal(t, a.Y(), b.Y())
	assert.GreaterOrEqual(t, b.X()-a.X(), cfg.NodeWidth)
}
