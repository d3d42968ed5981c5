package layout

import (
	"loom-backend/domain/config"
	"loom-backend/domain/core/aggregates"
	"loom-backend/domain/core/entities"
	"loom-backend/domain/core/valueobjects"
)

// Engine computes canvas positions for every node in a tree. The
// algorithm is pure: the same structure always yields the same
// positions, and no two node boxes ever overlap.
//
// Horizontal rule: a subtree's width is the larger of the node's own
// width and the sum of its child subtree widths plus inter-child
// spacing. Parents are centered over the span of their children;
// children of a narrow parent are centered under it.
//
// Vertical rule: each depth forms a band tall enough for its tallest
// rendered node, so overlap between depths is impossible no matter how
// block counts vary across siblings.
type Engine struct {
	cfg *config.TreeConfig
}

// NewEngine creates a layout engine with the given configuration
func NewEngine(cfg *config.TreeConfig) *Engine {
	if cfg == nil {
		cfg = config.DefaultTreeConfig()
	}
	return &Engine{cfg: cfg}
}

// ComputeLayout returns a position for every node in the tree, keyed by
// node ID string. The tree itself is not modified; callers apply the
// result via the aggregate.
func (e *Engine) ComputeLayout(tree *aggregates.Tree) map[string]valueobjects.Position {
	positions := make(map[string]valueobjects.Position, tree.NodeCount())
	if tree.NodeCount() == 0 {
		return positions
	}

	widths := make(map[string]float64, tree.NodeCount())
	roots := tree.Roots()
	for _, root := range roots {
		e.measure(tree, root, widths)
	}

	bandTops := e.bandTops(tree)

	x := e.cfg.LeftMargin
	for _, root := range roots {
		e.place(tree, root, x, widths, bandTops, positions)
		x += widths[root.ID().String()] + e.cfg.HSpacing
	}
	return positions
}

// measure computes subtree widths bottom-up
func (e *Engine) measure(tree *aggregates.Tree, node *entities.Node, widths map[string]float64) float64 {
	children, err := tree.GetChildren(node.ID())
	if err != nil || len(children) == 0 {
		widths[node.ID().String()] = e.cfg.NodeWidth
		return e.cfg.NodeWidth
	}

	total := 0.0
	for i, child := range children {
		if i > 0 {
			total += e.cfg.HSpacing
		}
		total += e.measure(tree, child, widths)
	}
	width := total
	if e.cfg.NodeWidth > width {
		width = e.cfg.NodeWidth
	}
	widths[node.ID().String()] = width
	return width
}

// place assigns positions top-down. left is the left edge of the
// subtree's horizontal span.
func (e *Engine) place(
	tree *aggregates.Tree,
	node *entities.Node,
	left float64,
	widths map[string]float64,
	bandTops map[int]float64,
	positions map[string]valueobjects.Position,
) {
	subtreeWidth := widths[node.ID().String()]

	// The node box is centered within its subtree span.
	nodeX := left + (subtreeWidth-e.cfg.NodeWidth)/2
	positions[node.ID().String()] = valueobjects.NewPosition(nodeX, bandTops[node.Depth()])

	children, err := tree.GetChildren(node.ID())
	if err != nil || len(children) == 0 {
		return
	}

	childrenWidth := 0.0
	for i, child := range children {
		if i > 0 {
			childrenWidth += e.cfg.HSpacing
		}
		childrenWidth += widths[child.ID().String()]
	}

	childLeft := left + (subtreeWidth-childrenWidth)/2
	for _, child := range children {
		e.place(tree, child, childLeft, widths, bandTops, positions)
		childLeft += widths[child.ID().String()] + e.cfg.HSpacing
	}
}

// bandTops computes the top Y coordinate of each depth band. A band is
// as tall as the tallest rendered node at that depth.
func (e *Engine) bandTops(tree *aggregates.Tree) map[int]float64 {
	bandHeights := make(map[int]float64)
	maxDepth := 0
	for _, node := range tree.AllNodes() {
		h := e.RenderedHeight(node)
		if h > bandHeights[node.Depth()] {
			bandHeights[node.Depth()] = h
		}
		if node.Depth() > maxDepth {
			maxDepth = node.Depth()
		}
	}

	tops := make(map[int]float64, maxDepth+1)
	y := e.cfg.TopMargin
	for d := 0; d <= maxDepth; d++ {
		tops[d] = y
		y += bandHeights[d] + e.cfg.VSpacing
	}
	return tops
}

// RenderedHeight returns the height a node occupies on the canvas.
// Collapsed nodes render at a fixed minimal height regardless of
// content; expanded nodes stack a header over their block heights.
func (e *Engine) RenderedHeight(node *entities.Node) float64 {
	if node.Collapsed() {
		return e.cfg.CollapsedNodeHeight
	}
	h := e.cfg.NodeHeaderHeight
	for _, b := range node.Blocks() {
		switch {
		case b.Minimized():
			h += e.cfg.MinimizedBlockHeight
		case b.Height() > 0:
			h += b.Height()
		default:
			h += e.cfg.DefaultBlockHeight
		}
	}
	return h
}
