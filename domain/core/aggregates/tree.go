package aggregates

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"loom-backend/domain/config"
	"loom-backend/domain/core/entities"
	"loom-backend/domain/core/valueobjects"
	"loom-backend/domain/events"
	pkgerrors "loom-backend/pkg/errors"
)

// Tree is the aggregate root for a workspace's conversation tree. It owns
// every node, enforces structural invariants, and is the only place
// parent/child links are mutated. All mutations are validate-then-commit:
// a mutation that would leave the structure inconsistent is rolled back
// and reported as a TreeStructureError.
type Tree struct {
	id      string
	nodes   map[string]*entities.Node
	rootIDs []valueobjects.NodeID
	cfg     *config.TreeConfig

	createdAt time.Time
	updatedAt time.Time

	uncommittedEvents []events.DomainEvent
}

// NewTree creates an empty tree aggregate
func NewTree(cfg *config.TreeConfig) *Tree {
	if cfg == nil {
		cfg = config.DefaultTreeConfig()
	}
	now := time.Now()
	return &Tree{
		id:        uuid.New().String(),
		nodes:     make(map[string]*entities.Node),
		rootIDs:   []valueobjects.NodeID{},
		cfg:       cfg,
		createdAt: now,
		updatedAt: now,
	}
}

// ID returns the tree identifier
func (t *Tree) ID() string { return t.id }

// Config returns the tree's configuration
func (t *Tree) Config() *config.TreeConfig { return t.cfg }

// NodeCount returns the number of nodes in the tree
func (t *Tree) NodeCount() int { return len(t.nodes) }

// Queries

// GetNode returns the node with the given ID
func (t *Tree) GetNode(id valueobjects.NodeID) (*entities.Node, error) {
	node, ok := t.nodes[id.String()]
	if !ok {
		return nil, pkgerrors.NewNodeNotFoundError(id.String())
	}
	return node, nil
}

// GetChildren returns a node's children in stable creation order
func (t *Tree) GetChildren(id valueobjects.NodeID) ([]*entities.Node, error) {
	node, err := t.GetNode(id)
	if err != nil {
		return nil, err
	}
	children := make([]*entities.Node, 0, node.ChildCount())
	for _, childID := range node.ChildIDs() {
		child, ok := t.nodes[childID.String()]
		if !ok {
			return nil, pkgerrors.NewTreeStructureError(
				fmt.Sprintf("node %s lists missing child %s", id, childID))
		}
		children = append(children, child)
	}
	return children, nil
}

// Roots returns the root nodes in creation order
func (t *Tree) Roots() []*entities.Node {
	roots := make([]*entities.Node, 0, len(t.rootIDs))
	for _, id := range t.rootIDs {
		if node, ok := t.nodes[id.String()]; ok {
			roots = append(roots, node)
		}
	}
	return roots
}

// AllNodes returns every node; iteration order is unspecified
func (t *Tree) AllNodes() []*entities.Node {
	all := make([]*entities.Node, 0, len(t.nodes))
	for _, node := range t.nodes {
		all = append(all, node)
	}
	return all
}

// Mutations

// CreateNode adds a node under parentID (zero for a new root). An empty
// block list gets the default prompt/response pair so a fresh node is
// immediately usable for a conversation turn.
func (t *Tree) CreateNode(parentID valueobjects.NodeID, blocks []valueobjects.Block) (*entities.Node, error) {
	if len(t.nodes) >= t.cfg.MaxNodesPerTree {
		return nil, pkgerrors.NewValidationError(
			fmt.Sprintf("tree cannot hold more than %d nodes", t.cfg.MaxNodesPerTree))
	}

	var parent *entities.Node
	depth := 0
	if !parentID.IsZero() {
		var err error
		parent, err = t.GetNode(parentID)
		if err != nil {
			return nil, err
		}
		depth = parent.Depth() + 1
	}

	if len(blocks) == 0 {
		var err error
		blocks, err = t.defaultBlockPair()
		if err != nil {
			return nil, err
		}
	}

	node, err := entities.NewNode(parentID, depth, blocks, t.cfg)
	if err != nil {
		return nil, err
	}

	t.nodes[node.ID().String()] = node
	if parent != nil {
		if err := parent.AddChild(node.ID()); err != nil {
			delete(t.nodes, node.ID().String())
			return nil, err
		}
	} else {
		t.rootIDs = append(t.rootIDs, node.ID())
	}

	if err := t.ValidateIntegrity(); err != nil {
		t.detachNode(node, parent)
		return nil, err
	}

	t.touch()
	t.raise(events.NewNodeCreated(node.ID(), parentID, depth, time.Now()))
	return node, nil
}

// AttachSiblingNode adds a node as a sibling of afterID, positioned
// immediately after it in the parent's child list. Used by branch
// creation so a fork renders next to its original.
func (t *Tree) AttachSiblingNode(parentID, afterID valueobjects.NodeID, blocks []valueobjects.Block) (*entities.Node, error) {
	if len(t.nodes) >= t.cfg.MaxNodesPerTree {
		return nil, pkgerrors.NewValidationError(
			fmt.Sprintf("tree cannot hold more than %d nodes", t.cfg.MaxNodesPerTree))
	}

	depth := 0
	var parent *entities.Node
	if !parentID.IsZero() {
		var err error
		parent, err = t.GetNode(parentID)
		if err != nil {
			return nil, err
		}
		depth = parent.Depth() + 1
	}

	node, err := entities.NewNode(parentID, depth, blocks, t.cfg)
	if err != nil {
		return nil, err
	}

	t.nodes[node.ID().String()] = node
	if parent != nil {
		if err := parent.InsertChildAfter(node.ID(), afterID); err != nil {
			delete(t.nodes, node.ID().String())
			return nil, err
		}
	} else {
		// Root sibling: insert after the original in root order.
		inserted := false
		for i, id := range t.rootIDs {
			if id.Equals(afterID) {
				t.rootIDs = append(t.rootIDs, valueobjects.NodeID{})
				copy(t.rootIDs[i+2:], t.rootIDs[i+1:])
				t.rootIDs[i+1] = node.ID()
				inserted = true
				break
			}
		}
		if !inserted {
			delete(t.nodes, node.ID().String())
			return nil, pkgerrors.NewTreeStructureError(
				fmt.Sprintf("root %s not found for sibling insert", afterID))
		}
	}

	if err := t.ValidateIntegrity(); err != nil {
		t.detachNode(node, parent)
		return nil, err
	}

	t.touch()
	t.raise(events.NewNodeCreated(node.ID(), parentID, depth, time.Now()))
	return node, nil
}

// DeleteNode removes a leaf node. Nodes with children cannot be deleted;
// delete bottom-up instead. The parent's child list is repaired, and the
// whole mutation rolls back if the structure fails validation afterward.
func (t *Tree) DeleteNode(id valueobjects.NodeID) error {
	node, err := t.GetNode(id)
	if err != nil {
		return err
	}
	if !node.IsLeaf() {
		return pkgerrors.NewTreeStructureError(
			fmt.Sprintf("node %s has %d children and cannot be deleted", id, node.ChildCount()))
	}

	parentID := node.ParentID()
	var parent *entities.Node
	childIndex := -1
	rootIndex := -1

	if !parentID.IsZero() {
		parent, err = t.GetNode(parentID)
		if err != nil {
			return pkgerrors.NewTreeStructureError(
				fmt.Sprintf("node %s references missing parent %s", id, parentID))
		}
		for i, childID := range parent.ChildIDs() {
			if childID.Equals(id) {
				childIndex = i
				break
			}
		}
		if err := parent.RemoveChild(id); err != nil {
			return err
		}
	} else {
		for i, rootID := range t.rootIDs {
			if rootID.Equals(id) {
				rootIndex = i
				break
			}
		}
		if rootIndex < 0 {
			return pkgerrors.NewTreeStructureError(
				fmt.Sprintf("root node %s missing from root order", id))
		}
		t.rootIDs = append(t.rootIDs[:rootIndex], t.rootIDs[rootIndex+1:]...)
	}
	delete(t.nodes, id.String())

	if err := t.ValidateIntegrity(); err != nil {
		// Roll back: reattach the node exactly where it was, at its
		// original sibling index.
		t.nodes[id.String()] = node
		if parent != nil {
			_ = parent.InsertChildAt(id, childIndex)
		} else if rootIndex >= 0 {
			t.rootIDs = append(t.rootIDs, valueobjects.NodeID{})
			copy(t.rootIDs[rootIndex+1:], t.rootIDs[rootIndex:])
			t.rootIDs[rootIndex] = id
		}
		return err
	}

	t.touch()
	t.raise(events.NewNodeDeleted(id, parentID, time.Now()))
	return nil
}

// UpdateBlockContent replaces one block's content in place
func (t *Tree) UpdateBlockContent(nodeID valueobjects.NodeID, blockID valueobjects.BlockID, content string) error {
	node, err := t.GetNode(nodeID)
	if err != nil {
		return err
	}
	if err := node.UpdateBlockContent(blockID, content, t.cfg); err != nil {
		return err
	}
	t.touch()
	t.raise(events.NewBlockContentUpdated(nodeID, blockID, time.Now()))
	return nil
}

// AddBlock appends a block to a node
func (t *Tree) AddBlock(nodeID valueobjects.NodeID, kind valueobjects.BlockKind, content string) (valueobjects.Block, error) {
	node, err := t.GetNode(nodeID)
	if err != nil {
		return valueobjects.Block{}, err
	}
	block, err := node.AddBlock(kind, content, t.cfg)
	if err != nil {
		return valueobjects.Block{}, err
	}
	t.touch()
	t.raise(events.NewBlockContentUpdated(nodeID, block.ID(), time.Now()))
	return block, nil
}

// RemoveBlock deletes a block from a node
func (t *Tree) RemoveBlock(nodeID valueobjects.NodeID, blockID valueobjects.BlockID) error {
	node, err := t.GetNode(nodeID)
	if err != nil {
		return err
	}
	if err := node.RemoveBlock(blockID); err != nil {
		return err
	}
	t.touch()
	t.raise(events.NewBlockContentUpdated(nodeID, blockID, time.Now()))
	return nil
}

// RenameNode sets a node's display name
func (t *Tree) RenameNode(nodeID valueobjects.NodeID, name string) error {
	node, err := t.GetNode(nodeID)
	if err != nil {
		return err
	}
	if err := node.Rename(name, t.cfg); err != nil {
		return err
	}
	t.touch()
	t.raise(events.NewNodeDisplayChanged(nodeID, time.Now()))
	return nil
}

// SetNodeCollapsed toggles collapsed rendering for a node
func (t *Tree) SetNodeCollapsed(nodeID valueobjects.NodeID, collapsed bool) error {
	node, err := t.GetNode(nodeID)
	if err != nil {
		return err
	}
	node.SetCollapsed(collapsed)
	t.touch()
	t.raise(events.NewNodeDisplayChanged(nodeID, time.Now()))
	return nil
}

// SetBlockMinimized sets a block's minimized flag
func (t *Tree) SetBlockMinimized(nodeID valueobjects.NodeID, blockID valueobjects.BlockID, minimized bool) error {
	node, err := t.GetNode(nodeID)
	if err != nil {
		return err
	}
	if err := node.SetBlockMinimized(blockID, minimized); err != nil {
		return err
	}
	t.touch()
	t.raise(events.NewNodeDisplayChanged(nodeID, time.Now()))
	return nil
}

// ResizeBlock records explicit size overrides for a block
func (t *Tree) ResizeBlock(nodeID valueobjects.NodeID, blockID valueobjects.BlockID, width, height float64) error {
	node, err := t.GetNode(nodeID)
	if err != nil {
		return err
	}
	if err := node.ResizeBlock(blockID, width, height); err != nil {
		return err
	}
	t.touch()
	t.raise(events.NewNodeDisplayChanged(nodeID, time.Now()))
	return nil
}

// ApplyLayout assigns computed positions to nodes. Unknown IDs in the
// map are ignored; nodes absent from the map keep their position.
func (t *Tree) ApplyLayout(positions map[string]valueobjects.Position) {
	for idStr, pos := range positions {
		if node, ok := t.nodes[idStr]; ok {
			node.ApplyPosition(pos)
		}
	}
	t.touch()
	t.raise(events.NewLayoutRecomputed(t.id, len(t.nodes), time.Now()))
}

// ValidateIntegrity checks every structural invariant in O(n):
// parent links resolve, child lists mirror parent links, depths are
// parent+1 with roots at 0, the root order lists exactly the parentless
// nodes, there are no cycles, and block orders are gapless permutations.
func (t *Tree) ValidateIntegrity() error {
	rootSet := make(map[string]bool, len(t.rootIDs))
	for _, id := range t.rootIDs {
		if rootSet[id.String()] {
			return pkgerrors.NewTreeStructureError(
				fmt.Sprintf("root order lists %s twice", id))
		}
		rootSet[id.String()] = true
		node, ok := t.nodes[id.String()]
		if !ok {
			return pkgerrors.NewTreeStructureError(
				fmt.Sprintf("root order lists missing node %s", id))
		}
		if !node.ParentID().IsZero() {
			return pkgerrors.NewTreeStructureError(
				fmt.Sprintf("node %s is in root order but has parent %s", id, node.ParentID()))
		}
	}

	childSeen := make(map[string]bool, len(t.nodes))
	for idStr, node := range t.nodes {
		if node.ID().String() != idStr {
			return pkgerrors.NewTreeStructureError(
				fmt.Sprintf("node %s stored under key %s", node.ID(), idStr))
		}

		if node.ParentID().IsZero() {
			if node.Depth() != 0 {
				return pkgerrors.NewTreeStructureError(
					fmt.Sprintf("root node %s has depth %d", node.ID(), node.Depth()))
			}
			if !rootSet[idStr] {
				return pkgerrors.NewTreeStructureError(
					fmt.Sprintf("parentless node %s missing from root order", node.ID()))
			}
		} else {
			parent, ok := t.nodes[node.ParentID().String()]
			if !ok {
				return pkgerrors.NewTreeStructureError(
					fmt.Sprintf("node %s references missing parent %s", node.ID(), node.ParentID()))
			}
			if node.Depth() != parent.Depth()+1 {
				return pkgerrors.NewTreeStructureError(
					fmt.Sprintf("node %s has depth %d but parent %s has depth %d",
						node.ID(), node.Depth(), parent.ID(), parent.Depth()))
			}
			listed := false
			for _, childID := range parent.ChildIDs() {
				if childID.Equals(node.ID()) {
					listed = true
					break
				}
			}
			if !listed {
				return pkgerrors.NewTreeStructureError(
					fmt.Sprintf("node %s not listed among children of parent %s", node.ID(), parent.ID()))
			}
		}

		for _, childID := range node.ChildIDs() {
			key := childID.String()
			if childSeen[key] {
				return pkgerrors.NewTreeStructureError(
					fmt.Sprintf("node %s is listed as a child more than once", childID))
			}
			childSeen[key] = true
			child, ok := t.nodes[key]
			if !ok {
				return pkgerrors.NewTreeStructureError(
					fmt.Sprintf("node %s lists missing child %s", node.ID(), childID))
			}
			if !child.ParentID().Equals(node.ID()) {
				return pkgerrors.NewTreeStructureError(
					fmt.Sprintf("node %s lists child %s whose parent is %s",
						node.ID(), childID, child.ParentID()))
			}
		}

		if err := validateBlockOrders(node); err != nil {
			return err
		}
	}

	// Depth consistency against actual parent chains rules out cycles:
	// a cycle would force some node's depth to disagree with parent+1.
	// Reachability from roots is the remaining check.
	reached := 0
	stack := make([]string, 0, len(t.rootIDs))
	for _, id := range t.rootIDs {
		stack = append(stack, id.String())
	}
	visited := make(map[string]bool, len(t.nodes))
	for len(stack) > 0 {
		idStr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[idStr] {
			return pkgerrors.NewTreeStructureError(
				fmt.Sprintf("node %s reachable by more than one path", idStr))
		}
		visited[idStr] = true
		reached++
		node := t.nodes[idStr]
		for _, childID := range node.ChildIDs() {
			stack = append(stack, childID.String())
		}
	}
	if reached != len(t.nodes) {
		return pkgerrors.NewTreeStructureError(
			fmt.Sprintf("%d of %d nodes unreachable from roots", len(t.nodes)-reached, len(t.nodes)))
	}

	return nil
}

func validateBlockOrders(node *entities.Node) error {
	blocks := node.Blocks()
	seen := make(map[int]bool, len(blocks))
	for _, b := range blocks {
		if b.Order() < 0 || b.Order() >= len(blocks) || seen[b.Order()] {
			return pkgerrors.NewTreeStructureError(
				fmt.Sprintf("node %s block orders are not a gapless permutation", node.ID()))
		}
		seen[b.Order()] = true
	}
	return nil
}

// Event accumulation, event-sourcing style

// GetUncommittedEvents returns events raised since the last commit
func (t *Tree) GetUncommittedEvents() []events.DomainEvent {
	return t.uncommittedEvents
}

// RaiseBranchCreated lets the branching engine record its event on the
// aggregate so all tree events flow through one channel.
func (t *Tree) RaiseBranchCreated(event events.DomainEvent) {
	t.raise(event)
}

// MarkEventsAsCommitted clears the uncommitted event list
func (t *Tree) MarkEventsAsCommitted() {
	t.uncommittedEvents = nil
}

func (t *Tree) raise(event events.DomainEvent) {
	t.uncommittedEvents = append(t.uncommittedEvents, event)
}

func (t *Tree) touch() {
	t.updatedAt = time.Now()
}

func (t *Tree) defaultBlockPair() ([]valueobjects.Block, error) {
	prompt, err := valueobjects.NewBlockWithConfig(valueobjects.KindPrompt, "", 0, t.cfg)
	if err != nil {
		return nil, err
	}
	response, err := valueobjects.NewBlockWithConfig(valueobjects.KindResponse, "", 1, t.cfg)
	if err != nil {
		return nil, err
	}
	return []valueobjects.Block{prompt, response}, nil
}

// detachNode undoes a partially applied attach during rollback
func (t *Tree) detachNode(node *entities.Node, parent *entities.Node) {
	delete(t.nodes, node.ID().String())
	if parent != nil {
		_ = parent.RemoveChild(node.ID())
		return
	}
	for i, id := range t.rootIDs {
		if id.Equals(node.ID()) {
			t.rootIDs = append(t.rootIDs[:i], t.rootIDs[i+1:]...)
			return
		}
	}
}
