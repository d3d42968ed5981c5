package entities

import (
	"fmt"
	"time"

	"loom-backend/domain/config"
	"loom-backend/domain/core/valueobjects"
	pkgerrors "loom-backend/pkg/errors"
)

// Node is the entity for one turn of a conversation tree. A node owns an
// ordered list of content blocks and links to its parent and children by ID.
// Positions are assigned only by the layout engine, never by callers.
type Node struct {
	id        valueobjects.NodeID
	parentID  valueobjects.NodeID // zero for roots
	childIDs  []valueobjects.NodeID
	depth     int
	position  valueobjects.Position
	blocks    []valueobjects.Block
	name      string
	collapsed bool
	createdAt time.Time
	updatedAt time.Time
	version   int
}

// NewNode creates a node with the given parent linkage and blocks.
// Blocks must already be a gapless order permutation starting at 0.
func NewNode(parentID valueobjects.NodeID, depth int, blocks []valueobjects.Block, cfg *config.TreeConfig) (*Node, error) {
	if cfg == nil {
		cfg = config.DefaultTreeConfig()
	}
	if depth < 0 {
		return nil, pkgerrors.NewValidationError("node depth cannot be negative")
	}
	if len(blocks) > cfg.MaxBlocksPerNode {
		return nil, pkgerrors.NewValidationError(
			fmt.Sprintf("node cannot hold more than %d blocks", cfg.MaxBlocksPerNode))
	}
	if err := checkBlockOrders(blocks); err != nil {
		return nil, err
	}

	now := time.Now()
	return &Node{
		id:        valueobjects.NewNodeID(),
		parentID:  parentID,
		childIDs:  []valueobjects.NodeID{},
		depth:     depth,
		blocks:    copyBlocks(blocks),
		createdAt: now,
		updatedAt: now,
		version:   0,
	}, nil
}

// ReconstructNode rebuilds a node from stored data with its original identity
func ReconstructNode(
	id valueobjects.NodeID,
	parentID valueobjects.NodeID,
	childIDs []valueobjects.NodeID,
	depth int,
	position valueobjects.Position,
	blocks []valueobjects.Block,
	name string,
	collapsed bool,
	createdAt time.Time,
	updatedAt time.Time,
	version int,
) (*Node, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("node ID cannot be empty")
	}
	if depth < 0 {
		return nil, pkgerrors.NewValidationError("node depth cannot be negative")
	}
	if err := checkBlockOrders(blocks); err != nil {
		return nil, err
	}
	if childIDs == nil {
		childIDs = []valueobjects.NodeID{}
	}
	return &Node{
		id:        id,
		parentID:  parentID,
		childIDs:  copyNodeIDs(childIDs),
		depth:     depth,
		position:  position,
		blocks:    copyBlocks(blocks),
		name:      name,
		collapsed: collapsed,
		createdAt: createdAt,
		updatedAt: updatedAt,
		version:   version,
	}, nil
}

// Accessors

// ID returns the node identifier
func (n *Node) ID() valueobjects.NodeID { return n.id }

// ParentID returns the parent node ID, zero for roots
func (n *Node) ParentID() valueobjects.NodeID { return n.parentID }

// IsRoot reports whether this node has no parent
func (n *Node) IsRoot() bool { return n.parentID.IsZero() }

// ChildIDs returns a copy of the child ID list in creation order
func (n *Node) ChildIDs() []valueobjects.NodeID { return copyNodeIDs(n.childIDs) }

// ChildCount returns the number of children
func (n *Node) ChildCount() int { return len(n.childIDs) }

// IsLeaf reports whether the node has no children
func (n *Node) IsLeaf() bool { return len(n.childIDs) == 0 }

// Depth returns the node's distance from its root
func (n *Node) Depth() int { return n.depth }

// Position returns the layout-assigned canvas position
func (n *Node) Position() valueobjects.Position { return n.position }

// Blocks returns a copy of the node's blocks in order-index order
func (n *Node) Blocks() []valueobjects.Block { return copyBlocks(n.blocks) }

// BlockCount returns the number of blocks
func (n *Node) BlockCount() int { return len(n.blocks) }

// Name returns the display name, empty if never named
func (n *Node) Name() string { return n.name }

// Collapsed reports whether the node renders collapsed
func (n *Node) Collapsed() bool { return n.collapsed }

// CreatedAt returns the creation timestamp
func (n *Node) CreatedAt() time.Time { return n.createdAt }

// UpdatedAt returns the last modification timestamp
func (n *Node) UpdatedAt() time.Time { return n.updatedAt }

// Version returns the mutation counter, incremented on each content change
func (n *Node) Version() int { return n.version }

// Block lookup

// Block returns the block with the given ID
func (n *Node) Block(blockID valueobjects.BlockID) (valueobjects.Block, error) {
	for _, b := range n.blocks {
		if b.ID().Equals(blockID) {
			return b, nil
		}
	}
	return valueobjects.Block{}, pkgerrors.NewBlockNotFoundError(n.id.String(), blockID.String())
}

// HasBlock reports whether the node contains the given block
func (n *Node) HasBlock(blockID valueobjects.BlockID) bool {
	_, err := n.Block(blockID)
	return err == nil
}

// Structural mutations, called only by the owning aggregate

// AddChild appends a child reference. Insertion order is preserved so
// sibling order is stable across layout runs.
func (n *Node) AddChild(childID valueobjects.NodeID) error {
	if childID.IsZero() {
		return pkgerrors.NewValidationError("child ID cannot be empty")
	}
	for _, existing := range n.childIDs {
		if existing.Equals(childID) {
			return pkgerrors.NewTreeStructureError(
				fmt.Sprintf("node %s already lists child %s", n.id, childID))
		}
	}
	n.childIDs = append(n.childIDs, childID)
	n.touch()
	return nil
}

// InsertChildAfter inserts a child reference immediately after another
// child, used when a branch sibling must sit next to its original.
func (n *Node) InsertChildAfter(childID, afterID valueobjects.NodeID) error {
	if childID.IsZero() {
		return pkgerrors.NewValidationError("child ID cannot be empty")
	}
	for _, existing := range n.childIDs {
		if existing.Equals(childID) {
			return pkgerrors.NewTreeStructureError(
				fmt.Sprintf("node %s already lists child %s", n.id, childID))
		}
	}
	for i, existing := range n.childIDs {
		if existing.Equals(afterID) {
			n.childIDs = append(n.childIDs, valueobjects.NodeID{})
			copy(n.childIDs[i+2:], n.childIDs[i+1:])
			n.childIDs[i+1] = childID
			n.touch()
			return nil
		}
	}
	return pkgerrors.NewTreeStructureError(
		fmt.Sprintf("node %s does not list child %s", n.id, afterID))
}

// InsertChildAt inserts a child reference at the given position, used
// to put a removed child back exactly where it was on rollback.
func (n *Node) InsertChildAt(childID valueobjects.NodeID, index int) error {
	if childID.IsZero() {
		return pkgerrors.NewValidationError("child ID cannot be empty")
	}
	for _, existing := range n.childIDs {
		if existing.Equals(childID) {
			return pkgerrors.NewTreeStructureError(
				fmt.Sprintf("node %s already lists child %s", n.id, childID))
		}
	}
	if index < 0 || index > len(n.childIDs) {
		return pkgerrors.NewTreeStructureError(
			fmt.Sprintf("child index %d out of range for node %s", index, n.id))
	}
	n.childIDs = append(n.childIDs, valueobjects.NodeID{})
	copy(n.childIDs[index+1:], n.childIDs[index:])
	n.childIDs[index] = childID
	n.touch()
	return nil
}

// RemoveChild removes a child reference
func (n *Node) RemoveChild(childID valueobjects.NodeID) error {
	for i, existing := range n.childIDs {
		if existing.Equals(childID) {
			n.childIDs = append(n.childIDs[:i], n.childIDs[i+1:]...)
			n.touch()
			return nil
		}
	}
	return pkgerrors.NewTreeStructureError(
		fmt.Sprintf("node %s does not list child %s", n.id, childID))
}

// Content mutations

// UpdateBlockContent replaces a block's content in place and bumps the
// node version. Identity and order of the block are untouched.
func (n *Node) UpdateBlockContent(blockID valueobjects.BlockID, content string, cfg *config.TreeConfig) error {
	for i, b := range n.blocks {
		if b.ID().Equals(blockID) {
			updated, err := b.WithContent(content, cfg)
			if err != nil {
				return err
			}
			n.blocks[i] = updated
			n.version++
			n.touch()
			return nil
		}
	}
	return pkgerrors.NewBlockNotFoundError(n.id.String(), blockID.String())
}

// AddBlock appends a block at the next order index
func (n *Node) AddBlock(kind valueobjects.BlockKind, content string, cfg *config.TreeConfig) (valueobjects.Block, error) {
	if cfg == nil {
		cfg = config.DefaultTreeConfig()
	}
	if len(n.blocks) >= cfg.MaxBlocksPerNode {
		return valueobjects.Block{}, pkgerrors.NewValidationError(
			fmt.Sprintf("node cannot hold more than %d blocks", cfg.MaxBlocksPerNode))
	}
	block, err := valueobjects.NewBlockWithConfig(kind, content, len(n.blocks), cfg)
	if err != nil {
		return valueobjects.Block{}, err
	}
	n.blocks = append(n.blocks, block)
	n.version++
	n.touch()
	return block, nil
}

// RemoveBlock deletes a block and reindexes the remainder so orders
// stay a gapless permutation starting at 0.
func (n *Node) RemoveBlock(blockID valueobjects.BlockID) error {
	for i, b := range n.blocks {
		if b.ID().Equals(blockID) {
			n.blocks = append(n.blocks[:i], n.blocks[i+1:]...)
			for j := range n.blocks {
				n.blocks[j] = n.blocks[j].WithOrder(j)
			}
			n.version++
			n.touch()
			return nil
		}
	}
	return pkgerrors.NewBlockNotFoundError(n.id.String(), blockID.String())
}

// Display mutations. These do not bump the content version.

// Rename sets the node's display name
func (n *Node) Rename(name string, cfg *config.TreeConfig) error {
	if cfg == nil {
		cfg = config.DefaultTreeConfig()
	}
	if len(name) > cfg.MaxNodeNameLength {
		return pkgerrors.NewValidationError(
			fmt.Sprintf("node name exceeds maximum length of %d characters", cfg.MaxNodeNameLength))
	}
	n.name = name
	n.touch()
	return nil
}

// SetCollapsed toggles collapsed rendering
func (n *Node) SetCollapsed(collapsed bool) {
	n.collapsed = collapsed
	n.touch()
}

// SetBlockMinimized sets a block's minimized presentation flag
func (n *Node) SetBlockMinimized(blockID valueobjects.BlockID, minimized bool) error {
	for i, b := range n.blocks {
		if b.ID().Equals(blockID) {
			n.blocks[i] = b.WithMinimized(minimized)
			n.touch()
			return nil
		}
	}
	return pkgerrors.NewBlockNotFoundError(n.id.String(), blockID.String())
}

// ResizeBlock records an explicit size override for a block
func (n *Node) ResizeBlock(blockID valueobjects.BlockID, width, height float64) error {
	for i, b := range n.blocks {
		if b.ID().Equals(blockID) {
			resized, err := b.WithSize(width, height)
			if err != nil {
				return err
			}
			n.blocks[i] = resized
			n.touch()
			return nil
		}
	}
	return pkgerrors.NewBlockNotFoundError(n.id.String(), blockID.String())
}

// ApplyPosition is called by the layout engine after a recompute
func (n *Node) ApplyPosition(position valueobjects.Position) {
	n.position = position
}

// CloneBlocksWithReplacement copies the node's blocks with fresh
// identities, substituting content on the block matching blockID.
// Used by branch creation, which must never alias the original's blocks.
func (n *Node) CloneBlocksWithReplacement(blockID valueobjects.BlockID, content string, cfg *config.TreeConfig) ([]valueobjects.Block, error) {
	if !n.HasBlock(blockID) {
		return nil, pkgerrors.NewBlockNotFoundError(n.id.String(), blockID.String())
	}
	cloned := make([]valueobjects.Block, 0, len(n.blocks))
	for _, b := range n.blocks {
		if b.ID().Equals(blockID) {
			// The edited block goes through full sanitization.
			fresh, err := valueobjects.NewBlockWithConfig(b.Kind(), content, b.Order(), cfg)
			if err != nil {
				return nil, err
			}
			fresh = fresh.WithMinimized(b.Minimized())
			fresh, err = fresh.WithSize(b.Width(), b.Height())
			if err != nil {
				return nil, err
			}
			cloned = append(cloned, fresh)
			continue
		}
		// Unedited blocks carry stored content as-is to avoid a second
		// escape pass, but under a fresh identity.
		fresh, err := valueobjects.ReconstructBlock(
			valueobjects.NewBlockID(), b.Kind(), b.Content(), b.Order(), b.Minimized(), b.Width(), b.Height())
		if err != nil {
			return nil, err
		}
		cloned = append(cloned, fresh)
	}
	return cloned, nil
}

func (n *Node) touch() {
	n.updatedAt = time.Now()
}

func checkBlockOrders(blocks []valueobjects.Block) error {
	seen := make(map[int]bool, len(blocks))
	for _, b := range blocks {
		if b.Order() < 0 || b.Order() >= len(blocks) {
			return pkgerrors.NewValidationError(
				fmt.Sprintf("block order %d out of range for %d blocks", b.Order(), len(blocks)))
		}
		if seen[b.Order()] {
			return pkgerrors.NewValidationError(
				fmt.Sprintf("duplicate block order %d", b.Order()))
		}
		seen[b.Order()] = true
	}
	return nil
}

func copyBlocks(blocks []valueobjects.Block) []valueobjects.Block {
	out := make([]valueobjects.Block, len(blocks))
	copy(out, blocks)
	return out
}

func copyNodeIDs(ids []valueobjects.NodeID) []valueobjects.NodeID {
	out := make([]valueobjects.NodeID, len(ids))
	copy(out, ids)
	return out
}
