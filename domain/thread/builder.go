package thread

import (
	"fmt"

	"loom-backend/domain/core/aggregates"
	"loom-backend/domain/core/valueobjects"
	pkgerrors "loom-backend/pkg/errors"
)

// Message is one block flattened into a linear conversation
type Message struct {
	NodeID  valueobjects.NodeID    `json:"node_id"`
	BlockID valueobjects.BlockID   `json:"block_id"`
	Kind    valueobjects.BlockKind `json:"kind"`
	Content string                 `json:"content"`
	Depth   int                    `json:"depth"`
}

// Builder reconstructs linear conversation threads from the tree by
// following real parent links. Sibling position never affects the
// result: a node displaced sideways by branch insertion produces the
// same thread before and after.
type Builder struct{}

// NewBuilder creates a thread builder
func NewBuilder() *Builder {
	return &Builder{}
}

// BuildThread returns the root-to-node conversation ending at nodeID.
// Each node on the path contributes its blocks in order, so the result
// holds exactly depth+1 nodes' worth of messages.
func (b *Builder) BuildThread(tree *aggregates.Tree, nodeID valueobjects.NodeID) ([]Message, error) {
	node, err := tree.GetNode(nodeID)
	if err != nil {
		return nil, err
	}

	// Walk up to the root collecting the path, guarding against a
	// corrupted parent chain longer than the tree itself.
	path := make([]valueobjects.NodeID, 0, node.Depth()+1)
	current := node
	for {
		path = append(path, current.ID())
		if len(path) > tree.NodeCount() {
			return nil, pkgerrors.NewTreeStructureError(
				fmt.Sprintf("parent chain from %s exceeds tree size, cycle suspected", nodeID))
		}
		if current.IsRoot() {
			break
		}
		parent, err := tree.GetNode(current.ParentID())
		if err != nil {
			return nil, pkgerrors.NewTreeStructureError(
				fmt.Sprintf("node %s references missing parent %s", current.ID(), current.ParentID()))
		}
		current = parent
	}

	// Reverse to root-first and flatten blocks.
	messages := make([]Message, 0, len(path)*2)
	for i := len(path) - 1; i >= 0; i-- {
		pathNode, err := tree.GetNode(path[i])
		if err != nil {
			return nil, err
		}
		for _, block := range pathNode.Blocks() {
			messages = append(messages, Message{
				NodeID:  pathNode.ID(),
				BlockID: block.ID(),
				Kind:    block.Kind(),
				Content: block.Content(),
				Depth:   pathNode.Depth(),
			})
		}
	}
	return messages, nil
}
