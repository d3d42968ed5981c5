package commands

import (
	"context"

	"go.uber.org/zap"

	"loom-backend/application/ports"
	"loom-backend/domain/core/aggregates"
	"loom-backend/domain/core/valueobjects"
	"loom-backend/domain/layout"
	"loom-backend/pkg/utils"
)

// Display commands adjust how a node renders without touching the
// conversation content. Collapse, minimize, and resize all change
// rendered heights, so each triggers a relayout.

// RenameNodeCommand sets a node's display name
type RenameNodeCommand struct {
	NodeID string `json:"node_id" validate:"required,uuid"`
	Name   string `json:"name" validate:"max=200"`
}

// Validate implements bus.Command
func (c RenameNodeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// SetNodeCollapsedCommand toggles collapsed rendering
type SetNodeCollapsedCommand struct {
	NodeID    string `json:"node_id" validate:"required,uuid"`
	Collapsed bool   `json:"collapsed"`
}

// Validate implements bus.Command
func (c SetNodeCollapsedCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// SetBlockMinimizedCommand toggles a block's minimized presentation
type SetBlockMinimizedCommand struct {
	NodeID    string `json:"node_id" validate:"required,uuid"`
	BlockID   string `json:"block_id" validate:"required"`
	Minimized bool   `json:"minimized"`
}

// Validate implements bus.Command
func (c SetBlockMinimizedCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// ResizeBlockCommand records explicit block dimensions
type ResizeBlockCommand struct {
	NodeID  string  `json:"node_id" validate:"required,uuid"`
	BlockID string  `json:"block_id" validate:"required"`
	Width   float64 `json:"width" validate:"gte=0"`
	Height  float64 `json:"height" validate:"gte=0"`
}

// Validate implements bus.Command
func (c ResizeBlockCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// AddBlockCommand appends a block to a node
type AddBlockCommand struct {
	NodeID  string `json:"node_id" validate:"required,uuid"`
	Kind    string `json:"kind" validate:"required,oneof=prompt response note"`
	Content string `json:"content" validate:"max=50000"`
}

// Validate implements bus.Command
func (c AddBlockCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// RemoveBlockCommand deletes a block from a node
type RemoveBlockCommand struct {
	NodeID  string `json:"node_id" validate:"required,uuid"`
	BlockID string `json:"block_id" validate:"required"`
}

// Validate implements bus.Command
func (c RemoveBlockCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// NodeDisplayHandler handles the display and block presentation commands
type NodeDisplayHandler struct {
	mutator *treeMutator
	logger  *zap.Logger
}

// NewNodeDisplayHandler creates a new handler instance
func NewNodeDisplayHandler(
	repo ports.TreeRepository,
	layoutEngine *layout.Engine,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *NodeDisplayHandler {
	return &NodeDisplayHandler{
		mutator: newTreeMutator(repo, layoutEngine, eventBus, logger),
		logger:  logger,
	}
}

// HandleRename executes RenameNodeCommand
func (h *NodeDisplayHandler) HandleRename(ctx context.Context, cmd RenameNodeCommand) error {
	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return err
	}
	return h.mutator.mutate(ctx, false, func(tree *aggregates.Tree) error {
		return tree.RenameNode(nodeID, cmd.Name)
	})
}

// HandleSetCollapsed executes SetNodeCollapsedCommand
func (h *NodeDisplayHandler) HandleSetCollapsed(ctx context.Context, cmd SetNodeCollapsedCommand) error {
	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return err
	}
	return h.mutator.mutate(ctx, true, func(tree *aggregates.Tree) error {
		return tree.SetNodeCollapsed(nodeID, cmd.Collapsed)
	})
}

// HandleSetBlockMinimized executes SetBlockMinimizedCommand
func (h *NodeDisplayHandler) HandleSetBlockMinimized(ctx context.Context, cmd SetBlockMinimizedCommand) error {
	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return err
	}
	blockID, err := valueobjects.NewBlockIDFromString(cmd.BlockID)
	if err != nil {
		return err
	}
	return h.mutator.mutate(ctx, true, func(tree *aggregates.Tree) error {
		return tree.SetBlockMinimized(nodeID, blockID, cmd.Minimized)
	})
}

// HandleResizeBlock executes ResizeBlockCommand
func (h *NodeDisplayHandler) HandleResizeBlock(ctx context.Context, cmd ResizeBlockCommand) error {
	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return err
	}
	blockID, err := valueobjects.NewBlockIDFromString(cmd.BlockID)
	if err != nil {
		return err
	}
	return h.mutator.mutate(ctx, true, func(tree *aggregates.Tree) error {
		return tree.ResizeBlock(nodeID, blockID, cmd.Width, cmd.Height)
	})
}

// HandleAddBlock executes AddBlockCommand
func (h *NodeDisplayHandler) HandleAddBlock(ctx context.Context, cmd AddBlockCommand) (string, error) {
	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return "", err
	}
	var blockID string
	err = h.mutator.mutate(ctx, true, func(tree *aggregates.Tree) error {
		block, err := tree.AddBlock(nodeID, valueobjects.BlockKind(cmd.Kind), cmd.Content)
		if err != nil {
			return err
		}
		blockID = block.ID().String()
		return nil
	})
	return blockID, err
}

// HandleRemoveBlock executes RemoveBlockCommand
func (h *NodeDisplayHandler) HandleRemoveBlock(ctx context.Context, cmd RemoveBlockCommand) error {
	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return err
	}
	blockID, err := valueobjects.NewBlockIDFromString(cmd.BlockID)
	if err != nil {
		return err
	}
	return h.mutator.mutate(ctx, true, func(tree *aggregates.Tree) error {
		return tree.RemoveBlock(nodeID, blockID)
	})
}
