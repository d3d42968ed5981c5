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

// UpdateBlockContentCommand replaces a block's content in place. This is
// the non-forking update used before a node's response is committed;
// edits that should fork go through CreateBranchCommand instead.
type UpdateBlockContentCommand struct {
	NodeID  string `json:"node_id" validate:"required,uuid"`
	BlockID string `json:"block_id" validate:"required"`
	Content string `json:"content" validate:"max=50000"`
}

// Validate implements bus.Command
func (c UpdateBlockContentCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// UpdateBlockContentHandler handles UpdateBlockContentCommand
type UpdateBlockContentHandler struct {
	mutator *treeMutator
	logger  *zap.Logger
}

// NewUpdateBlockContentHandler creates a new handler instance
func NewUpdateBlockContentHandler(
	repo ports.TreeRepository,
	layoutEngine *layout.Engine,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *UpdateBlockContentHandler {
	return &UpdateBlockContentHandler{
		mutator: newTreeMutator(repo, layoutEngine, eventBus, logger),
		logger:  logger,
	}
}

// Handle executes the update block content command. Content updates do
// not change structure, so no relayout is needed.
func (h *UpdateBlockContentHandler) Handle(ctx context.Context, cmd UpdateBlockContentCommand) error {
	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return err
	}
	blockID, err := valueobjects.NewBlockIDFromString(cmd.BlockID)
	if err != nil {
		return err
	}

	err = h.mutator.mutate(ctx, false, func(tree *aggregates.Tree) error {
		return tree.UpdateBlockContent(nodeID, blockID, cmd.Content)
	})
	if err != nil {
		return err
	}

	h.logger.Debug("block content updated",
		zap.String("node_id", cmd.NodeID),
		zap.String("block_id", cmd.BlockID))
	return nil
}
