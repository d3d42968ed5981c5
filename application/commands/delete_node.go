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

// DeleteNodeCommand removes a leaf node from the tree. Nodes with
// children are rejected; callers delete bottom-up.
type DeleteNodeCommand struct {
	NodeID string `json:"node_id" validate:"required,uuid"`
}

// Validate implements bus.Command
func (c DeleteNodeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// DeleteNodeHandler handles DeleteNodeCommand
type DeleteNodeHandler struct {
	mutator *treeMutator
	logger  *zap.Logger
}

// NewDeleteNodeHandler creates a new handler instance
func NewDeleteNodeHandler(
	repo ports.TreeRepository,
	layoutEngine *layout.Engine,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *DeleteNodeHandler {
	return &DeleteNodeHandler{
		mutator: newTreeMutator(repo, layoutEngine, eventBus, logger),
		logger:  logger,
	}
}

// Handle executes the delete node command
func (h *DeleteNodeHandler) Handle(ctx context.Context, cmd DeleteNodeCommand) error {
	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return err
	}

	err = h.mutator.mutate(ctx, true, func(tree *aggregates.Tree) error {
		return tree.DeleteNode(nodeID)
	})
	if err != nil {
		return err
	}

	h.logger.Info("node deleted", zap.String("node_id", cmd.NodeID))
	return nil
}
