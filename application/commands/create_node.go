package commands

import (
	"context"

	"go.uber.org/zap"

	"loom-backend/application/ports"
	"loom-backend/domain/core/aggregates"
	"loom-backend/domain/core/validators"
	"loom-backend/domain/core/valueobjects"
	"loom-backend/domain/layout"
	"loom-backend/pkg/utils"
)

// BlockInput is a caller-supplied block for node creation
type BlockInput struct {
	Kind    string `json:"kind" validate:"required,oneof=prompt response note"`
	Content string `json:"content" validate:"max=50000"`
}

// CreateNodeCommand creates a node under a parent, or a new root when
// ParentID is empty. An empty block list yields the default
// prompt/response pair.
type CreateNodeCommand struct {
	ParentID string       `json:"parent_id" validate:"omitempty,uuid"`
	Blocks   []BlockInput `json:"blocks" validate:"dive"`
}

// Validate implements bus.Command
func (c CreateNodeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// CreateNodeResult carries the created node's identity back to the caller
type CreateNodeResult struct {
	NodeID string `json:"node_id"`
}

// CreateNodeHandler handles CreateNodeCommand
type CreateNodeHandler struct {
	mutator   *treeMutator
	validator *validators.BlockValidator
	logger    *zap.Logger
}

// NewCreateNodeHandler creates a new handler instance
func NewCreateNodeHandler(
	repo ports.TreeRepository,
	layoutEngine *layout.Engine,
	blockValidator *validators.BlockValidator,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *CreateNodeHandler {
	return &CreateNodeHandler{
		mutator:   newTreeMutator(repo, layoutEngine, eventBus, logger),
		validator: blockValidator,
		logger:    logger,
	}
}

// Handle executes the create node command
func (h *CreateNodeHandler) Handle(ctx context.Context, cmd CreateNodeCommand) (*CreateNodeResult, error) {
	var parentID valueobjects.NodeID
	if cmd.ParentID != "" {
		var err error
		parentID, err = valueobjects.NewNodeIDFromString(cmd.ParentID)
		if err != nil {
			return nil, err
		}
	}

	inputs := make([]validators.BlockInput, 0, len(cmd.Blocks))
	for _, b := range cmd.Blocks {
		inputs = append(inputs, validators.BlockInput{Kind: b.Kind, Content: b.Content})
	}

	var result CreateNodeResult
	err := h.mutator.mutate(ctx, true, func(tree *aggregates.Tree) error {
		blocks, err := h.validator.ToBlocks(inputs)
		if err != nil {
			return err
		}
		node, err := tree.CreateNode(parentID, blocks)
		if err != nil {
			return err
		}
		result.NodeID = node.ID().String()
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("node created",
		zap.String("node_id", result.NodeID),
		zap.String("parent_id", cmd.ParentID))
	return &result, nil
}
