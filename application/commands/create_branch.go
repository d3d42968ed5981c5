package commands

import (
	"context"

	"go.uber.org/zap"

	"loom-backend/application/ports"
	"loom-backend/domain/branching"
	"loom-backend/domain/core/aggregates"
	"loom-backend/domain/core/valueobjects"
	"loom-backend/domain/layout"
	"loom-backend/domain/versioning"
	"loom-backend/pkg/utils"
)

// CreateBranchCommand forks a sibling of a node by editing one of its
// blocks. The original node is never modified; the branch starts as a
// leaf next to it.
type CreateBranchCommand struct {
	NodeID  string `json:"node_id" validate:"required,uuid"`
	BlockID string `json:"block_id" validate:"required"`
	Content string `json:"content" validate:"max=50000"`
	Source  string `json:"source" validate:"required,oneof=inline-edit chat-interface-edit"`
}

// Validate implements bus.Command
func (c CreateBranchCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// CreateBranchResult reports the created branch
type CreateBranchResult struct {
	BranchID     string `json:"branch_id"`
	BranchNodeID string `json:"branch_node_id"`
}

// CreateBranchHandler handles CreateBranchCommand
type CreateBranchHandler struct {
	mutator *treeMutator
	engine  *branching.Engine
	history *versioning.History
	logger  *zap.Logger
}

// NewCreateBranchHandler creates a new handler instance
func NewCreateBranchHandler(
	repo ports.TreeRepository,
	layoutEngine *layout.Engine,
	engine *branching.Engine,
	history *versioning.History,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *CreateBranchHandler {
	return &CreateBranchHandler{
		mutator: newTreeMutator(repo, layoutEngine, eventBus, logger),
		engine:  engine,
		history: history,
		logger:  logger,
	}
}

// Handle executes the create branch command. The history entry is
// appended only after the branch has committed.
func (h *CreateBranchHandler) Handle(ctx context.Context, cmd CreateBranchCommand) (*CreateBranchResult, error) {
	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return nil, err
	}
	blockID, err := valueobjects.NewBlockIDFromString(cmd.BlockID)
	if err != nil {
		return nil, err
	}

	var branchResult *branching.Result
	err = h.mutator.mutate(ctx, true, func(tree *aggregates.Tree) error {
		result, err := h.engine.CreateBranchFromEdit(
			tree, nodeID, blockID, cmd.Content, branching.EditSource(cmd.Source))
		if err != nil {
			return err
		}
		branchResult = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.history.Append(branchResult.Metadata)

	h.logger.Info("branch created",
		zap.String("branch_id", branchResult.Metadata.BranchID.String()),
		zap.String("original_node_id", cmd.NodeID),
		zap.String("branch_node_id", branchResult.NewNode.String()),
		zap.String("source", cmd.Source))

	return &CreateBranchResult{
		BranchID:     branchResult.Metadata.BranchID.String(),
		BranchNodeID: branchResult.NewNode.String(),
	}, nil
}
