package queries

import (
	"context"

	"loom-backend/application/ports"
	"loom-backend/domain/core/aggregates"
	"loom-backend/domain/core/valueobjects"
	"loom-backend/domain/thread"
	"loom-backend/pkg/utils"
)

// ThreadMessageView is one message of a reconstructed thread
type ThreadMessageView struct {
	NodeID  string `json:"node_id"`
	BlockID string `json:"block_id"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
	Depth   int    `json:"depth"`
}

// GetThreadQuery reconstructs the root-to-node conversation for a node
type GetThreadQuery struct {
	NodeID string `json:"node_id" validate:"required,uuid"`
}

// Validate implements bus.Query
func (q GetThreadQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// GetThreadHandler handles GetThreadQuery
type GetThreadHandler struct {
	repo    ports.TreeRepository
	builder *thread.Builder
}

// NewGetThreadHandler creates a new handler instance
func NewGetThreadHandler(repo ports.TreeRepository, builder *thread.Builder) *GetThreadHandler {
	return &GetThreadHandler{repo: repo, builder: builder}
}

// Handle executes the query
func (h *GetThreadHandler) Handle(ctx context.Context, query GetThreadQuery) ([]ThreadMessageView, error) {
	nodeID, err := valueobjects.NewNodeIDFromString(query.NodeID)
	if err != nil {
		return nil, err
	}

	var views []ThreadMessageView
	err = h.repo.View(ctx, func(tree *aggregates.Tree) error {
		messages, err := h.builder.BuildThread(tree, nodeID)
		if err != nil {
			return err
		}
		views = make([]ThreadMessageView, 0, len(messages))
		for _, m := range messages {
			views = append(views, ThreadMessageView{
				NodeID:  m.NodeID.String(),
				BlockID: m.BlockID.String(),
				Kind:    string(m.Kind),
				Content: m.Content,
				Depth:   m.Depth,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}
