package queries

import (
	"context"
	"time"

	"loom-backend/domain/branching"
	"loom-backend/domain/core/valueobjects"
	"loom-backend/domain/versioning"
	"loom-backend/pkg/utils"
)

// BranchView is the read-model shape of a recorded branch
type BranchView struct {
	BranchID       string    `json:"branch_id"`
	OriginalNodeID string    `json:"original_node_id"`
	BranchNodeID   string    `json:"branch_node_id"`
	EditedBlockID  string    `json:"edited_block_id"`
	Source         string    `json:"source"`
	CreatedAt      time.Time `json:"created_at"`
}

func toBranchViews(entries []branching.BranchMetadata) []BranchView {
	views := make([]BranchView, 0, len(entries))
	for _, e := range entries {
		views = append(views, BranchView{
			BranchID:       e.BranchID.String(),
			OriginalNodeID: e.OriginalNodeID.String(),
			BranchNodeID:   e.BranchNodeID.String(),
			EditedBlockID:  e.EditedBlockID.String(),
			Source:         string(e.Source),
			CreatedAt:      e.CreatedAt,
		})
	}
	return views
}

// ListBranchesQuery lists the full branch history in creation order
type ListBranchesQuery struct{}

// Validate implements bus.Query
func (q ListBranchesQuery) Validate() error { return nil }

// ListBranchesByNodeQuery lists branches forked from one original node
type ListBranchesByNodeQuery struct {
	NodeID string `json:"node_id" validate:"required,uuid"`
}

// Validate implements bus.Query
func (q ListBranchesByNodeQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// ListBranchesHandler handles branch history queries
type ListBranchesHandler struct {
	history *versioning.History
}

// NewListBranchesHandler creates a new handler instance
func NewListBranchesHandler(history *versioning.History) *ListBranchesHandler {
	return &ListBranchesHandler{history: history}
}

// Handle executes ListBranchesQuery
func (h *ListBranchesHandler) Handle(ctx context.Context, query ListBranchesQuery) ([]BranchView, error) {
	return toBranchViews(h.history.List()), nil
}

// HandleByNode executes ListBranchesByNodeQuery
func (h *ListBranchesHandler) HandleByNode(ctx context.Context, query ListBranchesByNodeQuery) ([]BranchView, error) {
	nodeID, err := valueobjects.NewNodeIDFromString(query.NodeID)
	if err != nil {
		return nil, err
	}
	return toBranchViews(h.history.ListByOriginal(nodeID)), nil
}
