package queries

import (
	"context"
	"time"

	"loom-backend/application/ports"
	"loom-backend/domain/core/aggregates"
	"loom-backend/domain/core/entities"
	"loom-backend/domain/core/valueobjects"
	"loom-backend/pkg/utils"
)

// BlockView is the read-model shape of a block
type BlockView struct {
	ID        string  `json:"id"`
	Kind      string  `json:"kind"`
	Content   string  `json:"content"`
	Order     int     `json:"order"`
	Minimized bool    `json:"minimized"`
	Width     float64 `json:"width,omitempty"`
	Height    float64 `json:"height,omitempty"`
}

// NodeView is the read-model shape of a node
type NodeView struct {
	ID        string      `json:"id"`
	ParentID  string      `json:"parent_id,omitempty"`
	ChildIDs  []string    `json:"child_ids"`
	Depth     int         `json:"depth"`
	X         float64     `json:"x"`
	Y         float64     `json:"y"`
	Blocks    []BlockView `json:"blocks"`
	Name      string      `json:"name,omitempty"`
	Collapsed bool        `json:"collapsed"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Version   int         `json:"version"`
}

// NewNodeView builds the read model from a node entity
func NewNodeView(node *entities.Node) NodeView {
	blocks := node.Blocks()
	blockViews := make([]BlockView, 0, len(blocks))
	for _, b := range blocks {
		blockViews = append(blockViews, BlockView{
			ID:        b.ID().String(),
			Kind:      string(b.Kind()),
			Content:   b.Content(),
			Order:     b.Order(),
			Minimized: b.Minimized(),
			Width:     b.Width(),
			Height:    b.Height(),
		})
	}
	childIDs := make([]string, 0, node.ChildCount())
	for _, id := range node.ChildIDs() {
		childIDs = append(childIDs, id.String())
	}
	return NodeView{
		ID:        node.ID().String(),
		ParentID:  node.ParentID().String(),
		ChildIDs:  childIDs,
		Depth:     node.Depth(),
		X:         node.Position().X(),
		Y:         node.Position().Y(),
		Blocks:    blockViews,
		Name:      node.Name(),
		Collapsed: node.Collapsed(),
		CreatedAt: node.CreatedAt(),
		UpdatedAt: node.UpdatedAt(),
		Version:   node.Version(),
	}
}

// GetNodeQuery fetches one node by ID
type GetNodeQuery struct {
	NodeID string `json:"node_id" validate:"required,uuid"`
}

// Validate implements bus.Query
func (q GetNodeQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// GetChildrenQuery fetches a node's children in stable order
type GetChildrenQuery struct {
	NodeID string `json:"node_id" validate:"required,uuid"`
}

// Validate implements bus.Query
func (q GetChildrenQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// GetNodeHandler handles node read queries
type GetNodeHandler struct {
	repo ports.TreeRepository
}

// NewGetNodeHandler creates a new handler instance
func NewGetNodeHandler(repo ports.TreeRepository) *GetNodeHandler {
	return &GetNodeHandler{repo: repo}
}

// Handle executes GetNodeQuery
func (h *GetNodeHandler) Handle(ctx context.Context, query GetNodeQuery) (*NodeView, error) {
	nodeID, err := valueobjects.NewNodeIDFromString(query.NodeID)
	if err != nil {
		return nil, err
	}
	var view NodeView
	err = h.repo.View(ctx, func(tree *aggregates.Tree) error {
		node, err := tree.GetNode(nodeID)
		if err != nil {
			return err
		}
		view = NewNodeView(node)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// HandleChildren executes GetChildrenQuery
func (h *GetNodeHandler) HandleChildren(ctx context.Context, query GetChildrenQuery) ([]NodeView, error) {
	nodeID, err := valueobjects.NewNodeIDFromString(query.NodeID)
	if err != nil {
		return nil, err
	}
	var views []NodeView
	err = h.repo.View(ctx, func(tree *aggregates.Tree) error {
		children, err := tree.GetChildren(nodeID)
		if err != nil {
			return err
		}
		views = make([]NodeView, 0, len(children))
		for _, child := range children {
			views = append(views, NewNodeView(child))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}
