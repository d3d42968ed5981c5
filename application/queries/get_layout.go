package queries

import (
	"context"
	"sort"

	"loom-backend/application/ports"
	"loom-backend/domain/core/aggregates"
	"loom-backend/domain/layout"
)

// NodePlacementView is one node's computed placement on the canvas
type NodePlacementView struct {
	NodeID string  `json:"node_id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  int     `json:"depth"`
}

// GetLayoutQuery returns the current placement of every node
type GetLayoutQuery struct{}

// Validate implements bus.Query
func (q GetLayoutQuery) Validate() error { return nil }

// GetLayoutHandler handles GetLayoutQuery
type GetLayoutHandler struct {
	repo   ports.TreeRepository
	engine *layout.Engine
}

// NewGetLayoutHandler creates a new handler instance
func NewGetLayoutHandler(repo ports.TreeRepository, engine *layout.Engine) *GetLayoutHandler {
	return &GetLayoutHandler{repo: repo, engine: engine}
}

// Handle executes the query. Placements are returned sorted by node ID
// so repeated reads of the same structure are byte-for-byte identical.
func (h *GetLayoutHandler) Handle(ctx context.Context, query GetLayoutQuery) ([]NodePlacementView, error) {
	var views []NodePlacementView
	err := h.repo.View(ctx, func(tree *aggregates.Tree) error {
		cfg := tree.Config()
		views = make([]NodePlacementView, 0, tree.NodeCount())
		for _, node := range tree.AllNodes() {
			views = append(views, NodePlacementView{
				NodeID: node.ID().String(),
				X:      node.Position().X(),
				Y:      node.Position().Y(),
				Width:  cfg.NodeWidth,
				Height: h.engine.RenderedHeight(node),
				Depth:  node.Depth(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(views, func(i, j int) bool { return views[i].NodeID < views[j].NodeID })
	return views, nil
}
