package queries

import (
	"context"

	"loom-backend/application/ports"
	"loom-backend/domain/core/aggregates"
)

// ExportTreeQuery serializes the whole live tree
type ExportTreeQuery struct{}

// Validate implements bus.Query
func (q ExportTreeQuery) Validate() error { return nil }

// ExportTreeHandler handles ExportTreeQuery
type ExportTreeHandler struct {
	repo ports.TreeRepository
}

// NewExportTreeHandler creates a new handler instance
func NewExportTreeHandler(repo ports.TreeRepository) *ExportTreeHandler {
	return &ExportTreeHandler{repo: repo}
}

// Handle executes the query
func (h *ExportTreeHandler) Handle(ctx context.Context, query ExportTreeQuery) (*aggregates.TreeSnapshot, error) {
	var snapshot aggregates.TreeSnapshot
	err := h.repo.View(ctx, func(tree *aggregates.Tree) error {
		snapshot = tree.Export()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}
