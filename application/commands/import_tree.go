package commands

import (
	"context"
	"time"

	"go.uber.org/zap"

	"loom-backend/application/ports"
	"loom-backend/domain/config"
	"loom-backend/domain/core/aggregates"
	"loom-backend/domain/events"
	"loom-backend/domain/layout"
	pkgerrors "loom-backend/pkg/errors"
	"loom-backend/pkg/utils"
)

// ImportTreeCommand replaces the live tree with a snapshot. The
// snapshot is rebuilt and validated off to the side first; the live
// tree is untouched unless validation passes.
type ImportTreeCommand struct {
	WorkspaceID string                  `json:"workspace_id" validate:"required"`
	Snapshot    aggregates.TreeSnapshot `json:"snapshot"`
}

// Validate implements bus.Command
func (c ImportTreeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// ImportTreeHandler handles ImportTreeCommand
type ImportTreeHandler struct {
	repo      ports.TreeRepository
	snapshots ports.SnapshotStore
	layout    *layout.Engine
	eventBus  ports.EventBus
	cfg       *config.TreeConfig
	logger    *zap.Logger
}

// NewImportTreeHandler creates a new handler instance
func NewImportTreeHandler(
	repo ports.TreeRepository,
	snapshots ports.SnapshotStore,
	layoutEngine *layout.Engine,
	eventBus ports.EventBus,
	cfg *config.TreeConfig,
	logger *zap.Logger,
) *ImportTreeHandler {
	return &ImportTreeHandler{
		repo:      repo,
		snapshots: snapshots,
		layout:    layoutEngine,
		eventBus:  eventBus,
		cfg:       cfg,
		logger:    logger,
	}
}

// Handle executes the import. Imported positions are discarded and
// recomputed so the canvas is always consistent with the local layout
// configuration.
func (h *ImportTreeHandler) Handle(ctx context.Context, cmd ImportTreeCommand) error {
	tree, err := aggregates.ImportTree(cmd.Snapshot, h.cfg)
	if err != nil {
		return pkgerrors.Wrap(err, "snapshot rejected")
	}

	tree.ApplyLayout(h.layout.ComputeLayout(tree))
	tree.MarkEventsAsCommitted()

	if err := h.repo.Replace(ctx, tree); err != nil {
		return err
	}

	if h.snapshots != nil {
		if err := h.snapshots.Save(ctx, cmd.WorkspaceID, tree.Export()); err != nil {
			h.logger.Warn("failed to persist imported snapshot",
				zap.String("workspace_id", cmd.WorkspaceID),
				zap.Error(err))
		}
	}

	event := events.NewTreeImported(tree.ID(), tree.NodeCount(), time.Now())
	if err := h.eventBus.Publish(ctx, event); err != nil {
		h.logger.Warn("failed to publish import event", zap.Error(err))
	}

	h.logger.Info("tree imported",
		zap.String("workspace_id", cmd.WorkspaceID),
		zap.Int("node_count", tree.NodeCount()))
	return nil
}

// SaveSnapshotCommand persists the live tree to the snapshot store
type SaveSnapshotCommand struct {
	WorkspaceID string `json:"workspace_id" validate:"required"`
}

// Validate implements bus.Command
func (c SaveSnapshotCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// SaveSnapshotHandler handles SaveSnapshotCommand
type SaveSnapshotHandler struct {
	repo      ports.TreeRepository
	snapshots ports.SnapshotStore
	logger    *zap.Logger
}

// NewSaveSnapshotHandler creates a new handler instance
func NewSaveSnapshotHandler(repo ports.TreeRepository, snapshots ports.SnapshotStore, logger *zap.Logger) *SaveSnapshotHandler {
	return &SaveSnapshotHandler{repo: repo, snapshots: snapshots, logger: logger}
}

// Handle exports the live tree and writes it to the snapshot store
func (h *SaveSnapshotHandler) Handle(ctx context.Context, cmd SaveSnapshotCommand) error {
	var snapshot aggregates.TreeSnapshot
	err := h.repo.View(ctx, func(tree *aggregates.Tree) error {
		snapshot = tree.Export()
		return nil
	})
	if err != nil {
		return err
	}

	if err := h.snapshots.Save(ctx, cmd.WorkspaceID, snapshot); err != nil {
		return err
	}

	h.logger.Info("snapshot saved",
		zap.String("workspace_id", cmd.WorkspaceID),
		zap.Int("node_count", len(snapshot.Nodes)))
	return nil
}
