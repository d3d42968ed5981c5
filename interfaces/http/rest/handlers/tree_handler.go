package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"loom-backend/application/commands"
	"loom-backend/application/commands/bus"
	"loom-backend/application/queries"
	querybus "loom-backend/application/queries/bus"
	"loom-backend/domain/core/aggregates"
	"loom-backend/pkg/common"
	pkgerrors "loom-backend/pkg/errors"
)

// TreeHandler handles whole-tree HTTP requests: layout, export, import,
// and snapshot persistence.
type TreeHandler struct {
	commandBus  *bus.CommandBus
	queryBus    *querybus.QueryBus
	workspaceID string
	errs        *pkgerrors.ErrorHandler
	logger      *zap.Logger
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	workspaceID string,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *TreeHandler {
	return &TreeHandler{
		commandBus:  commandBus,
		queryBus:    queryBus,
		workspaceID: workspaceID,
		errs:        errs,
		logger:      logger,
	}
}

// GetLayout handles GET /tree/layout
func (h *TreeHandler) GetLayout(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetLayoutQuery{})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// Export handles GET /tree/export
func (h *TreeHandler) Export(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.ExportTreeQuery{})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// Import handles POST /tree/import
func (h *TreeHandler) Import(w http.ResponseWriter, r *http.Request) {
	var snapshot aggregates.TreeSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snapshot); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid snapshot body")
		return
	}

	err := h.commandBus.Send(r.Context(), commands.ImportTreeCommand{
		WorkspaceID: h.workspaceID,
		Snapshot:    snapshot,
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "imported"})
}

// SaveSnapshot handles POST /tree/snapshot
func (h *TreeHandler) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	err := h.commandBus.Send(r.Context(), commands.SaveSnapshotCommand{
		WorkspaceID: h.workspaceID,
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}
