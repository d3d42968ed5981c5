package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"loom-backend/application/commands"
	"loom-backend/application/commands/bus"
	"loom-backend/application/queries"
	querybus "loom-backend/application/queries/bus"
	"loom-backend/pkg/common"
	pkgerrors "loom-backend/pkg/errors"
)

// NodeHandler handles node-related HTTP requests
type NodeHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	createNode *commands.CreateNodeHandler
	display    *commands.NodeDisplayHandler
	errs       *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	createNode *commands.CreateNodeHandler,
	display *commands.NodeDisplayHandler,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *NodeHandler {
	return &NodeHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		createNode: createNode,
		display:    display,
		errs:       errs,
		logger:     logger,
	}
}

// CreateNode handles POST /nodes
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var cmd commands.CreateNodeCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if err := cmd.Validate(); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	result, err := h.createNode.Handle(r.Context(), cmd)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, result)
}

// GetNode handles GET /nodes/{nodeID}
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetNodeQuery{
		NodeID: chi.URLParam(r, "nodeID"),
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// GetChildren handles GET /nodes/{nodeID}/children
func (h *NodeHandler) GetChildren(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetChildrenQuery{
		NodeID: chi.URLParam(r, "nodeID"),
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// DeleteNode handles DELETE /nodes/{nodeID}
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	err := h.commandBus.Send(r.Context(), commands.DeleteNodeCommand{
		NodeID: chi.URLParam(r, "nodeID"),
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// UpdateBlock handles PUT /nodes/{nodeID}/blocks/{blockID}
func (h *NodeHandler) UpdateBlock(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	err := h.commandBus.Send(r.Context(), commands.UpdateBlockContentCommand{
		NodeID:  chi.URLParam(r, "nodeID"),
		BlockID: chi.URLParam(r, "blockID"),
		Content: body.Content,
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// AddBlock handles POST /nodes/{nodeID}/blocks
func (h *NodeHandler) AddBlock(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Kind    string `json:"kind"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	cmd := commands.AddBlockCommand{
		NodeID:  chi.URLParam(r, "nodeID"),
		Kind:    body.Kind,
		Content: body.Content,
	}
	if err := cmd.Validate(); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	blockID, err := h.display.HandleAddBlock(r.Context(), cmd)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, map[string]string{"block_id": blockID})
}

// RemoveBlock handles DELETE /nodes/{nodeID}/blocks/{blockID}
func (h *NodeHandler) RemoveBlock(w http.ResponseWriter, r *http.Request) {
	err := h.commandBus.Send(r.Context(), commands.RemoveBlockCommand{
		NodeID:  chi.URLParam(r, "nodeID"),
		BlockID: chi.URLParam(r, "blockID"),
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// RenameNode handles PUT /nodes/{nodeID}/name
func (h *NodeHandler) RenameNode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	err := h.commandBus.Send(r.Context(), commands.RenameNodeCommand{
		NodeID: chi.URLParam(r, "nodeID"),
		Name:   body.Name,
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
}

// SetCollapsed handles PUT /nodes/{nodeID}/collapsed
func (h *NodeHandler) SetCollapsed(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Collapsed bool `json:"collapsed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	err := h.commandBus.Send(r.Context(), commands.SetNodeCollapsedCommand{
		NodeID:    chi.URLParam(r, "nodeID"),
		Collapsed: body.Collapsed,
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// SetBlockMinimized handles PUT /nodes/{nodeID}/blocks/{blockID}/minimized
func (h *NodeHandler) SetBlockMinimized(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Minimized bool `json:"minimized"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	err := h.commandBus.Send(r.Context(), commands.SetBlockMinimizedCommand{
		NodeID:    chi.URLParam(r, "nodeID"),
		BlockID:   chi.URLParam(r, "blockID"),
		Minimized: body.Minimized,
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// ResizeBlock handles PUT /nodes/{nodeID}/blocks/{blockID}/size
func (h *NodeHandler) ResizeBlock(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	err := h.commandBus.Send(r.Context(), commands.ResizeBlockCommand{
		NodeID:  chi.URLParam(r, "nodeID"),
		BlockID: chi.URLParam(r, "blockID"),
		Width:   body.Width,
		Height:  body.Height,
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "resized"})
}
