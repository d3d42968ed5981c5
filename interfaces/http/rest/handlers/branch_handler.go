package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"loom-backend/application/commands"
	"loom-backend/application/queries"
	querybus "loom-backend/application/queries/bus"
	"loom-backend/pkg/common"
	pkgerrors "loom-backend/pkg/errors"
)

// BranchHandler handles branch-related HTTP requests
type BranchHandler struct {
	queryBus     *querybus.QueryBus
	createBranch *commands.CreateBranchHandler
	errs         *pkgerrors.ErrorHandler
	logger       *zap.Logger
}

// NewBranchHandler creates a new branch handler
func NewBranchHandler(
	queryBus *querybus.QueryBus,
	createBranch *commands.CreateBranchHandler,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *BranchHandler {
	return &BranchHandler{
		queryBus:     queryBus,
		createBranch: createBranch,
		errs:         errs,
		logger:       logger,
	}
}

// CreateBranch handles POST /branches
func (h *BranchHandler) CreateBranch(w http.ResponseWriter, r *http.Request) {
	var cmd commands.CreateBranchCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if err := cmd.Validate(); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	result, err := h.createBranch.Handle(r.Context(), cmd)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, result)
}

// ListBranches handles GET /branches
func (h *BranchHandler) ListBranches(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.ListBranchesQuery{})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// ListBranchesByNode handles GET /nodes/{nodeID}/branches
func (h *BranchHandler) ListBranchesByNode(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.ListBranchesByNodeQuery{
		NodeID: chi.URLParam(r, "nodeID"),
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}
