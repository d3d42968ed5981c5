package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"loom-backend/application/queries"
	querybus "loom-backend/application/queries/bus"
	"loom-backend/pkg/common"
	pkgerrors "loom-backend/pkg/errors"
)

// ThreadHandler handles thread reconstruction HTTP requests
type ThreadHandler struct {
	queryBus *querybus.QueryBus
	errs     *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

// NewThreadHandler creates a new thread handler
func NewThreadHandler(queryBus *querybus.QueryBus, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *ThreadHandler {
	return &ThreadHandler{queryBus: queryBus, errs: errs, logger: logger}
}

// GetThread handles GET /nodes/{nodeID}/thread
func (h *ThreadHandler) GetThread(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetThreadQuery{
		NodeID: chi.URLParam(r, "nodeID"),
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}
