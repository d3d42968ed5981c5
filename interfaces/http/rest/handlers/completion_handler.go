package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"loom-backend/application/services"
	"loom-backend/pkg/common"
	pkgerrors "loom-backend/pkg/errors"
)

// CompletionHandler handles completion HTTP requests. This endpoint
// returns the full response at once; live streaming goes over the
// websocket interface.
type CompletionHandler struct {
	service *services.CompletionService
	errs    *pkgerrors.ErrorHandler
	logger  *zap.Logger
}

// NewCompletionHandler creates a new completion handler
func NewCompletionHandler(service *services.CompletionService, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *CompletionHandler {
	return &CompletionHandler{service: service, errs: errs, logger: logger}
}

// Complete handles POST /completions
func (h *CompletionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req services.CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	result, err := h.service.Complete(r.Context(), req, nil)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, result)
}
