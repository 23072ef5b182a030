package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/relight14/micropaymentcrawler-sub002/application/session"
	"github.com/relight14/micropaymentcrawler-sub002/application/suggest"
	"github.com/relight14/micropaymentcrawler-sub002/domain/research"
	"github.com/relight14/micropaymentcrawler-sub002/pkg/common"
	pkgerrors "github.com/relight14/micropaymentcrawler-sub002/pkg/errors"
)

// SourceHandler serves the source pool endpoints.
type SourceHandler struct {
	controller  *session.Controller
	suggestions *suggest.Service
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewSourceHandler creates a source handler.
func NewSourceHandler(controller *session.Controller, suggestions *suggest.Service, logger *zap.Logger) *SourceHandler {
	return &SourceHandler{
		controller:  controller,
		suggestions: suggestions,
		validate:    validator.New(),
		logger:      logger,
	}
}

type mergeSourcesRequest struct {
	Sources []research.SourceRecord `json:"sources" validate:"required,min=1"`
}

type mergeSourcesResponse struct {
	Added []research.SourceRecord `json:"added"`
	Total int                     `json:"total"`
}

type selectionRequest struct {
	Selected bool `json:"selected"`
}

// List returns a snapshot of the source pool.
func (h *SourceHandler) List(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, h.controller.SourcesSnapshot())
}

// Merge folds discovered sources into the pool. Newly added records are
// handed to auto-categorization in the background; its results arrive as
// outline notifications and are dropped if the project changes first.
func (h *SourceHandler) Merge(w http.ResponseWriter, r *http.Request) {
	var req mergeSourcesRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.ErrorTypeValidation), "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.ErrorTypeValidation), err.Error())
		return
	}

	added := h.controller.MergeSources(r.Context(), req.Sources)
	if len(added) > 0 {
		go h.suggestions.AutoCategorize(context.Background(), added)
	}

	common.RespondJSON(w, http.StatusOK, mergeSourcesResponse{
		Added: added,
		Total: len(h.controller.SourcesSnapshot()),
	})
}

// Remove drops a source from the pool and reconciles the outline.
func (h *SourceHandler) Remove(w http.ResponseWriter, r *http.Request) {
	sourceID := chi.URLParam(r, "sourceID")
	if !h.controller.RemoveSource(r.Context(), sourceID) {
		common.RespondError(w, http.StatusNotFound, string(pkgerrors.ErrorTypeNotFound), "source not found")
		return
	}
	common.RespondJSON(w, http.StatusOK, nil)
}

// SetSelection toggles a source's selection state.
func (h *SourceHandler) SetSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.ErrorTypeValidation), "invalid request body")
		return
	}

	sourceID := chi.URLParam(r, "sourceID")
	if !h.controller.SetSourceSelected(r.Context(), sourceID, req.Selected) {
		common.RespondError(w, http.StatusNotFound, string(pkgerrors.ErrorTypeNotFound), "source not found")
		return
	}
	common.RespondJSON(w, http.StatusOK, nil)
}

// Unlock records a purchased source.
func (h *SourceHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	sourceID := chi.URLParam(r, "sourceID")
	if !h.controller.MarkSourceUnlocked(r.Context(), sourceID) {
		common.RespondError(w, http.StatusNotFound, string(pkgerrors.ErrorTypeNotFound), "source not found")
		return
	}
	common.RespondJSON(w, http.StatusOK, nil)
}
