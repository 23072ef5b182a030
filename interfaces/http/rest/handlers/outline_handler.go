package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/relight14/micropaymentcrawler-sub002/application/session"
	"github.com/relight14/micropaymentcrawler-sub002/application/store"
	"github.com/relight14/micropaymentcrawler-sub002/application/suggest"
	"github.com/relight14/micropaymentcrawler-sub002/domain/research"
	"github.com/relight14/micropaymentcrawler-sub002/pkg/common"
	pkgerrors "github.com/relight14/micropaymentcrawler-sub002/pkg/errors"
)

// OutlineHandler serves the outline endpoints.
type OutlineHandler struct {
	controller  *session.Controller
	suggestions *suggest.Service
	logger      *zap.Logger
}

// NewOutlineHandler creates an outline handler.
func NewOutlineHandler(controller *session.Controller, suggestions *suggest.Service, logger *zap.Logger) *OutlineHandler {
	return &OutlineHandler{controller: controller, suggestions: suggestions, logger: logger}
}

type setSectionsRequest struct {
	Sections []research.OutlineSection `json:"sections"`
}

type addSourceRequest struct {
	SourceID string `json:"source_id"`
	Origin   string `json:"origin"`
}

type moveSectionRequest struct {
	Direction string `json:"direction"`
}

type mutationResponse struct {
	Applied  bool                      `json:"applied"`
	Sections []research.OutlineSection `json:"sections"`
}

// Get returns a snapshot of the outline.
func (h *OutlineHandler) Get(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, h.controller.OutlineSnapshot())
}

// Set replaces the outline wholesale.
func (h *OutlineHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req setSectionsRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.ErrorTypeValidation), "invalid request body")
		return
	}

	h.controller.SetSections(r.Context(), req.Sections)
	common.RespondJSON(w, http.StatusOK, h.controller.OutlineSnapshot())
}

// AddSource places a pooled source into a section.
func (h *OutlineHandler) AddSource(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.ErrorTypeValidation), "invalid section index")
		return
	}

	var req addSourceRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.ErrorTypeValidation), "invalid request body")
		return
	}

	origin := research.OriginUser
	if req.Origin == string(research.OriginAuto) {
		origin = research.OriginAuto
	}

	inserted, err := h.controller.AddSourceToSection(r.Context(), index, req.SourceID, origin)
	if err != nil {
		common.RespondError(w, pkgerrors.HTTPStatusFor(err), "OUTLINE_ERROR", err.Error())
		return
	}
	common.RespondJSON(w, http.StatusOK, mutationResponse{
		Applied:  inserted,
		Sections: h.controller.OutlineSnapshot(),
	})
}

// Move swaps a section with its neighbor. Out-of-bounds moves report
// applied=false rather than failing.
func (h *OutlineHandler) Move(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.ErrorTypeValidation), "invalid section index")
		return
	}

	var req moveSectionRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.ErrorTypeValidation), "invalid request body")
		return
	}

	var direction store.MoveDirection
	switch req.Direction {
	case "up":
		direction = store.MoveUp
	case "down":
		direction = store.MoveDown
	default:
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.ErrorTypeValidation), "direction must be \"up\" or \"down\"")
		return
	}

	moved := h.controller.MoveSection(r.Context(), index, direction)
	common.RespondJSON(w, http.StatusOK, mutationResponse{
		Applied:  moved,
		Sections: h.controller.OutlineSnapshot(),
	})
}

// Suggest regenerates the outline from AI suggestions. Already-placed
// sources survive the regeneration.
func (h *OutlineHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.suggestions.RegenerateOutline(r.Context())
	if err != nil {
		if pkgerrors.IsStale(err) {
			common.RespondJSON(w, http.StatusOK, nil)
			return
		}
		h.logger.Warn("outline suggestion failed", zap.Error(err))
		common.RespondError(w, pkgerrors.HTTPStatusFor(err), "SUGGESTION_ERROR", err.Error())
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": suggestions,
		"sections":    h.controller.OutlineSnapshot(),
	})
}
