// Package handlers exposes the workspace to rendering collaborators: pull
// endpoints for snapshots, mutation endpoints for user actions, and an SSE
// stream bridging the notification bus.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/relight14/micropaymentcrawler-sub002/application/session"
	"github.com/relight14/micropaymentcrawler-sub002/pkg/common"
	pkgerrors "github.com/relight14/micropaymentcrawler-sub002/pkg/errors"
)

const maxBodyBytes = 1 << 20

// SessionHandler serves project lifecycle and switching endpoints.
type SessionHandler struct {
	controller *session.Controller
	logger     *zap.Logger
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(controller *session.Controller, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{controller: controller, logger: logger}
}

type createProjectRequest struct {
	Title string `json:"title"`
}

type sessionResponse struct {
	ProjectID string      `json:"project_id"`
	State     string      `json:"state"`
	Project   interface{} `json:"project,omitempty"`
}

// Current returns the active session state.
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	resp := sessionResponse{
		ProjectID: h.controller.CurrentID(),
		State:     string(h.controller.State()),
	}
	if resp.ProjectID != "" {
		resp.Project = h.controller.Project()
	}
	common.RespondJSON(w, http.StatusOK, resp)
}

// List returns project metadata for the workspace picker.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.controller.ListProjects(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, projects)
}

// Create registers a new project and makes it active.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.ErrorTypeValidation), "invalid request body")
		return
	}
	if req.Title == "" {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.ErrorTypeValidation), "title is required")
		return
	}

	project, err := h.controller.CreateProject(r.Context(), req.Title)
	if err != nil {
		h.respondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, project)
}

// Switch makes the given project active, reloading both stores.
func (h *SessionHandler) Switch(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	doc, err := h.controller.SwitchTo(r.Context(), projectID)
	if err != nil {
		if pkgerrors.IsStale(err) {
			// Another switch won the race; nothing to render for this one.
			common.RespondJSON(w, http.StatusOK, nil)
			return
		}
		// The controller stays on the new project; the client may render a
		// degraded empty state and retry.
		h.respondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, doc)
}

// Delete removes a project.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	if err := h.controller.DeleteProject(r.Context(), projectID); err != nil {
		h.respondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, nil)
}

func (h *SessionHandler) respondError(w http.ResponseWriter, err error) {
	h.logger.Warn("session request failed", zap.Error(err))
	common.RespondError(w, pkgerrors.HTTPStatusFor(err), "SESSION_ERROR", err.Error())
}
