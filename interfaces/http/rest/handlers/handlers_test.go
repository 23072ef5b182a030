package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relight14/micropaymentcrawler-sub002/application/mocks"
	"github.com/relight14/micropaymentcrawler-sub002/application/persist"
	"github.com/relight14/micropaymentcrawler-sub002/application/session"
	"github.com/relight14/micropaymentcrawler-sub002/application/store"
	"github.com/relight14/micropaymentcrawler-sub002/application/suggest"
	"github.com/relight14/micropaymentcrawler-sub002/domain/research"
	"github.com/relight14/micropaymentcrawler-sub002/infrastructure/messaging"
	"github.com/relight14/micropaymentcrawler-sub002/pkg/common"
)

type testEnv struct {
	router     *chi.Mux
	controller *session.Controller
	repo       *mocks.MockProjectRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	repo := mocks.NewMockProjectRepository()
	bus := messaging.NewMemoryBus(logger)

	controller := session.NewController(repo, bus,
		store.NewSourceStore(logger),
		store.NewOutlineStore(logger),
		logger,
	)
	controller.SetEngine(persist.NewEngine(controller, repo, bus, 10*time.Millisecond, logger))
	suggestions := suggest.NewService(mocks.NewMockSuggestionProvider(), controller, logger)

	sessionHandler := NewSessionHandler(controller, logger)
	sourceHandler := NewSourceHandler(controller, suggestions, logger)
	outlineHandler := NewOutlineHandler(controller, suggestions, logger)

	router := chi.NewRouter()
	router.Get("/session", sessionHandler.Current)
	router.Post("/projects", sessionHandler.Create)
	router.Post("/projects/{projectID}/switch", sessionHandler.Switch)
	router.Delete("/projects/{projectID}", sessionHandler.Delete)
	router.Get("/sources", sourceHandler.List)
	router.Post("/sources/merge", sourceHandler.Merge)
	router.Delete("/sources/{sourceID}", sourceHandler.Remove)
	router.Put("/sources/{sourceID}/selection", sourceHandler.SetSelection)
	router.Post("/sources/{sourceID}/unlock", sourceHandler.Unlock)
	router.Get("/outline", outlineHandler.Get)
	router.Put("/outline", outlineHandler.Set)
	router.Post("/sections/{index}/sources", outlineHandler.AddSource)
	router.Post("/sections/{index}/move", outlineHandler.Move)

	return &testEnv{router: router, controller: controller, repo: repo}
}

func (env *testEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, common.APIResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	var resp common.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func (env *testEnv) activate(t *testing.T, doc research.ProjectDocument) {
	t.Helper()
	env.repo.SeedProject(doc)
	_, err := env.controller.SwitchTo(context.Background(), doc.Project.ID)
	require.NoError(t, err)
}

func activeDoc(id string) research.ProjectDocument {
	return research.ProjectDocument{
		Project: research.Project{ID: id, Title: "Project " + id},
		Sources: []research.SourceRecord{
			{ID: id + "-s1", URL: "https://x.com/" + id, Title: "Source " + id},
		},
		Sections: []research.OutlineSection{
			{Title: "Background", Position: 0},
			{Title: "Findings", Position: 1},
		},
	}
}

func TestSessionEndpoints(t *testing.T) {
	t.Run("current reflects the empty session", func(t *testing.T) {
		env := newTestEnv(t)
		rec, resp := env.do(t, http.MethodGet, "/session", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "", data["project_id"])
		assert.Equal(t, "NONE", data["state"])
	})

	t.Run("create activates the new project", func(t *testing.T) {
		env := newTestEnv(t)
		rec, resp := env.do(t, http.MethodPost, "/projects", map[string]string{"title": "Fresh"})

		require.Equal(t, http.StatusCreated, rec.Code)
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "Fresh", data["title"])
		assert.Equal(t, data["id"], env.controller.CurrentID())
	})

	t.Run("create without a title is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		rec, resp := env.do(t, http.MethodPost, "/projects", map[string]string{"title": ""})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, resp.Error)
	})

	t.Run("switch loads the project document", func(t *testing.T) {
		env := newTestEnv(t)
		env.repo.SeedProject(activeDoc("alpha"))

		rec, _ := env.do(t, http.MethodPost, "/projects/alpha/switch", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "alpha", env.controller.CurrentID())
	})

	t.Run("switch to a missing project stays optimistic but reports the failure", func(t *testing.T) {
		env := newTestEnv(t)
		rec, resp := env.do(t, http.MethodPost, "/projects/ghost/switch", nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "ghost", env.controller.CurrentID())
	})
}

func TestSourceEndpoints(t *testing.T) {
	t.Run("merge reports added records and pool total", func(t *testing.T) {
		env := newTestEnv(t)
		env.activate(t, activeDoc("alpha"))

		body := map[string]interface{}{
			"sources": []map[string]string{
				{"url": "https://x.com/new", "title": "New", "excerpt": "fresh find"},
			},
		}
		rec, resp := env.do(t, http.MethodPost, "/sources/merge", body)

		require.Equal(t, http.StatusOK, rec.Code)
		data := resp.Data.(map[string]interface{})
		assert.Len(t, data["added"], 1)
		assert.Equal(t, float64(2), data["total"])
	})

	t.Run("re-merging the same source adds nothing", func(t *testing.T) {
		env := newTestEnv(t)
		env.activate(t, activeDoc("alpha"))

		body := map[string]interface{}{
			"sources": []map[string]string{
				{"url": "https://x.com/alpha", "title": "Source alpha"},
			},
		}
		rec, resp := env.do(t, http.MethodPost, "/sources/merge", body)

		require.Equal(t, http.StatusOK, rec.Code)
		data := resp.Data.(map[string]interface{})
		assert.Empty(t, data["added"])
		assert.Equal(t, float64(1), data["total"])
	})

	t.Run("merge with an empty source list is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		env.activate(t, activeDoc("alpha"))

		rec, _ := env.do(t, http.MethodPost, "/sources/merge", map[string]interface{}{"sources": []string{}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("selection and unlock round-trip", func(t *testing.T) {
		env := newTestEnv(t)
		env.activate(t, activeDoc("alpha"))

		rec, _ := env.do(t, http.MethodPut, "/sources/alpha-s1/selection", map[string]bool{"selected": true})
		assert.Equal(t, http.StatusOK, rec.Code)

		rec, _ = env.do(t, http.MethodPost, "/sources/alpha-s1/unlock", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		snapshot := env.controller.SourcesSnapshot()
		require.Len(t, snapshot, 1)
		assert.True(t, snapshot[0].Selected)
		assert.True(t, snapshot[0].Unlocked)
	})

	t.Run("operations on an unknown source return 404", func(t *testing.T) {
		env := newTestEnv(t)
		env.activate(t, activeDoc("alpha"))

		rec, _ := env.do(t, http.MethodDelete, "/sources/ghost", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec, _ = env.do(t, http.MethodPost, "/sources/ghost/unlock", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestOutlineEndpoints(t *testing.T) {
	t.Run("add source to section then move it", func(t *testing.T) {
		env := newTestEnv(t)
		env.activate(t, activeDoc("alpha"))

		rec, _ := env.do(t, http.MethodPost, "/sections/0/sources", map[string]string{"source_id": "alpha-s1"})
		assert.Equal(t, http.StatusOK, rec.Code)

		rec, _ = env.do(t, http.MethodPost, "/sections/0/move", map[string]string{"direction": "down"})
		assert.Equal(t, http.StatusOK, rec.Code)

		assert.Equal(t, []string{"Findings", "Background"}, env.controller.SectionTitles())
	})

	t.Run("adding an unknown source returns 404", func(t *testing.T) {
		env := newTestEnv(t)
		env.activate(t, activeDoc("alpha"))

		rec, _ := env.do(t, http.MethodPost, "/sections/0/sources", map[string]string{"source_id": "ghost"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("moving past the boundary is reported as not applied", func(t *testing.T) {
		env := newTestEnv(t)
		env.activate(t, activeDoc("alpha"))

		rec, resp := env.do(t, http.MethodPost, "/sections/0/move", map[string]string{"direction": "up"})
		require.Equal(t, http.StatusOK, rec.Code)
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, false, data["applied"])
	})
}
