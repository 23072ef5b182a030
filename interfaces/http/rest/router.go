package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/relight14/micropaymentcrawler-sub002/infrastructure/di"
	"github.com/relight14/micropaymentcrawler-sub002/interfaces/http/rest/handlers"
	"github.com/relight14/micropaymentcrawler-sub002/interfaces/http/rest/middleware"
	"github.com/relight14/micropaymentcrawler-sub002/pkg/common"
)

// Router creates and configures the HTTP router
type Router struct {
	container *di.Container
	logger    *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(container *di.Container) *Router {
	return &Router{
		container: container,
		logger:    container.Logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.container.Config.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.micropaymentcrawler.com"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	sessionHandler := handlers.NewSessionHandler(rt.container.Controller, rt.logger)
	sourceHandler := handlers.NewSourceHandler(rt.container.Controller, rt.container.Suggestions, rt.logger)
	outlineHandler := handlers.NewOutlineHandler(rt.container.Controller, rt.container.Suggestions, rt.logger)
	eventsHandler := handlers.NewEventsHandler(rt.container.Bus, rt.logger)

	// Health check
	router.Get("/health", rt.healthCheck)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/session", sessionHandler.Current)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", sessionHandler.List)
			r.Post("/", sessionHandler.Create)
			r.Post("/{projectID}/switch", sessionHandler.Switch)
			r.Delete("/{projectID}", sessionHandler.Delete)
		})

		r.Route("/sources", func(r chi.Router) {
			r.Get("/", sourceHandler.List)
			r.Post("/merge", sourceHandler.Merge)
			r.Delete("/{sourceID}", sourceHandler.Remove)
			r.Put("/{sourceID}/selection", sourceHandler.SetSelection)
			r.Post("/{sourceID}/unlock", sourceHandler.Unlock)
		})

		r.Route("/outline", func(r chi.Router) {
			r.Get("/", outlineHandler.Get)
			r.Put("/", outlineHandler.Set)
			r.Post("/suggest", outlineHandler.Suggest)
			r.Post("/sections/{index}/sources", outlineHandler.AddSource)
			r.Post("/sections/{index}/move", outlineHandler.Move)
		})

		r.Get("/events", eventsHandler.Stream)
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"session": string(rt.container.Controller.State()),
	})
}
