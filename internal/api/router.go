package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/muralkit/engine/internal/api/handlers"
	mw "github.com/muralkit/engine/internal/api/middleware"
)

type Dependencies struct {
	HMACSecret      []byte
	ProjectsHandler *handlers.ProjectsHandler
	CanvasHandler   *handlers.CanvasHandler
	PresenceHandler *handlers.PresenceHandler
	MediaHandler    *handlers.MediaHandler
	WorkersHandler  *handlers.WorkersHandler
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	// Built-in middleware
	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS)
	r.Use(mw.RateLimit(50, 100))
	r.Use(chimid.Compress(5))

	// Health endpoints
	hh := handlers.NewHealthHandler()
	r.Get("/healthz", hh.Liveness)
	r.Get("/readyz", hh.Readiness)

	r.Route("/api/v1", func(api chi.Router) {
		api.Group(func(protected chi.Router) {
			protected.Use(mw.Auth(dep.HMACSecret))

			protected.Route("/projects", func(pr chi.Router) {
				pr.Get("/", dep.ProjectsHandler.List)
				pr.Post("/", dep.ProjectsHandler.Create)
				pr.Get("/{id}", dep.ProjectsHandler.Get)
				pr.Patch("/{id}", dep.ProjectsHandler.Update)
				pr.Delete("/{id}", dep.ProjectsHandler.Delete)
				pr.Post("/{id}/collaborators", dep.ProjectsHandler.AddCollaborator)

				pr.Post("/{id}/operations", dep.CanvasHandler.SubmitOperation)
				pr.Get("/{id}/snapshot", dep.CanvasHandler.GetState)
				pr.Post("/{id}/snapshot", dep.CanvasHandler.CreateSnapshot)
				pr.Get("/{id}/elements/region", dep.CanvasHandler.QueryRegion)
				pr.Get("/{id}/elements/{elementID}", dep.CanvasHandler.GetElement)
				pr.Get("/{id}/elements/anchors", dep.CanvasHandler.QueryByAnchors)

				pr.Post("/{id}/presence", dep.PresenceHandler.Update)
				pr.Get("/{id}/presence", dep.PresenceHandler.List)
				pr.Delete("/{id}/presence", dep.PresenceHandler.Remove)
			})

			protected.Post("/media", dep.MediaHandler.Upload)

			protected.Route("/workers", func(wr chi.Router) {
				wr.Post("/snapshot", dep.WorkersHandler.TriggerSnapshot)
				wr.Post("/media-gc", dep.WorkersHandler.TriggerMediaGC)
			})
		})
	})

	return r
}
