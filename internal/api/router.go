package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/varga/lapse/internal/engine"
	"github.com/varga/lapse/internal/runservice"
	"github.com/varga/lapse/internal/seqservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(seqSvc *seqservice.Service, runSvc *runservice.Service, eng engine.Engine, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(seqSvc, runSvc, eng)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Sequence documents CRUD.
	r.Get("/sequences", h.ListSequences)
	r.Post("/sequences", h.CreateSequence)
	r.Get("/sequences/*", h.GetSequence)
	r.Put("/sequences/*", h.UpdateSequence)
	r.Delete("/sequences/*", h.DeleteSequence)

	// Stage position editing.
	r.Get("/positions", h.ListPositions)
	r.Put("/positions", h.ReplacePositions)
	r.Post("/positions", h.AddPosition)
	r.Post("/positions/import", h.ImportPositions)
	r.Patch("/positions/{idx}", h.UpdatePosition)
	r.Delete("/positions/{idx}", h.RemovePosition)

	// Run control.
	r.Get("/run", h.RunStatus)
	r.Post("/run", h.StartRun)
	r.Delete("/run", h.StopRun)
	r.Get("/presets", h.Presets)

	// Stage.
	r.Get("/stage", h.Stage)
	r.Post("/stage/goto", h.GoTo)

	// Search.
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
