// Package http wires the REST handlers into a chi router.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"docdrift/internal/handlers"
	"docdrift/internal/metrics"
	"docdrift/internal/service"
	"docdrift/internal/vectorstore"
)

const healthPath = "/api/health"

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Service    service.DocService
	Store      vectorstore.VectorStore
	Collection string
	Metrics    *metrics.Recorder
	Logger     *slog.Logger
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(RequestLogger)
	r.Use(CORS)

	collections := handlers.NewCollectionsHandler(deps.Service)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/index", handlers.NewIndexHandler(deps.Service))
		r.Method(http.MethodPost, "/check", handlers.NewCheckHandler(deps.Service))
		r.Method(http.MethodPost, "/search", handlers.NewSearchHandler(deps.Service))
		r.Method(http.MethodPost, "/changes", handlers.NewChangesHandler(deps.Service))
		r.Get("/collections", collections.List)
		r.Delete("/collections/{name}", collections.Delete)
		r.Method(http.MethodGet, "/health", handlers.NewHealthHandler(deps.Store, deps.Collection))
	})

	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	return r
}
