// Package http wires the read-only façade spec §6.4 describes: chi routing,
// cors, structured request logging, and panic recovery, adapted from the
// teacher's interfaces/http/rest.Router.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"workitems/application/registry"
	"workitems/interfaces/http/handlers"
	"workitems/interfaces/http/middleware"
)

// Router builds the façade's http.Handler.
type Router struct {
	registry   *registry.Registry
	logger     *zap.Logger
	enableCORS bool
}

// NewRouter constructs the router.
func NewRouter(reg *registry.Registry, logger *zap.Logger, enableCORS bool) *Router {
	return &Router{registry: reg, logger: logger, enableCORS: enableCORS}
}

// Setup configures every route and returns the handler ready for
// http.Server.Handler.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logger(rt.logger))

	if rt.enableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", healthCheck)

	wh := handlers.NewWorkItemHandler(rt.registry, rt.logger)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/history", wh.ListHistory)
		r.Route("/work-items", func(r chi.Router) {
			r.Get("/", wh.ListWorkItems)
			r.Get("/{id}", wh.GetDetails)
			r.Get("/{id}/tree", wh.GetFullTree)
			r.Get("/{id}/export", wh.ExportProject)
		})
	})

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
