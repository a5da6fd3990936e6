package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/PauloFidalgo/cmov-5g/internal/application/telemetry"
	"github.com/PauloFidalgo/cmov-5g/internal/domain"
	"github.com/PauloFidalgo/cmov-5g/internal/infra"
)

// Server exposes the HTTP transport for the telemetry application.
type Server struct {
	router chi.Router
}

// NewServer constructs a chi based HTTP server that forwards requests to the application service.
func NewServer(service telemetry.Service, logger domain.Logger) *Server {
	router := chi.NewRouter()
	router.Use(infra.HTTPMiddleware)

	handler := &handler{service: service, logger: logger}
	registerRoutes(router, handler)

	return &Server{router: router}
}

// Router returns the configured chi router for reuse in tests or external HTTP servers.
func (s *Server) Router() http.Handler {
	return s.router
}

// ServeHTTP allows Server to satisfy the http.Handler interface directly.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
