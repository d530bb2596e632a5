package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/michaelbrown/agentrun/internal/config"
	"github.com/michaelbrown/agentrun/internal/runner"
	"github.com/michaelbrown/agentrun/internal/storage"
)

// Server is the HTTP front of the execution pipeline.
type Server struct {
	cfg     *config.Config
	runner  *runner.Runner
	store   storage.Store
	metrics *metrics
	router  chi.Router
	http    *http.Server
}

// New creates a new Server. The store may be nil, in which case run
// history endpoints return 404 and nothing is recorded.
func New(cfg *config.Config, r *runner.Runner, store storage.Store) *Server {
	s := &Server{
		cfg:     cfg,
		runner:  r,
		store:   store,
		metrics: newMetrics(),
		router:  chi.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/v1/health/", http.StatusTemporaryRedirect)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health/", s.handleHealth)
		r.Get("/run/ws", s.handleRunWS)
		r.With(jsonContentType).Post("/run/", s.handleRun)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(jsonContentType)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
	})

	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
}

// jsonContentType sets Content-Type to application/json for API routes.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening on the given port.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.http = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	log.Printf("agentrun server starting on http://localhost%s (container %s)",
		addr, s.runner.Config().ContainerName)
	return s.http.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.http.Shutdown(shutdownCtx)
}
