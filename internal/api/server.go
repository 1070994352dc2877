// Package api exposes the solver over HTTP. The server accepts a
// network model inline, runs the pipeline, and returns per-bus
// voltages; when a store is configured it also records runs and serves
// their history.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/voltlab/distflow/pkg/pipeline"
	"github.com/voltlab/distflow/pkg/store"
)

// Server wires the HTTP routes to a pipeline runner.
type Server struct {
	runner *pipeline.Runner
	store  *store.Store
	logger *log.Logger

	http *http.Server
}

// Config holds the server dependencies. Store is optional; without it
// the runs endpoints respond 404.
type Config struct {
	Addr   string
	Runner *pipeline.Runner
	Store  *store.Store
	Logger *log.Logger
}

// New builds a server. A nil logger falls back to the package default.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	s := &Server{
		runner: cfg.Runner,
		store:  cfg.Store,
		logger: cfg.Logger,
	}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes builds the router. Exposed separately so tests can drive the
// handlers through httptest without binding a port.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/solve", s.handleSolve)
		r.Get("/runs", s.handleRuns)
	})
	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.http.Addr)
		errc <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutCtx)
	}
}
