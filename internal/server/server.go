// Package server exposes the registry and discovery index as a read-only
// JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/conduit-lang/mirror/runtime/discovery"
	"github.com/conduit-lang/mirror/runtime/registry"
)

// Server answers declaration queries over HTTP
type Server struct {
	registry *registry.Registry
	index    *discovery.Index
	logger   *zap.Logger
	router   chi.Router
}

// New creates a server over a registry and its index
func New(reg *registry.Registry, idx *discovery.Index, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{registry: reg, index: idx, logger: logger, router: chi.NewRouter()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(RequestID, Recovery(s.logger), Logging(s.logger))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/generation", s.handleGeneration)
		r.Get("/packages", s.handlePackages)
		r.Get("/libraries", s.handleLibraries)
		r.Get("/types", s.handleFindByName)
		r.Get("/types/qualified", s.handleFindByQualifiedName)
		r.Get("/types/simple", s.handleFindAllBySimpleName)
		r.Get("/types/{query:subclasses|implementers|instantiations}", s.handleHierarchy)
		r.Get("/cache", s.handleCache)
	})
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		renderJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "no route for " + r.URL.Path})
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Serve accepts connections on l until ctx is cancelled, then shuts down
// gracefully
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(l)
	}()
	s.logger.Info("serving", zap.String("addr", l.Addr().String()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on addr and calls Serve
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, l)
}
