// package server contains the router, middleware & handlers for the download HTTP API
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunedl/internal/tasks"
	"golang.org/x/sync/errgroup"
)

// ShutdownTimeout bounds how long in-flight requests get once the server is asked to stop.
const ShutdownTimeout = 10 * time.Second

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                        // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler)    // Handle registers a handler for the specified method and path
	HandleFunc(method, path string, fn http.HandlerFunc) // HandleFunc registers a handler function
	ServeHTTP(w http.ResponseWriter, r *http.Request)    // ServeHTTP implements http.Handler for the entire router
}

// Server exposes an [tasks.Orchestrator] over HTTP.
type Server struct {
	orch   *tasks.Orchestrator
	logger *log.Logger
	router Router
}

// New creates a Server with every route and the standard middleware stack registered.
func New(orch *tasks.Orchestrator, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{orch: orch, logger: logger, router: NewBasicRouter()}
	s.router.Use(Logging(logger), Recover(logger), CORS)

	s.router.HandleFunc(http.MethodGet, "/api/health", s.health)
	s.router.HandleFunc(http.MethodGet, "/api/spotify/item", s.item)
	s.router.HandleFunc(http.MethodGet, "/api/spotify/info", s.info)
	s.router.HandleFunc(http.MethodGet, "/api/spotify/search", s.search)
	s.router.HandleFunc(http.MethodPost, "/api/download/start", s.start)
	s.router.HandleFunc(http.MethodGet, "/api/download/progress/{id}", s.progress)

	return s
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
//
// Running jobs are not waited on; they are detached from every request and die with the process.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
