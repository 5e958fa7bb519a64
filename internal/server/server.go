package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tunex/internal/cache"
	"github.com/desertthunder/tunex/internal/limiter"
	"github.com/desertthunder/tunex/internal/tasks"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, request ids, and the per-user cool-down.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers in the search service.
// Implementations handle specific endpoints (search, cache maintenance, health).
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the method-qualified patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
// Implementations register handlers, apply middleware, and configure the HTTP server.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// SearchService is the part of [tasks.Searcher] the API needs.
type SearchService interface {
	SearchDetailed(ctx context.Context, raw string, progress chan<- tasks.ProgressUpdate) (tasks.Result, error)
	ClearCache()
	ClearArchive() error
	CacheStats() cache.Stats
	Compact() (cached, archived int)
}

const shutdownTimeout = 10 * time.Second

// Server serves the search API.
type Server struct {
	http   *http.Server
	logger *log.Logger
}

// New builds the API router and an [http.Server] listening on addr.
func New(addr string, svc SearchService, cooldown *limiter.Cooldown, health HealthChecker, logger *log.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           NewAPI(svc, cooldown, health, logger),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// NewAPI wires every route and middleware onto a [BasicRouter].
func NewAPI(svc SearchService, cooldown *limiter.Cooldown, health HealthChecker, logger *log.Logger) *BasicRouter {
	r := NewBasicRouter()
	r.Use(RequestID(), Logging(logger))

	search := NewSearchHandler(svc, logger)
	r.Handle(http.MethodGet, "/search", Cooldown(cooldown)(search))
	r.Handle(http.MethodGet, "/search/stream", Cooldown(cooldown)(http.HandlerFunc(search.Stream)))
	r.Handler(NewAdminHandler(svc, logger))
	r.Handler(NewHealthHandler(health))
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}
