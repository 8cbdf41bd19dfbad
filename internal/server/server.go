// Package server exposes citation graphs over HTTP: a JSON API and an
// interactive graph page, behind admin login.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/matsen/citegraph/internal/auth"
	"github.com/matsen/citegraph/internal/graph"
	"github.com/matsen/citegraph/internal/metrics"
	"github.com/matsen/citegraph/internal/openalex"
	"github.com/matsen/citegraph/internal/paper"
	"github.com/matsen/citegraph/internal/storage"
	"github.com/rs/zerolog"
)

// Searcher finds candidate works by title. *openalex.Client satisfies it.
type Searcher interface {
	SearchByTitle(ctx context.Context, title string) ([]openalex.SearchResult, error)
}

// MetadataSource resolves work metadata and references. *openalex.Cache satisfies it.
type MetadataSource interface {
	graph.ReferenceSource
	GetMetadata(ctx context.Context, id string) (openalex.Metadata, error)
}

// Server represents the HTTP server.
type Server struct {
	db       *storage.DB
	auth     *auth.Service
	searcher Searcher
	meta     MetadataSource
	metrics  *metrics.Collector
	logger   zerolog.Logger
	validate *validator.Validate
	router   *chi.Mux

	requestTimeout time.Duration
	secureCookies  bool

	mu       sync.Mutex
	engines  map[paper.Scope]*graph.Engine
	sessions map[string]paper.Scope // session token -> scope it last used
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics enables request metrics and the /metrics endpoint.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithRequestTimeout bounds handler run time. Auto-completion over a large
// graph with a cold cache needs a generous value.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithSecureCookies marks the session cookie Secure (HTTPS deployments).
func WithSecureCookies(secure bool) Option {
	return func(s *Server) {
		s.secureCookies = secure
	}
}

// New creates a new server instance.
func New(
	db *storage.DB,
	authSvc *auth.Service,
	searcher Searcher,
	meta MetadataSource,
	logger zerolog.Logger,
	opts ...Option,
) *Server {
	s := &Server{
		db:             db,
		auth:           authSvc,
		searcher:       searcher,
		meta:           meta,
		logger:         logger,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		router:         chi.NewRouter(),
		requestTimeout: 10 * time.Minute,
		engines:        make(map[paper.Scope]*graph.Engine),
		sessions:       make(map[string]paper.Scope),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.requestTimeout))

	s.router.Get("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Get("/topics", s.handleListTopics)
			r.Post("/topics", s.handleCreateTopic)
			r.Post("/topics/{name}/activate", s.handleActivateTopic)

			r.Get("/search", s.handleSearch)
			r.Get("/graph", s.handleGetGraph)

			r.Post("/nodes", s.handleAddNode)
			r.Patch("/nodes/{id}", s.handleUpdateNode)
			r.Delete("/nodes/{id}", s.handleRemoveNode)

			r.Post("/edges", s.handleAddEdge)
			r.Delete("/edges/{source}/{target}", s.handleRemoveEdge)

			r.Post("/complete", s.handleComplete)
		})
	})

	s.router.With(s.requireSession).Get("/graph", s.handleGraphPage)
}

// Handler returns the HTTP handler (useful for testing).
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info().Msg("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// engineFor returns the engine for the session's active topic, opening it
// on first use. Sessions working in the same scope share one engine.
func (s *Server) engineFor(ctx context.Context, sess *auth.Session) (*graph.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scope := sess.Scope()
	if prev, ok := s.sessions[sess.Token]; ok && prev != scope {
		s.releaseLocked(sess.Token)
	}

	e, ok := s.engines[scope]
	if !ok {
		logger := s.logger.With().Str("user", sess.User.Username).Str("topic", sess.Topic.Name).Logger()
		var err error
		e, err = graph.Open(ctx, s.db.Graph(scope), s.meta, logger, graph.WithMetrics(s.metrics))
		if err != nil {
			return nil, err
		}
		s.engines[scope] = e
	}

	s.sessions[sess.Token] = scope
	return e, nil
}

// dropEngine forgets a session's engine. The engine itself is closed once
// no session uses its scope.
func (s *Server) dropEngine(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked(token)
}

func (s *Server) releaseLocked(token string) {
	scope, ok := s.sessions[token]
	if !ok {
		return
	}
	delete(s.sessions, token)

	for _, other := range s.sessions {
		if other == scope {
			return
		}
	}
	delete(s.engines, scope)
}

// activeEngines returns the number of open engines.
func (s *Server) activeEngines() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.engines)
}
