// Package api exposes the sync engine over HTTP: huma operations on a chi router.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/stockroomapp/stockroom-server/internal/auth"
	"github.com/stockroomapp/stockroom-server/internal/domain"
	"github.com/stockroomapp/stockroom-server/internal/http/response"
	"github.com/stockroomapp/stockroom-server/internal/ratelimit"
)

// DeltaReader serves pull requests.
type DeltaReader interface {
	GetDelta(ctx context.Context, q domain.DeltaQuery) (*domain.Delta, error)
}

// BatchWriter serves push requests.
type BatchWriter interface {
	ProcessBatch(ctx context.Context, req domain.BatchRequest) (*domain.BatchResponse, error)
}

// Pinger is a health-checked dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Delta        DeltaReader
	Batch        BatchWriter
	Tokens       *auth.TokenService
	BatchLimiter *ratelimit.KeyedRateLimiter
	// Health maps component names to their checks.
	Health      map[string]Pinger
	CORSOrigins []string
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	deps   Deps
	router *chi.Mux
	api    huma.API
	logger *slog.Logger
}

// NewServer creates the HTTP handler with every route registered.
func NewServer(deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		deps:   deps,
		router: chi.NewRouter(),
		logger: logger,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Stockroom Sync API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerSyncRoutes()

	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "route not found", s.logger)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.MethodNotAllowed(w, "method not allowed", s.logger)
	})

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for OpenAPI generation.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) setupMiddleware() {
	origins := s.deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Retry-After", middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	// Auth runs before logging so log lines carry the workspace.
	s.router.Use(authMiddleware(s.deps.Tokens))
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(batchRateLimit(s.deps.BatchLimiter, s.logger))
}
