// Package api wires the HTTP surface of the golf API: routing,
// middleware and handlers.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sjlangley/social-golf-spa/pkg/auth"
	"github.com/sjlangley/social-golf-spa/pkg/httputil"
	"github.com/sjlangley/social-golf-spa/pkg/middleware"
	"github.com/sjlangley/social-golf-spa/pkg/observability"
	"github.com/sjlangley/social-golf-spa/pkg/rbac"
	"github.com/sjlangley/social-golf-spa/pkg/users"
)

// ScopeUsersRead guards the user listing endpoints.
var ScopeUsersRead = auth.MustScope("users:read")

// Server represents our API server
type Server struct {
	router  *mux.Router
	users   *users.Service
	engine  *rbac.Engine
	auth    *middleware.Auth
	logger  *observability.Logger
	metrics *observability.Metrics
	health  *observability.HealthChecker
	cors    []string
}

// Options configures a Server. Metrics and Health may be nil.
type Options struct {
	Users       *users.Service
	Engine      *rbac.Engine
	Auth        *middleware.Auth
	Logger      *observability.Logger
	Metrics     *observability.Metrics
	Health      *observability.HealthChecker
	CORSOrigins []string
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		users:   opts.Users,
		engine:  opts.Engine,
		auth:    opts.Auth,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		health:  opts.Health,
		cors:    opts.CORSOrigins,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	// Unknown paths get the same JSON error shape as everything else.
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFound(w, "not found")
	})

	// Probes and metrics stay outside auth and CORS.
	if s.health != nil {
		s.router.HandleFunc("/health", s.health.Liveness).Methods("GET")
		s.router.HandleFunc("/health/ready", s.health.Readiness).Methods("GET")
	}
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	base := []httputil.Middleware{
		httputil.RequestIDMiddleware(s.logger),
		httputil.LoggingMiddleware(s.logger),
		httputil.RecoveryMiddleware(s.logger),
		httputil.CORSMiddleware(s.cors),
	}
	if s.metrics != nil {
		base = append(base, s.metrics.HTTPMiddleware)
	}
	chain := httputil.Chain(base...)

	authed := func(scope auth.Scope, handler http.HandlerFunc) http.Handler {
		guarded := middleware.RequireScope(s.engine, s.metrics, scope)(handler)
		return chain(s.auth.Handler(guarded))
	}

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.Handle("/users", authed(ScopeUsersRead, s.listUsers)).Methods("GET", "OPTIONS")
	v1.Handle("/users/current", authed(ScopeUsersRead, s.currentUser)).Methods("GET", "OPTIONS")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router exposes the underlying router for additional registrations.
func (s *Server) Router() *mux.Router {
	return s.router
}
