package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/snagtrack/snag/pkg/auth"
	"github.com/snagtrack/snag/pkg/defects"
	"github.com/snagtrack/snag/pkg/middleware"
	"github.com/snagtrack/snag/pkg/observability"
	"github.com/snagtrack/snag/pkg/projects"
	"github.com/snagtrack/snag/pkg/stats"
	"github.com/snagtrack/snag/pkg/users"
)

// Options carries the wired handler sets and cross-cutting pieces the
// server composes into one router
type Options struct {
	Logger   *observability.Logger
	Metrics  *observability.Metrics
	Resolver auth.Resolver

	Users    *users.Handlers
	Defects  *defects.Handlers
	Projects *projects.Handlers
	Stats    *stats.Handlers
}

// Server is the composed API surface. Login is the only unauthenticated
// route; everything else sits behind the bearer-token middleware.
type Server struct {
	router *mux.Router
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	router := mux.NewRouter()
	router.Use(observability.Middleware(opts.Logger, opts.Metrics))

	opts.Users.RegisterPublicRoutes(router)

	authMW := middleware.NewAuthMiddleware(opts.Resolver, false)
	protected := router.NewRoute().Subrouter()
	protected.Use(authMW.Handler)

	opts.Users.RegisterRoutes(protected)
	opts.Defects.RegisterRoutes(protected)
	opts.Projects.RegisterRoutes(protected)
	opts.Stats.RegisterRoutes(protected)

	return &Server{router: router}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router exposes the underlying router
func (s *Server) Router() *mux.Router {
	return s.router
}
