// Package httpapi is the HTTP surface: routing, request decoding,
// authentication middleware, response shaping, and error mapping. It
// depends on internal/service and internal/authn for
// behavior, uses internal/store only for its sentinel errors, and
// never touches internal/domain directly — every response is built
// from a service View type.
package httpapi

import (
	"net/http"
	"time"

	"github.com/TimurManjosov/flaglite/internal/authn"
	"github.com/TimurManjosov/flaglite/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// RequestTimeout is the per-request deadline the HTTP layer imposes;
// database operations inherit it through r.Context().
const RequestTimeout = 30 * time.Second

// Server holds the domain services and cross-cutting dependencies the
// handlers need. It carries no storage-adapter-specific state: nothing
// above the store port knows which adapter is active.
type Server struct {
	auth     *service.AuthService
	projects *service.ProjectService
	flags    *service.FlagService
	eval     *service.EvaluationService
	resolver *authn.Resolver
	logger   zerolog.Logger
}

// NewServer wires the HTTP surface over an already-constructed set of
// domain services.
func NewServer(
	auth *service.AuthService,
	projects *service.ProjectService,
	flags *service.FlagService,
	eval *service.EvaluationService,
	resolver *authn.Resolver,
	logger zerolog.Logger,
) *Server {
	return &Server{auth: auth, projects: projects, flags: flags, eval: eval, resolver: resolver, logger: logger}
}

// Router builds the full routing tree. Principal resolution
// (authn.WithPrincipal) runs on every request so handlers can read it
// from context, but it never itself rejects a request — each handler
// decides what it requires.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(authn.WithPrincipal(s.resolver))
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", s.handleSignup)
			r.Post("/login", s.handleLogin)
			r.Get("/me", s.handleMe)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", s.handleListProjects)
			r.Post("/", s.handleCreateProject)

			r.Route("/{pid}", func(r chi.Router) {
				r.Get("/environments", s.handleListEnvironments)

				r.Route("/flags", func(r chi.Router) {
					r.Get("/", s.handleListFlags)
					r.Post("/", s.handleCreateFlag)

					r.Route("/{key}", func(r chi.Router) {
						r.Get("/", s.handleGetFlag)
						r.Delete("/", s.handleDeleteFlag)
						r.Post("/toggle", s.handleToggleFlag)
						r.Patch("/environments/{env}", s.handleUpdateFlagValue)
					})
				})
			})
		})

		r.Get("/flags/{key}", s.handleEvaluate)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requirePrincipal rejects requests that did not authenticate at all.
// It does not check principal kind or ownership — that's
// authorization, left to the service layer, which maps to 403.
// Returns ok=false after already writing the 401 response.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (*authn.Principal, bool) {
	p, ok := authn.FromContext(r.Context())
	if !ok || p == nil {
		writeUnauthorized(w)
		return nil, false
	}
	return p, true
}

// optionalPrincipal returns the resolved principal if any, without
// rejecting the request. Used by handlers whose service method treats
// a nil principal as its own error case (e.g. AuthService.Me).
func optionalPrincipal(r *http.Request) *authn.Principal {
	p, _ := authn.FromContext(r.Context())
	return p
}
