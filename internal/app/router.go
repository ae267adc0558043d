package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clubroster/roster/internal/auth"
	"github.com/clubroster/roster/internal/observability"
	"github.com/clubroster/roster/internal/platform/httpx"
	"github.com/clubroster/roster/internal/players"
	"github.com/clubroster/roster/internal/rbac"
	"github.com/clubroster/roster/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Authenticator  *auth.Authenticator
	AuthHandler    *auth.Handler
	PlayersHandler *players.Handler
	JobHandler     *jobs.Handler
	RBACMiddleware rbac.Middleware
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with roster defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)

		r.Group(func(r chi.Router) {
			r.Use(params.Authenticator.Middleware)
			if params.PlayersHandler != nil {
				r.Route("/players", params.PlayersHandler.MountRoutes)
			}
			if params.JobHandler != nil {
				r.With(params.RBACMiddleware.RequireRole(rbac.NewRoleSet(rbac.RoleAdmin))).
					Route("/jobs", params.JobHandler.MountRoutes)
			}
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
	})
	return r
}
