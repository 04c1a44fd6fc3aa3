package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/aegis-authz/aegis/internal/audit"
	"github.com/aegis-authz/aegis/internal/auth"
	"github.com/aegis-authz/aegis/internal/authz"
	"github.com/aegis-authz/aegis/internal/features"
	"github.com/aegis-authz/aegis/internal/observability"
	"github.com/aegis-authz/aegis/internal/policies"
	"github.com/aegis-authz/aegis/internal/roles"
	"github.com/aegis-authz/aegis/internal/users"
	"github.com/aegis-authz/aegis/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	Auth auth.Middleware

	AccessHandler   *authz.Handler
	FeaturesHandler *features.Handler
	PoliciesHandler *policies.Handler
	RolesHandler    *roles.Handler
	UsersHandler    *users.Handler
	AuditHandler    *audit.Handler
	JobHandler      *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(params.Auth.RequireAPIKey)
		r.Use(params.Auth.WithPrincipal)

		r.Route("/access", params.AccessHandler.MountRoutes)
		if params.FeaturesHandler != nil {
			r.Route("/features", func(r chi.Router) {
				params.FeaturesHandler.MountRoutes(r)
				if params.PoliciesHandler != nil {
					params.PoliciesHandler.MountRoutes(r)
				}
			})
		}
		if params.RolesHandler != nil {
			r.Route("/roles", params.RolesHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/audit", params.AuditHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
