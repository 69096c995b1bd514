package api

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charlesng35/hrmatrix/internal/app"
	iauth "github.com/charlesng35/hrmatrix/internal/auth"
	"github.com/charlesng35/hrmatrix/internal/handlers"
	"github.com/charlesng35/hrmatrix/internal/middleware"
	"github.com/charlesng35/hrmatrix/internal/monitoring"
	"github.com/charlesng35/hrmatrix/internal/permissions"
)

// Dependencies are the collaborators wired into the router.
type Dependencies struct {
	Config        *app.Config
	Authenticator *iauth.Authenticator
	Services      *Services
	Health        *monitoring.HealthManager
	Jobs          *monitoring.JobTracker
	// RateStore holds rate limit counters; nil keeps them in process.
	RateStore middleware.RateStore
}

// NewRouter builds the Gin engine, wires middleware and registers every route group.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	cfg := deps.Config
	if cfg == nil {
		return nil, errors.New("config must be provided")
	}
	if deps.Authenticator == nil {
		return nil, errors.New("authenticator must be provided")
	}
	if deps.Services == nil {
		return nil, errors.New("services must be provided")
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(middleware.Recovery())
	r.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RateLimit(deps.RateStore, cfg.RateLimit.Requests, cfg.RateLimit.Window))

	if cfg.Monitoring.Health.Enabled {
		health := deps.Health
		if health == nil {
			health = monitoring.NewHealthManager()
		}
		registerHealthRoutes(r, handlers.NewHealthHandler(health, deps.Jobs))
	}

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	checker := permissions.NewChecker()
	requireAuth := middleware.Auth(deps.Authenticator)

	public := r.Group("/api")
	protected := r.Group("/api")
	protected.Use(requireAuth)

	svc := deps.Services
	registerAuthRoutes(public, protected, handlers.NewAuthHandler(deps.Authenticator, svc.Signup, svc.Users))
	registerInviteRoutes(public, protected, checker, handlers.NewInviteHandler(svc.Invites))

	cvHandler := handlers.NewCVHandler(svc.CVs, svc.Reviews)
	registerCVRoutes(protected, checker, cvHandler)
	registerUploadRoutes(r, cfg.Storage.PublicPath, requireAuth, checker, cvHandler)

	registerJobPostingRoutes(protected, checker, handlers.NewJobPostingHandler(svc.JobPostings))
	registerTeamRoutes(protected, checker, handlers.NewUserHandler(svc.Users))
	registerProfileRoutes(protected, checker, handlers.NewProfileHandler(svc.Users))
	registerAuditRoutes(protected, checker, handlers.NewAuditHandler(svc.Audit))

	r.NoRoute(middleware.NotFoundHandler)
	r.NoMethod(middleware.MethodNotAllowedHandler)

	return r, nil
}
