package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/hrmatrix/internal/app"
	iauth "github.com/charlesng35/hrmatrix/internal/auth"
	"github.com/charlesng35/hrmatrix/internal/cache"
	"github.com/charlesng35/hrmatrix/internal/database/testutil"
	"github.com/charlesng35/hrmatrix/internal/storage"
)

func testConfig() *app.Config {
	return &app.Config{
		Server: app.ServerConfig{BaseURL: "http://localhost:8000"},
		Auth: app.AuthConfig{JWT: app.JWTSettings{
			Secret: "router-test-secret-key-of-32-bytes!!",
			TTL:    time.Hour,
		}},
		Invitations: app.InvitationConfig{Expiry: time.Hour, TokenBytes: 32, AcceptPath: "/signup/invite"},
		Storage:     app.StorageConfig{PublicPath: "/uploads", MaxUploadBytes: 1 << 20},
		RateLimit:   app.RateLimitConfig{Requests: 2, Window: time.Minute},
	}
}

func newTestDependencies(t *testing.T, cfg *app.Config) Dependencies {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)
	authenticator, err := iauth.NewAuthenticator(db, jwtSvc)
	require.NoError(t, err)

	svc, err := NewServices(db, cfg, ServiceOptions{
		Store:  storage.NewMemoryStore(cfg.Storage.PublicPath),
		Locker: cache.NewMemoryLocker(),
	})
	require.NoError(t, err)

	return Dependencies{Config: cfg, Authenticator: authenticator, Services: svc}
}

func TestNewServicesRequiresCollaborators(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	cfg := testConfig()

	_, err := NewServices(nil, cfg, ServiceOptions{Store: storage.NewMemoryStore("")})
	require.Error(t, err)

	_, err = NewServices(db, nil, ServiceOptions{Store: storage.NewMemoryStore("")})
	require.Error(t, err)

	_, err = NewServices(db, cfg, ServiceOptions{})
	require.Error(t, err)
}

func TestNewRouterRequiresDependencies(t *testing.T) {
	deps := newTestDependencies(t, testConfig())

	_, err := NewRouter(Dependencies{Authenticator: deps.Authenticator, Services: deps.Services})
	require.Error(t, err)

	_, err = NewRouter(Dependencies{Config: deps.Config, Services: deps.Services})
	require.Error(t, err)

	_, err = NewRouter(Dependencies{Config: deps.Config, Authenticator: deps.Authenticator})
	require.Error(t, err)
}

func TestNewRouterRegistersRoutes(t *testing.T) {
	deps := newTestDependencies(t, testConfig())

	router, err := NewRouter(deps)
	require.NoError(t, err)

	registered := make(map[string]bool)
	for _, route := range router.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"POST /api/auth/login",
		"POST /api/auth/signup",
		"GET /api/auth/me",
		"GET /api/invite/validate",
		"POST /api/invite/accept",
		"GET /api/invite",
		"POST /api/invite",
		"GET /api/cv",
		"POST /api/cv/upload",
		"GET /api/cv/:id",
		"GET /api/cv/:id/file",
		"PATCH /api/cv/:id/status",
		"POST /api/cv/:id/review",
		"GET /uploads/*name",
		"GET /api/job-postings",
		"POST /api/job-postings",
		"GET /api/team",
		"GET /api/users/:id",
		"GET /api/profile",
		"GET /api/audit",
		"PUT /api/profile/update",
		"POST /api/profile/update",
	} {
		require.True(t, registered[want], "missing route %s", want)
	}

	// Monitoring surfaces stay off unless configured.
	require.False(t, registered["GET /health"])
	require.False(t, registered["GET /metrics"])
}

func TestNewRouterMonitoringRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.Monitoring.Health.Enabled = true
	cfg.Monitoring.Prometheus.Enabled = true
	cfg.Monitoring.Prometheus.Endpoint = "/internal/metrics"

	router, err := NewRouter(newTestDependencies(t, cfg))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestNewRouterAppliesRateLimit(t *testing.T) {
	router, err := NewRouter(newTestDependencies(t, testConfig()))
	require.NoError(t, err)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/invite/validate", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	require.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}

func TestRegisterUploadRoutesSkipsUnsafePaths(t *testing.T) {
	for _, publicPath := range []string{"", "/", "/api/files"} {
		cfg := testConfig()
		cfg.Storage.PublicPath = publicPath

		router, err := NewRouter(newTestDependencies(t, cfg))
		require.NoError(t, err)

		for _, route := range router.Routes() {
			require.NotEqual(t, "/*name", route.Path, publicPath)
			require.NotEqual(t, "/api/files/*name", route.Path, publicPath)
		}
	}
}
