package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/hrmatrix/internal/api"
	"github.com/charlesng35/hrmatrix/internal/app"
	iauth "github.com/charlesng35/hrmatrix/internal/auth"
	"github.com/charlesng35/hrmatrix/internal/cache"
	sharedtestutil "github.com/charlesng35/hrmatrix/internal/database/testutil"
	"github.com/charlesng35/hrmatrix/internal/monitoring"
	"github.com/charlesng35/hrmatrix/internal/monitoring/checks"
	"github.com/charlesng35/hrmatrix/internal/storage"
	"github.com/charlesng35/hrmatrix/pkg/mail"
	"github.com/charlesng35/hrmatrix/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	Config   *app.Config
	Services *api.Services
	Mailer   *RecordingMailer
	Clock    *Clock
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	cfg := &app.Config{
		Server: app.ServerConfig{BaseURL: "https://hr.example.com", RequestTimeout: 10 * time.Second},
		Auth: app.AuthConfig{JWT: app.JWTSettings{
			Secret: "test-suite-super-secret-key-32-bytes!!",
			Issuer: "test-suite",
			TTL:    time.Hour,
		}},
		Invitations: app.InvitationConfig{
			Expiry:                24 * time.Hour,
			TokenBytes:            32,
			AcceptPath:            "/signup/invite",
			BlockDuplicatePending: true,
		},
		Storage:    app.StorageConfig{Driver: "memory", PublicPath: "/uploads", MaxUploadBytes: 64 << 10},
		Monitoring: app.MonitoringConfig{Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"}, Health: app.HealthConfig{Enabled: true}},
	}

	clock := &Clock{now: time.Now().UTC()}
	mailer := &RecordingMailer{}

	jwtCfg := cfg.Auth.JWTServiceConfig()
	jwtCfg.Clock = clock.Now
	jwtSvc, err := iauth.NewJWTService(jwtCfg)
	require.NoError(t, err)
	authenticator, err := iauth.NewAuthenticator(db, jwtSvc)
	require.NoError(t, err)

	svc, err := api.NewServices(db, cfg, api.ServiceOptions{
		Store:  storage.NewMemoryStore(cfg.Storage.PublicPath),
		Mailer: mailer,
		Locker: cache.NewMemoryLocker(),
		Clock:  clock.Now,
	})
	require.NoError(t, err)

	health := monitoring.NewHealthManager()
	health.RegisterLiveness(monitoring.NewCheck("process", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}))
	health.RegisterReadiness(checks.Database(db, time.Second))

	router, err := api.NewRouter(api.Dependencies{
		Config:        cfg,
		Authenticator: authenticator,
		Services:      svc,
		Health:        health,
		Jobs:          monitoring.NewJobTracker(),
	})
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		Config:   cfg,
		Services: svc,
		Mailer:   mailer,
		Clock:    clock,
	}
}

// Clock is a settable time source shared by the JWT and invitation services.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// RecordingMailer captures outbound messages, or fails every send when Err is set.
type RecordingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	Err      error
}

func (m *RecordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.messages = append(m.messages, msg)
	return nil
}

// FailWith makes subsequent sends fail.
func (m *RecordingMailer) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

// Messages returns a copy of the captured messages.
func (m *RecordingMailer) Messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.messages...)
}

var inviteTokenPattern = regexp.MustCompile(`token=([0-9a-f]+)`)

// LastInviteToken extracts the token from the most recent invitation email.
func (m *RecordingMailer) LastInviteToken(t *testing.T) string {
	t.Helper()
	messages := m.Messages()
	require.NotEmpty(t, messages, "no invitation email captured")
	match := inviteTokenPattern.FindStringSubmatch(messages[len(messages)-1].Body)
	require.Len(t, match, 2, "invitation email carries no token")
	return match[1]
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	buf := bytes.NewBuffer(nil)
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.serve(req, token)
}

// UploadFile describes one multipart file part.
type UploadFile struct {
	Field       string
	Name        string
	ContentType string
	Content     []byte
}

// Upload posts a multipart form with an optional file part and extra fields.
func (e *Env) Upload(path string, file *UploadFile, fields map[string]string, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(e.T, writer.WriteField(key, value))
	}
	if file != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="`+file.Field+`"; filename="`+file.Name+`"`)
		if file.ContentType != "" {
			header.Set("Content-Type", file.ContentType)
		}
		part, err := writer.CreatePart(header)
		require.NoError(e.T, err)
		_, err = part.Write(file.Content)
		require.NoError(e.T, err)
	}
	require.NoError(e.T, writer.Close())

	req, err := http.NewRequest(http.MethodPost, path, body)
	require.NoError(e.T, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return e.serve(req, token)
}

func (e *Env) serve(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// Signup registers a user through the public endpoint.
func (e *Env) Signup(company, name, email, password string) {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/signup", map[string]string{
		"company":  company,
		"name":     name,
		"email":    email,
		"password": password,
	}, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())
}

// LoginResult mirrors the login response payload.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Role    string `json:"role"`
		Company struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"company"`
	} `json:"user"`
}

// Login authenticates and returns the issued session.
func (e *Env) Login(company, email, password string) LoginResult {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"company":  company,
		"email":    email,
		"password": password,
	}, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.Token)
	return result
}

// SignupAndLogin registers a user and returns a bearer token for them.
func (e *Env) SignupAndLogin(company, name, email, password string) string {
	e.T.Helper()
	e.Signup(company, name, email, password)
	return e.Login(company, email, password).Token
}
