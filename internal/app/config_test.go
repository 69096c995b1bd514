package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/hrmatrix/internal/auth"
	"github.com/charlesng35/hrmatrix/internal/cache"
	"github.com/charlesng35/hrmatrix/internal/database"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, "console", cfg.Server.LogFormat)
	require.Equal(t, "https://hr.example.com", cfg.Server.BaseURL)
	require.Equal(t, 20*time.Second, cfg.Server.RequestTimeout)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)
	require.Equal(t, "require", cfg.Database.Postgres.Options["sslmode"])
	require.Equal(t, 40, cfg.Database.MaxOpenConns)
	require.Equal(t, 5, cfg.Database.MaxIdleConns)

	require.True(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, "redis.example.com:6380", cfg.Cache.Redis.Address)
	require.Equal(t, 2, cfg.Cache.Redis.DB)
	require.Equal(t, 3*time.Second, cfg.Cache.Redis.Timeout)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, "hrmatrix-test", cfg.Auth.JWT.Issuer)
	require.Equal(t, 48*time.Hour, cfg.Auth.JWT.TTL)

	require.Equal(t, 72*time.Hour, cfg.Invitations.Expiry)
	require.Equal(t, 24, cfg.Invitations.TokenBytes)
	require.Equal(t, "/join", cfg.Invitations.AcceptPath)
	require.False(t, cfg.Invitations.BlockDuplicatePending)

	require.Equal(t, "Acme Hiring", cfg.Email.FromName)
	require.True(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, "smtp.example.com", cfg.Email.SMTP.Host)
	require.Equal(t, 2525, cfg.Email.SMTP.Port)
	require.Equal(t, 15*time.Second, cfg.Email.SMTP.Timeout)

	require.Equal(t, "memory", cfg.Storage.Driver)
	require.Equal(t, "/files", cfg.Storage.PublicPath)
	require.EqualValues(t, 2<<20, cfg.Storage.MaxUploadBytes)

	require.False(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "/internal/metrics", cfg.Monitoring.Prometheus.Endpoint)
	require.True(t, cfg.Monitoring.Health.Enabled)

	require.Equal(t, 30, cfg.Maintenance.AuditRetentionDays)
	require.Equal(t, "0 3 * * *", cfg.Maintenance.AuditSchedule)
	require.Equal(t, "@every 5m", cfg.Maintenance.GaugeSchedule)

	require.Equal(t, 20, cfg.RateLimit.Requests)
	require.Equal(t, 30*time.Second, cfg.RateLimit.Window)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "./data/hrmatrix.sqlite", cfg.Database.Path)
	require.False(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, 720*time.Hour, cfg.Auth.JWT.TTL)
	require.Equal(t, 24*time.Hour, cfg.Invitations.Expiry)
	require.Equal(t, 32, cfg.Invitations.TokenBytes)
	require.Equal(t, "/signup/invite", cfg.Invitations.AcceptPath)
	require.True(t, cfg.Invitations.BlockDuplicatePending)
	require.False(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, "local", cfg.Storage.Driver)
	require.EqualValues(t, 10<<20, cfg.Storage.MaxUploadBytes)
	require.True(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, 90, cfg.Maintenance.AuditRetentionDays)
	require.Equal(t, 100, cfg.RateLimit.Requests)
	require.Equal(t, time.Minute, cfg.RateLimit.Window)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("HRMATRIX_SERVER_PORT", "7001")
	t.Setenv("HRMATRIX_AUTH_JWT_SECRET", "from-env")
	t.Setenv("HRMATRIX_INVITATIONS_EXPIRY", "2h")

	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 7001, cfg.Server.Port)
	require.Equal(t, "from-env", cfg.Auth.JWT.Secret)
	require.Equal(t, 2*time.Hour, cfg.Invitations.Expiry)
}

func TestAuthConfigAdapters(t *testing.T) {
	cfg := AuthConfig{JWT: JWTSettings{Secret: "secret", Issuer: "issuer", TTL: 30 * time.Minute}}

	require.Equal(t, auth.JWTConfig{
		Secret:         "secret",
		Issuer:         "issuer",
		AccessTokenTTL: 30 * time.Minute,
	}, cfg.JWTServiceConfig())

	var empty AuthConfig
	require.Equal(t, auth.DefaultAccessTokenTTL, empty.JWTServiceConfig().AccessTokenTTL)
}

func TestCacheConfigAdapter(t *testing.T) {
	cfg := CacheConfig{Redis: RedisCacheConfig{
		Enabled:  true,
		Address:  " redis:6379 ",
		Username: " default ",
		Password: "pw",
		DB:       1,
		TLS:      true,
		Timeout:  time.Second,
	}}

	require.Equal(t, cache.RedisConfig{
		Address:  "redis:6379",
		Username: "default",
		Password: "pw",
		DB:       1,
		TLS:      true,
		Timeout:  time.Second,
	}, cfg.RedisClientConfig())
}

func TestEmailConfigAdapter(t *testing.T) {
	cfg := EmailConfig{
		FromName: " Acme Hiring ",
		SMTP: SMTPConfig{
			Enabled:  true,
			Host:     "smtp.example.com",
			Port:     2525,
			Username: "user",
			Password: "pass",
			From:     "no-reply@example.com",
			UseTLS:   true,
			Timeout:  10 * time.Second,
		},
	}

	settings := cfg.SMTPSettings()
	require.True(t, settings.Enabled)
	require.Equal(t, "smtp.example.com", settings.Host)
	require.Equal(t, 2525, settings.Port)
	require.Equal(t, "user", settings.Username)
	require.Equal(t, "pass", settings.Password)
	require.Equal(t, "no-reply@example.com", settings.From)
	require.Equal(t, "Acme Hiring", settings.FromName)
	require.True(t, settings.UseTLS)
	require.Equal(t, 10*time.Second, settings.Timeout)
}

func TestDatabaseConnectionConfig(t *testing.T) {
	cfg := DatabaseConfig{
		Driver: "Postgres",
		Postgres: DBAuthConfig{
			Host:     "db",
			Port:     5432,
			Database: "hr",
			Username: "u",
			Password: "p",
			Options:  map[string]string{"sslmode": "disable"},
		},
		MySQL:        DBAuthConfig{Host: "ignored"},
		MaxOpenConns: 10,
	}

	require.Equal(t, database.Config{
		Driver:       "postgres",
		Host:         "db",
		Port:         5432,
		Name:         "hr",
		User:         "u",
		Password:     "p",
		Options:      map[string]string{"sslmode": "disable"},
		MaxOpenConns: 10,
	}, cfg.ConnectionConfig())

	sqlite := DatabaseConfig{Driver: "sqlite", Path: "./hr.db", MySQL: DBAuthConfig{Host: "ignored"}}
	conn := sqlite.ConnectionConfig()
	require.Equal(t, "./hr.db", conn.Path)
	require.Empty(t, conn.Host)
}
