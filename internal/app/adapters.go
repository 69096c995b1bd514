package app

import (
	"strings"

	"github.com/charlesng35/hrmatrix/internal/auth"
	"github.com/charlesng35/hrmatrix/internal/cache"
	"github.com/charlesng35/hrmatrix/internal/database"
	"github.com/charlesng35/hrmatrix/pkg/mail"
)

// The methods below hand each subsystem its own config type so those packages never
// import app.

// JWTServiceConfig returns the token settings, falling back to the default lifetime.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	out := auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: c.JWT.TTL,
	}
	if out.AccessTokenTTL <= 0 {
		out.AccessTokenTTL = auth.DefaultAccessTokenTTL
	}
	return out
}

func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	r := c.Redis
	return cache.RedisConfig{
		Address:  strings.TrimSpace(r.Address),
		Username: strings.TrimSpace(r.Username),
		Password: r.Password,
		DB:       r.DB,
		TLS:      r.TLS,
		Timeout:  r.Timeout,
	}
}

func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	s := c.SMTP
	return mail.SMTPSettings{
		Enabled:  s.Enabled,
		Host:     strings.TrimSpace(s.Host),
		Port:     s.Port,
		Username: s.Username,
		Password: s.Password,
		From:     strings.TrimSpace(s.From),
		FromName: strings.TrimSpace(c.FromName),
		UseTLS:   s.UseTLS,
		Timeout:  s.Timeout,
	}
}

// ConnectionConfig picks the credentials block matching the driver. SQLite ignores both.
func (c DatabaseConfig) ConnectionConfig() database.Config {
	out := database.Config{
		Driver:          strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:            c.Path,
		DSN:             strings.TrimSpace(c.DSN),
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}

	var creds *DBAuthConfig
	switch out.Driver {
	case "postgres", "postgresql":
		creds = &c.Postgres
	case "mysql", "mariadb":
		creds = &c.MySQL
	}
	if creds != nil {
		out.Host, out.Port = creds.Host, creds.Port
		out.Name = creds.Database
		out.User, out.Password = creds.Username, creds.Password
		out.Options = creds.Options
	}
	return out
}
