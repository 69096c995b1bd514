package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charlesng35/hrmatrix/pkg/crypto"
)

const jwtSecretBytes = 48

// runtimeDefault fills one configuration key when it was left empty. It reports whether a
// value was generated.
type runtimeDefault struct {
	key  string
	fill func(*Config) (bool, error)
}

var runtimeDefaults = []runtimeDefault{
	{key: "auth.jwt.secret", fill: func(cfg *Config) (bool, error) {
		if strings.TrimSpace(cfg.Auth.JWT.Secret) != "" {
			return false, nil
		}
		secret, err := crypto.GenerateToken(jwtSecretBytes)
		if err != nil {
			return false, err
		}
		cfg.Auth.JWT.Secret = secret
		return true, nil
	}},
	{key: "server.base_url", fill: func(cfg *Config) (bool, error) {
		if strings.TrimSpace(cfg.Server.BaseURL) != "" {
			return false, nil
		}
		cfg.Server.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
		return true, nil
	}},
}

// ApplyRuntimeDefaults fills keys that must never be empty and returns the names of those
// it generated, so callers can log them without the values. A generated JWT secret lives
// only as long as the process; issued tokens stop validating after a restart.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	generated := make(map[string]bool)
	for _, def := range runtimeDefaults {
		ok, err := def.fill(cfg)
		if err != nil {
			return nil, fmt.Errorf("generate %s: %w", def.key, err)
		}
		if ok {
			generated[def.key] = true
		}
	}
	return generated, nil
}
