package app

import (
	"strings"

	"github.com/charlesng35/hrmatrix/pkg/logger"
)

// ConfigureLogging initialises the global logger from the server block, defaulting to info.
func ConfigureLogging(cfg ServerConfig) error {
	level := strings.TrimSpace(cfg.LogLevel)
	if level == "" {
		level = "info"
	}
	return logger.InitWithOptions(logger.Options{
		Level:   level,
		Format:  strings.TrimSpace(cfg.LogFormat),
		Service: "hrmatrix",
	})
}
