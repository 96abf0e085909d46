package config

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// SetupLogging configures the global logrus logger from LOG_LEVEL and LOG_FORMAT.
func SetupLogging(cfg *Config) {
	log.SetOutput(os.Stdout)

	if strings.EqualFold(cfg.LogFormat, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("unknown LOG_LEVEL %q, falling back to info", cfg.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
