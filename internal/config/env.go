package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvAPIBaseURL   = "TEAMSYNC_API_BASE_URL"
	EnvTeamID       = "TEAMSYNC_TEAM_ID"
	EnvToken        = "TEAMSYNC_TOKEN"
	EnvPollInterval = "TEAMSYNC_POLL_INTERVAL"
	EnvLogLevel     = "TEAMSYNC_LOG_LEVEL"
)

type lookupEnvFunc func(key string) (string, bool)

// loadDotEnv loads ./.env and then the data dir .env. Variables that are
// already set are never overwritten and missing files are ignored.
func loadDotEnv() error {
	paths := []string{".env"}
	if path, err := EnvFilePath(); err == nil {
		paths = append(paths, path)
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

func applyEnvOverrides(cfg *CoreConfig, lookup lookupEnvFunc) {
	if cfg == nil || lookup == nil {
		return
	}
	if value, ok := lookupTrimmed(lookup, EnvAPIBaseURL); ok {
		cfg.API.BaseURL = value
	}
	if value, ok := lookupTrimmed(lookup, EnvTeamID); ok {
		cfg.API.TeamID = value
	}
	if value, ok := lookupTrimmed(lookup, EnvToken); ok {
		cfg.API.Token = value
	}
	if value, ok := lookupTrimmed(lookup, EnvPollInterval); ok {
		cfg.Polling.Interval = value
	}
	if value, ok := lookupTrimmed(lookup, EnvLogLevel); ok {
		cfg.Logging.Level = value
	}
}

func lookupTrimmed(lookup lookupEnvFunc, key string) (string, bool) {
	value, ok := lookup(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}
