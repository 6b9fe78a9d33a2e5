package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultAPIBaseURL   = "https://wize-teams-api.aiwayz.com"
	defaultPollInterval = 5 * time.Second
	defaultAPITimeout   = 10 * time.Second
	defaultLogLevel     = "info"
	defaultLogFormat    = "text"

	StoreBackendBbolt = "bbolt"
	StoreBackendFile  = "file"
)

type CoreConfig struct {
	API     CoreAPIConfig     `toml:"api"`
	Polling CorePollingConfig `toml:"polling"`
	Logging CoreLoggingConfig `toml:"logging"`
	Store   CoreStoreConfig   `toml:"store"`
	UI      CoreUIConfig      `toml:"ui"`
}

type CoreAPIConfig struct {
	BaseURL   string `toml:"base_url"`
	TeamID    string `toml:"team_id"`
	Token     string `toml:"token"`
	TokenPath string `toml:"token_path"`
	Timeout   string `toml:"timeout"`
}

type CorePollingConfig struct {
	Interval string `toml:"interval"`
}

type CoreLoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type CoreStoreConfig struct {
	Backend  string `toml:"backend"`
	Path     string `toml:"path"`
	Disabled bool   `toml:"disabled"`
}

type CoreUIConfig struct {
	Markdown *bool `toml:"markdown"`
	Dark     *bool `toml:"dark"`
}

func DefaultCoreConfig() CoreConfig {
	return CoreConfig{
		API: CoreAPIConfig{
			BaseURL: defaultAPIBaseURL,
			Timeout: defaultAPITimeout.String(),
		},
		Polling: CorePollingConfig{
			Interval: defaultPollInterval.String(),
		},
		Logging: CoreLoggingConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}

// LoadCoreConfig reads config.toml from the data dir, then applies dotenv
// files and environment overrides.
func LoadCoreConfig() (CoreConfig, error) {
	path, err := CoreConfigPath()
	if err != nil {
		return CoreConfig{}, err
	}
	cfg, err := loadCoreConfigFromPath(path)
	if err != nil {
		return CoreConfig{}, err
	}
	if err := loadDotEnv(); err != nil {
		return CoreConfig{}, err
	}
	applyEnvOverrides(&cfg, os.LookupEnv)
	return cfg, nil
}

func (c CoreConfig) APIBaseURL() string {
	base := strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if base == "" {
		return defaultAPIBaseURL
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return base
}

func (c CoreConfig) TeamID() string {
	return strings.TrimSpace(c.API.TeamID)
}

func (c CoreConfig) APITimeout() time.Duration {
	return parsePositiveDuration(c.API.Timeout, defaultAPITimeout)
}

// PollInterval is read once when a controller is built. Non-positive or
// malformed values fall back to the default.
func (c CoreConfig) PollInterval() time.Duration {
	return parsePositiveDuration(c.Polling.Interval, defaultPollInterval)
}

func (c CoreConfig) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return defaultLogLevel
	}
	return level
}

func (c CoreConfig) LogFormat() string {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "json":
		return "json"
	default:
		return defaultLogFormat
	}
}

func (c CoreConfig) MarkdownEnabled() bool {
	if c.UI.Markdown == nil {
		return true
	}
	return *c.UI.Markdown
}

func (c CoreConfig) DarkBackground() bool {
	if c.UI.Dark == nil {
		return true
	}
	return *c.UI.Dark
}

func (c CoreConfig) SessionIndexEnabled() bool {
	return !c.Store.Disabled
}

func (c CoreConfig) StoreBackend() string {
	switch strings.ToLower(strings.TrimSpace(c.Store.Backend)) {
	case StoreBackendFile:
		return StoreBackendFile
	default:
		return StoreBackendBbolt
	}
}

func (c CoreConfig) ResolveSessionIndexPath() (string, error) {
	path := strings.TrimSpace(c.Store.Path)
	if path != "" {
		return resolveConfigPath(path)
	}
	if c.StoreBackend() == StoreBackendFile {
		return SessionIndexFilePath()
	}
	return SessionIndexPath()
}

func (c CoreConfig) ResolveTokenPath() (string, error) {
	path := strings.TrimSpace(c.API.TokenPath)
	if path == "" {
		return TokenPath()
	}
	return resolveConfigPath(path)
}

// ResolveToken returns the inline token if set, otherwise the trimmed
// contents of the token file. A missing token file yields an empty token.
func (c CoreConfig) ResolveToken() (string, error) {
	if token := strings.TrimSpace(c.API.Token); token != "" {
		return token, nil
	}
	path, err := c.ResolveTokenPath()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func loadCoreConfigFromPath(path string) (CoreConfig, error) {
	cfg := DefaultCoreConfig()
	if err := readTOML(path, &cfg); err != nil {
		return CoreConfig{}, err
	}
	return cfg, nil
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}

func resolveConfigPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("path is required")
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, path), nil
}

func parsePositiveDuration(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
