package main

import (
	"encoding/json"
	"errors"
	"flag"
	"io"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"teamsync/internal/config"
)

const (
	configFormatJSON = "json"
	configFormatTOML = "toml"
)

type ConfigCommand struct {
	wiring commandWiring
}

type configOutput struct {
	ConfigPath string               `json:"config_path" toml:"config_path"`
	DataDir    string               `json:"data_dir" toml:"data_dir"`
	API        effectiveAPIConfig   `json:"api" toml:"api"`
	Polling    effectivePollConfig  `json:"polling" toml:"polling"`
	Logging    effectiveLogConfig   `json:"logging" toml:"logging"`
	Store      effectiveStoreConfig `json:"store" toml:"store"`
	UI         effectiveUIConfig    `json:"ui" toml:"ui"`
}

type effectiveAPIConfig struct {
	BaseURL   string `json:"base_url" toml:"base_url"`
	TeamID    string `json:"team_id,omitempty" toml:"team_id,omitempty"`
	TokenSet  bool   `json:"token_set" toml:"token_set"`
	TokenPath string `json:"token_path" toml:"token_path"`
	Timeout   string `json:"timeout" toml:"timeout"`
}

type effectivePollConfig struct {
	Interval string `json:"interval" toml:"interval"`
}

type effectiveLogConfig struct {
	Level  string `json:"level" toml:"level"`
	Format string `json:"format" toml:"format"`
}

type effectiveStoreConfig struct {
	Enabled bool   `json:"enabled" toml:"enabled"`
	Backend string `json:"backend" toml:"backend"`
	Path    string `json:"path" toml:"path"`
}

type effectiveUIConfig struct {
	Markdown bool `json:"markdown" toml:"markdown"`
	Dark     bool `json:"dark" toml:"dark"`
}

func NewConfigCommand(wiring commandWiring) *ConfigCommand {
	return &ConfigCommand{wiring: wiring}
}

func (c *ConfigCommand) Run(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	defaults := fs.Bool("default", false, "print default config values")
	format := fs.String("format", configFormatJSON, "output format: json|toml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resolvedFormat, err := resolveConfigFormat(*format)
	if err != nil {
		return err
	}
	cfg := config.DefaultCoreConfig()
	if !*defaults {
		cfg, err = c.wiring.loadConfig()
		if err != nil {
			return err
		}
	}
	payload, err := buildConfigOutput(cfg)
	if err != nil {
		return err
	}
	return writeConfigOutput(c.wiring.stdout, resolvedFormat, payload)
}

func buildConfigOutput(cfg config.CoreConfig) (configOutput, error) {
	configPath, err := config.CoreConfigPath()
	if err != nil {
		return configOutput{}, err
	}
	dataDir, err := config.DataDir()
	if err != nil {
		return configOutput{}, err
	}
	tokenPath, err := cfg.ResolveTokenPath()
	if err != nil {
		return configOutput{}, err
	}
	token, err := cfg.ResolveToken()
	if err != nil {
		return configOutput{}, err
	}
	indexPath, err := cfg.ResolveSessionIndexPath()
	if err != nil {
		return configOutput{}, err
	}
	return configOutput{
		ConfigPath: configPath,
		DataDir:    dataDir,
		API: effectiveAPIConfig{
			BaseURL:   cfg.APIBaseURL(),
			TeamID:    cfg.TeamID(),
			TokenSet:  token != "",
			TokenPath: tokenPath,
			Timeout:   cfg.APITimeout().String(),
		},
		Polling: effectivePollConfig{
			Interval: cfg.PollInterval().String(),
		},
		Logging: effectiveLogConfig{
			Level:  cfg.LogLevel(),
			Format: cfg.LogFormat(),
		},
		Store: effectiveStoreConfig{
			Enabled: cfg.SessionIndexEnabled(),
			Backend: cfg.StoreBackend(),
			Path:    indexPath,
		},
		UI: effectiveUIConfig{
			Markdown: cfg.MarkdownEnabled(),
			Dark:     cfg.DarkBackground(),
		},
	}, nil
}

func writeConfigOutput(out io.Writer, format string, payload any) error {
	switch format {
	case configFormatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(payload)
	case configFormatTOML:
		data, err := toml.Marshal(payload)
		if err != nil {
			return err
		}
		if len(data) == 0 || data[len(data)-1] != '\n' {
			data = append(data, '\n')
		}
		_, err = out.Write(data)
		return err
	default:
		return errors.New("unsupported format")
	}
}

func resolveConfigFormat(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", configFormatJSON:
		return configFormatJSON, nil
	case configFormatTOML:
		return configFormatTOML, nil
	default:
		return "", errors.New("invalid format: must be json or toml")
	}
}
